package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-service/internal/domain/user"
	apperrors "user-service/pkg/errors"
	"user-service/pkg/security"
)

// UserRepoPG implements the Repository interface using PostgreSQL and GORM.
type UserRepoPG struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
// The unique index on email is what enforces the uniqueness invariant
// under concurrent creates; the service-level lookup is only a courtesy check.
type UserSchema struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func (m *UserSchema) toDomain() *user.User {
	return &user.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
	}
}

// Create inserts a new user into the database. A duplicate email is reported
// as an already-exists error via GORM error translation.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (int64, error) {
	if u == nil {
		return 0, errors.New("user cannot be nil")
	}

	model := UserSchema{
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate email on create", zap.String("email", u.Email))
			return 0, apperrors.NewAlreadyExistsError("user", "user with email already exists: "+u.Email)
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return model.ID, nil
}

// Update updates an existing user in the database.
func (r *UserRepoPG) Update(ctx context.Context, u *user.User) (int64, error) {
	if u == nil {
		return 0, errors.New("user cannot be nil")
	}

	model := UserSchema{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate email on update", zap.String("email", u.Email))
			return 0, apperrors.NewAlreadyExistsError("user", "user with email already exists: "+u.Email)
		}
		r.log.Error("failed to update user in db", zap.Error(err), zap.Int64("id", u.ID))
		return 0, fmt.Errorf("failed to update user: %w", err)
	}

	r.log.Info("user updated in db", zap.Int64("id", model.ID))
	return model.ID, nil
}

// Delete removes a user from the database by ID.
func (r *UserRepoPG) Delete(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, errors.New("invalid user id")
	}

	if err := r.db.WithContext(ctx).Delete(&UserSchema{}, id).Error; err != nil {
		r.log.Error("failed to delete user in db", zap.Error(err), zap.Int64("id", id))
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return id, nil
}

// GetByID retrieves a user from the database by their unique ID.
// Returns (nil, nil) when no user matches.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.Int64("id", id))
			return nil, nil
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return model.toDomain(), nil
}

// GetByEmail retrieves a user from the database by their email address.
// Returns (nil, nil) when no user matches.
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return model.toDomain(), nil
}

// Exists reports whether a user with the given ID exists in the database.
func (r *UserRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Count(&count).Error; err != nil {
		r.log.Error("failed to check user existence in db", zap.Error(err), zap.Int64("id", id))
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return count > 0, nil
}

// List retrieves users from the database with pagination and search functionality.
// The search query is screened and escaped before it reaches the LIKE clause.
func (r *UserRepoPG) List(ctx context.Context, query string, page, limit int64) ([]user.User, int64, error) {
	validated, err := security.ValidateSearchQuery(query)
	if err != nil {
		r.log.Warn("rejected search query", zap.String("query", query), zap.Error(err))
		return nil, 0, apperrors.NewValidationError("query", fmt.Sprintf("invalid search query: %v", err))
	}
	pattern := "%" + security.SanitizeSearchString(validated) + "%"

	// Session makes the chained conditions reusable for both Count and Find.
	base := r.db.WithContext(ctx).Model(&UserSchema{}).
		Where("name LIKE ? OR email LIKE ?", pattern, pattern).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		r.log.Error("failed to count users in db", zap.Error(err), zap.String("query", validated))
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var models []UserSchema
	if err := base.
		Order("id").
		Offset(int((page - 1) * limit)).
		Limit(int(limit)).
		Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err), zap.String("query", validated), zap.Int64("page", page), zap.Int64("limit", limit))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = *model.toDomain()
	}

	return users, total, nil
}
