package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "user-service/internal/domain/user"
	apperrors "user-service/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, a caching decorator) to be used interchangeably.
// GetByID and GetByEmail return (nil, nil) when no user matches.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, query string, page, limit int64) ([]domain.User, int64, error)
}

// Service implements the Usecase interface. It validates caller input,
// enforces email uniqueness at creation, and delegates all persistence
// to the injected repository.
type Service struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// New creates a new Service with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log, validate: validator.New(), now: time.Now}
}

// formatValidationError converts validator.ValidationErrors into a human-readable error.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "email":
				messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
			}
		}
		return apperrors.NewValidationError("", strings.Join(messages, ", "))
	}
	return err
}

// CreateUser creates a new user after validating the request and checking email uniqueness.
// The lookup gives a friendly error for the common case; the unique index on
// email is what actually guarantees the invariant under concurrent creates.
func (uc *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error) {
	uc.log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	// Validate the trimmed values so whitespace-only input fails the
	// required check instead of being persisted verbatim.
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if err := uc.validate.Struct(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existingUser, err := uc.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		uc.log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existingUser != nil {
		uc.log.Warn("email already exists", zap.String("email", in.Email))
		return nil, apperrors.NewAlreadyExistsError("user", "user with email already exists: "+in.Email)
	}

	u := &domain.User{
		Name:      in.Name,
		Email:     in.Email,
		CreatedAt: uc.now().UTC(),
	}

	id, err := uc.repo.Create(ctx, u)
	if err != nil {
		uc.log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	return &CreateUserResponse{
		ID:        id,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}, nil
}

// UpdateUser applies a partial update to an existing user. Fields left empty
// in the request keep their stored value. An email change is re-checked for
// uniqueness against other users.
func (uc *Service) UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error) {
	uc.log.Info("updating user", zap.Int64("id", in.ID), zap.String("name", in.Name), zap.String("email", in.Email))

	// A whitespace-only field trims to empty and means "keep the stored value"
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if err := uc.validate.Struct(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existing, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		uc.log.Error("failed to load user for update", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}
	if existing == nil {
		uc.log.Warn("user not found for update", zap.Int64("id", in.ID))
		return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", in.ID))
	}

	if in.Email != "" && in.Email != existing.Email {
		other, err := uc.repo.GetByEmail(ctx, in.Email)
		if err != nil {
			uc.log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
			return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
		}
		if other != nil && other.ID != in.ID {
			uc.log.Warn("email already exists", zap.String("email", in.Email), zap.Int64("existing_id", other.ID))
			return nil, apperrors.NewAlreadyExistsError("user", "user with email already exists: "+in.Email)
		}
	}

	if in.Name != "" {
		existing.Name = in.Name
	}
	if in.Email != "" {
		existing.Email = in.Email
	}

	id, err := uc.repo.Update(ctx, existing)
	if err != nil {
		uc.log.Error("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return &UpdateUserResponse{
		ID:    id,
		Name:  existing.Name,
		Email: existing.Email,
	}, nil
}

// DeleteUser deletes a user after verifying it exists. The repository is
// never asked to delete an unknown id.
func (uc *Service) DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error) {
	uc.log.Info("deleting user", zap.Int64("id", in.ID))

	if in.ID <= 0 {
		uc.log.Warn("delete user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, apperrors.NewValidationError("id", "invalid user id")
	}

	exists, err := uc.repo.Exists(ctx, in.ID)
	if err != nil {
		uc.log.Error("failed to check user existence", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}
	if !exists {
		uc.log.Warn("user not found for delete", zap.Int64("id", in.ID))
		return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", in.ID))
	}

	id, err := uc.repo.Delete(ctx, in.ID)
	if err != nil {
		uc.log.Error("failed to delete user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return &DeleteUserResponse{ID: id}, nil
}

// GetUser retrieves a user by ID after validating the request.
func (uc *Service) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	if in.ID <= 0 {
		uc.log.Warn("get user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, apperrors.NewValidationError("id", "invalid user id")
	}

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		uc.log.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}
	if u == nil {
		return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", in.ID))
	}

	return &GetUserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}, nil
}

// UserExists reports whether a user with the given ID exists.
func (uc *Service) UserExists(ctx context.Context, in UserExistsRequest) (*UserExistsResponse, error) {
	if in.ID <= 0 {
		uc.log.Warn("user exists validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, apperrors.NewValidationError("id", "invalid user id")
	}

	exists, err := uc.repo.Exists(ctx, in.ID)
	if err != nil {
		uc.log.Error("failed to check user existence", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return &UserExistsResponse{Exists: exists}, nil
}

// ListUsers retrieves a paginated list of users with optional search functionality.
func (uc *Service) ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error) {
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Limit <= 0 {
		in.Limit = 10
	}
	if in.Limit > 100 {
		in.Limit = 100
	}

	uc.log.Info("listing users", zap.String("query", in.Query), zap.Int64("page", in.Page), zap.Int64("limit", in.Limit))

	domainUsers, total, err := uc.repo.List(ctx, in.Query, in.Page, in.Limit)
	if err != nil {
		var ve *apperrors.ValidationError
		if errors.As(err, &ve) {
			uc.log.Warn("invalid search query", zap.String("query", in.Query), zap.Error(err))
			return nil, err
		}
		uc.log.Error("failed to list users", zap.String("query", in.Query), zap.Int64("page", in.Page), zap.Int64("limit", in.Limit), zap.Error(err))
		return nil, err
	}

	users := make([]User, len(domainUsers))
	for i, du := range domainUsers {
		users[i] = User{
			ID:        du.ID,
			Name:      du.Name,
			Email:     du.Email,
			CreatedAt: du.CreatedAt,
		}
	}

	p := domain.NewPagination(total, in.Page, in.Limit)

	return &ListUsersResponse{
		Users: users,
		Pagination: &Pagination{
			Total:      p.Total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages,
		},
	}, nil
}
