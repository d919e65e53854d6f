package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	domain "user-service/internal/domain/user"
	apperrors "user-service/pkg/errors"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, u *domain.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, query string, page, limit int64) ([]domain.User, int64, error) {
	args := m.Called(ctx, query, page, limit)
	return args.Get(0).([]domain.User), args.Get(1).(int64), args.Error(2)
}

func setupTestUsecase(t *testing.T) (*Service, *MockRepository) {
	mockRepo := new(MockRepository)
	logger := zaptest.NewLogger(t)
	uc := New(mockRepo, logger)
	return uc, mockRepo
}

// ==================== CREATE USER TESTS ====================

func TestCreateUser_Success(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := CreateUserRequest{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	}

	mockRepo.On("GetByEmail", ctx, req.Email).Return(nil, nil)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Name == req.Name && u.Email == req.Email && !u.CreatedAt.IsZero()
	})).Return(int64(1), nil).Once()

	resp, err := uc.CreateUser(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, req.Name, resp.Name)
	assert.Equal(t, req.Email, resp.Email)
	assert.False(t, resp.CreatedAt.IsZero())

	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestCreateUser_SetsCreationTimestamp(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(nil, nil)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.CreatedAt.Equal(fixed)
	})).Return(int64(7), nil)

	resp, err := uc.CreateUser(ctx, CreateUserRequest{Name: "Ada Lovelace", Email: "ada@example.com"})

	assert.NoError(t, err)
	assert.Equal(t, fixed, resp.CreatedAt)

	mockRepo.AssertExpectations(t)
}

func TestCreateUser_ValidationError_NameRequired(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := CreateUserRequest{
		Name:  "",
		Email: "ada@example.com",
	}

	resp, err := uc.CreateUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "Name is required")

	// Validation failures must never reach the repository
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestCreateUser_ValidationError_EmailRequired(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := CreateUserRequest{
		Name:  "Ada Lovelace",
		Email: "",
	}

	resp, err := uc.CreateUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "Email is required")

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateUser_ValidationError_EmailInvalid(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := CreateUserRequest{
		Name:  "Ada Lovelace",
		Email: "invalid-email",
	}

	resp, err := uc.CreateUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "Email must be a valid email")

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateUser_WhitespaceOnlyName(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	resp, err := uc.CreateUser(ctx, CreateUserRequest{
		Name:  "   ",
		Email: "ada@example.com",
	})

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "Name is required")

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	// A whitespace-only name must never be persisted
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestCreateUser_WhitespaceOnlyEmail(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	resp, err := uc.CreateUser(ctx, CreateUserRequest{
		Name:  "Ada Lovelace",
		Email: "\t  \n",
	})

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "Email is required")

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestCreateUser_TrimsSurroundingWhitespace(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(nil, nil)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Name == "Ada Lovelace" && u.Email == "ada@example.com"
	})).Return(int64(1), nil).Once()

	resp, err := uc.CreateUser(ctx, CreateUserRequest{
		Name:  "  Ada Lovelace  ",
		Email: "  ada@example.com  ",
	})

	assert.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", resp.Name)
	assert.Equal(t, "ada@example.com", resp.Email)

	mockRepo.AssertExpectations(t)
}

func TestCreateUser_ValidationError_MultipleErrors(t *testing.T) {
	uc, _ := setupTestUsecase(t)
	ctx := context.Background()

	req := CreateUserRequest{
		Name:  "Al",      // Too short
		Email: "invalid", // Invalid email
	}

	resp, err := uc.CreateUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "Name must be at least 3 characters")
	assert.Contains(t, err.Error(), "Email must be a valid email")
}

func TestCreateUser_EmailAlreadyExists(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := CreateUserRequest{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	}

	existingUser := &domain.User{ID: 2, Name: "Existing User", Email: "ada@example.com"}

	mockRepo.On("GetByEmail", ctx, req.Email).Return(existingUser, nil)

	resp, err := uc.CreateUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "already exists")

	var alreadyExists *apperrors.AlreadyExistsError
	assert.ErrorAs(t, err, &alreadyExists)

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestCreateUser_UniquenessCheckFails(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "ada@example.com").Return(nil, errors.New("db down"))

	resp, err := uc.CreateUser(ctx, CreateUserRequest{Name: "Ada Lovelace", Email: "ada@example.com"})

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "failed to validate email uniqueness")

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ==================== UPDATE USER TESTS ====================

func TestUpdateUser_Success(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := UpdateUserRequest{
		ID:    1,
		Name:  "Ada Updated",
		Email: "ada.updated@example.com",
	}

	existing := &domain.User{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"}

	mockRepo.On("GetByID", ctx, req.ID).Return(existing, nil)
	mockRepo.On("GetByEmail", ctx, req.Email).Return(nil, nil)
	mockRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID == req.ID && u.Name == req.Name && u.Email == req.Email
	})).Return(int64(1), nil)

	resp, err := uc.UpdateUser(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, int64(1), resp.ID)

	mockRepo.AssertExpectations(t)
}

func TestUpdateUser_NotFound(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := UpdateUserRequest{ID: 42, Name: "Ada Updated"}

	mockRepo.On("GetByID", ctx, req.ID).Return(nil, nil)

	resp, err := uc.UpdateUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)

	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateUser_PartialUpdate_NameOnly(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := UpdateUserRequest{
		ID:   1,
		Name: "Ada Updated",
		// Email empty - stored email must remain untouched
	}

	existing := &domain.User{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"}

	mockRepo.On("GetByID", ctx, req.ID).Return(existing, nil)
	mockRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID == req.ID && u.Name == req.Name && u.Email == "ada@example.com"
	})).Return(int64(1), nil)

	resp, err := uc.UpdateUser(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, "ada@example.com", resp.Email)

	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestUpdateUser_PartialUpdate_EmailOnly(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := UpdateUserRequest{
		ID:    1,
		Email: "ada.new@example.com",
	}

	existing := &domain.User{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"}

	mockRepo.On("GetByID", ctx, req.ID).Return(existing, nil)
	mockRepo.On("GetByEmail", ctx, req.Email).Return(nil, nil)
	mockRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID == req.ID && u.Name == "Ada Lovelace" && u.Email == req.Email
	})).Return(int64(1), nil)

	resp, err := uc.UpdateUser(ctx, req)

	assert.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", resp.Name)

	mockRepo.AssertExpectations(t)
}

func TestUpdateUser_WhitespaceOnlyName_KeepsStoredValue(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	existing := &domain.User{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"}

	mockRepo.On("GetByID", ctx, int64(1)).Return(existing, nil)
	mockRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Name == "Ada Lovelace" && u.Email == "ada@example.com"
	})).Return(int64(1), nil)

	resp, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 1, Name: "   "})

	assert.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", resp.Name)

	mockRepo.AssertExpectations(t)
}

func TestUpdateUser_ValidationError_EmailInvalid(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := UpdateUserRequest{
		ID:    1,
		Name:  "Ada Lovelace",
		Email: "invalid-email",
	}

	resp, err := uc.UpdateUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "Email must be a valid email")

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateUser_EmailAlreadyExists(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := UpdateUserRequest{
		ID:    1,
		Name:  "Ada Updated",
		Email: "taken@example.com",
	}

	existing := &domain.User{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"}
	other := &domain.User{ID: 2, Name: "Other User", Email: "taken@example.com"}

	mockRepo.On("GetByID", ctx, req.ID).Return(existing, nil)
	mockRepo.On("GetByEmail", ctx, req.Email).Return(other, nil)

	resp, err := uc.UpdateUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "already exists")

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

// ==================== DELETE USER TESTS ====================

func TestDeleteUser_Success(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := DeleteUserRequest{ID: 1}

	mockRepo.On("Exists", ctx, req.ID).Return(true, nil)
	mockRepo.On("Delete", ctx, req.ID).Return(int64(1), nil)

	resp, err := uc.DeleteUser(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, int64(1), resp.ID)

	mockRepo.AssertExpectations(t)
}

func TestDeleteUser_InvalidID(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := DeleteUserRequest{ID: 0}

	resp, err := uc.DeleteUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "invalid user id")

	mockRepo.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteUser_NotFound(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := DeleteUserRequest{ID: 42}

	mockRepo.On("Exists", ctx, req.ID).Return(false, nil)

	resp, err := uc.DeleteUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)

	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	// Delete must never run for a missing id
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

// ==================== GET USER TESTS ====================

func TestGetUser_Success(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	req := GetUserRequest{ID: 1}
	expectedUser := &domain.User{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com", CreatedAt: created}

	mockRepo.On("GetByID", ctx, req.ID).Return(expectedUser, nil)

	resp, err := uc.GetUser(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, expectedUser.ID, resp.ID)
	assert.Equal(t, expectedUser.Name, resp.Name)
	assert.Equal(t, expectedUser.Email, resp.Email)
	assert.Equal(t, created, resp.CreatedAt)

	mockRepo.AssertExpectations(t)
}

func TestGetUser_InvalidID(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := GetUserRequest{ID: 0}

	resp, err := uc.GetUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "invalid user id")

	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetUser_NotFound(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := GetUserRequest{ID: 42}

	mockRepo.On("GetByID", ctx, req.ID).Return(nil, nil)

	resp, err := uc.GetUser(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, resp)

	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

// ==================== USER EXISTS TESTS ====================

func TestUserExists_True(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	mockRepo.On("Exists", ctx, int64(1)).Return(true, nil)

	resp, err := uc.UserExists(ctx, UserExistsRequest{ID: 1})

	assert.NoError(t, err)
	assert.True(t, resp.Exists)

	mockRepo.AssertExpectations(t)
}

func TestUserExists_False(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	mockRepo.On("Exists", ctx, int64(42)).Return(false, nil)

	resp, err := uc.UserExists(ctx, UserExistsRequest{ID: 42})

	assert.NoError(t, err)
	assert.False(t, resp.Exists)
}

func TestUserExists_InvalidID(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	resp, err := uc.UserExists(ctx, UserExistsRequest{ID: -1})

	assert.Error(t, err)
	assert.Nil(t, resp)

	mockRepo.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

// ==================== LIST USERS TESTS ====================

func TestListUsers_Success(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	req := ListUsersRequest{
		Query: "ada",
		Page:  1,
		Limit: 10,
	}

	expectedUsers := []domain.User{
		{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"},
		{ID: 2, Name: "Ada Smith", Email: "smith@example.com"},
	}

	mockRepo.On("List", ctx, req.Query, req.Page, req.Limit).Return(expectedUsers, int64(2), nil)

	resp, err := uc.ListUsers(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Len(t, resp.Users, 2)
	assert.Equal(t, expectedUsers[0].ID, resp.Users[0].ID)
	assert.Equal(t, expectedUsers[0].Name, resp.Users[0].Name)
	assert.Equal(t, expectedUsers[0].Email, resp.Users[0].Email)
	assert.Equal(t, int64(2), resp.Pagination.Total)
	assert.Equal(t, int64(1), resp.Pagination.TotalPages)

	mockRepo.AssertExpectations(t)
}

func TestListUsers_DefaultsAppliedToPageAndLimit(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	mockRepo.On("List", ctx, "", int64(1), int64(10)).Return([]domain.User{}, int64(0), nil)

	resp, err := uc.ListUsers(ctx, ListUsersRequest{Page: 0, Limit: 0})

	assert.NoError(t, err)
	assert.Empty(t, resp.Users)

	mockRepo.AssertExpectations(t)
}

func TestListUsers_RejectedQueryReturnsValidationError(t *testing.T) {
	uc, mockRepo := setupTestUsecase(t)
	ctx := context.Background()

	repoErr := apperrors.NewValidationError("query", "invalid search query: search query contains invalid characters")
	mockRepo.On("List", ctx, "1 union select", int64(1), int64(10)).
		Return([]domain.User{}, int64(0), repoErr)

	resp, err := uc.ListUsers(ctx, ListUsersRequest{Query: "1 union select", Page: 1, Limit: 10})

	assert.Error(t, err)
	assert.Nil(t, resp)

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	mockRepo.AssertExpectations(t)
}

// ==================== VALIDATION HELPER TESTS ====================

func TestFormatValidationError(t *testing.T) {
	validate := validator.New()

	type TestStruct struct {
		Name  string `validate:"required,min=3"`
		Email string `validate:"required,email"`
	}

	err := validate.Struct(&TestStruct{})
	formatted := formatValidationError(err)

	assert.Error(t, formatted)
	assert.Contains(t, formatted.Error(), "validation failed")
	assert.Contains(t, formatted.Error(), "Name is required")
	assert.Contains(t, formatted.Error(), "Email is required")

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, formatted, &validationErr)
}

func TestFormatValidationError_NonValidationError(t *testing.T) {
	originalErr := errors.New("some other error")
	formatted := formatValidationError(originalErr)

	assert.Equal(t, originalErr, formatted)
}
