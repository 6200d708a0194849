package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"authservice/internal/auth"
	apperrors "authservice/internal/errors"
	"authservice/internal/model"
)

func TestUserService_UpdateName(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name          string
		input         string
		setupMock     func(*MockUserRepository)
		expectedError error
		expectedName  string
	}{
		{
			name:  "trims and updates",
			input: "  Updated Name ",
			setupMock: func(m *MockUserRepository) {
				m.On("UpdateName", mock.Anything, userID, "Updated Name").
					Return(&model.User{ID: userID, Name: "Updated Name"}, nil)
			},
			expectedName: "Updated Name",
		},
		{
			name:      "blank name",
			input:     "   ",
			setupMock: func(m *MockUserRepository) {},
		},
		{
			name:  "user deleted",
			input: "Ghost",
			setupMock: func(m *MockUserRepository) {
				m.On("UpdateName", mock.Anything, userID, "Ghost").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrUserGone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			service := NewUserService(mockRepo, auth.NewPasswordHasher(bcrypt.MinCost))
			user, err := service.UpdateName(context.Background(), userID, tt.input)

			switch {
			case tt.expectedError != nil:
				assert.Same(t, tt.expectedError, err)
			case tt.expectedName == "":
				assert.Equal(t, 400, apperrors.StatusCode(err))
				assert.EqualError(t, err, "Please provide a name to update")
				mockRepo.AssertNotCalled(t, "UpdateName", mock.Anything, mock.Anything, mock.Anything)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expectedName, user.Name)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_GetUser(t *testing.T) {
	userID := uuid.New()
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, Name: "Test"}, nil)
	mockRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	service := NewUserService(mockRepo, auth.NewPasswordHasher(bcrypt.MinCost))

	user, err := service.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Test", user.Name)

	_, err = service.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	t.Run("creates missing admin", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByEmail", mock.Anything, "admin@example.com").Return(nil, gorm.ErrRecordNotFound)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Role == model.RoleAdmin && u.HasPassword() && u.Email == "admin@example.com"
		})).Return(nil)

		hasher := auth.NewPasswordHasher(bcrypt.MinCost)
		service := NewUserService(mockRepo, hasher)

		admin, err := service.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "adminpass123")
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, admin.Role)
		assert.True(t, hasher.Verify("adminpass123", *admin.PasswordHash))
		mockRepo.AssertExpectations(t)
	})

	t.Run("promotes existing account", func(t *testing.T) {
		existing := &model.User{ID: uuid.New(), Email: "admin@example.com", Role: model.RoleRegular}
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByEmail", mock.Anything, "admin@example.com").Return(existing, nil)
		mockRepo.On("UpdateRole", mock.Anything, existing.ID, model.RoleAdmin).Return(nil)

		service := NewUserService(mockRepo, auth.NewPasswordHasher(bcrypt.MinCost))

		admin, err := service.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "ignored-password")
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, admin.Role)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("already admin is a no-op", func(t *testing.T) {
		existing := &model.User{ID: uuid.New(), Email: "admin@example.com", Role: model.RoleAdmin}
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByEmail", mock.Anything, "admin@example.com").Return(existing, nil)

		service := NewUserService(mockRepo, auth.NewPasswordHasher(bcrypt.MinCost))

		_, err := service.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "whatever123")
		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
	})
}
