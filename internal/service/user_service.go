package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authservice/internal/auth"
	apperrors "authservice/internal/errors"
	"authservice/internal/model"
	"authservice/internal/repository"
)

// UserService exposes profile operations on existing accounts.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, error)
}

type userService struct {
	repo   repository.UserRepository
	hasher *auth.PasswordHasher
}

// NewUserService builds a UserService over the user repository.
func NewUserService(repo repository.UserRepository, hasher *auth.PasswordHasher) UserService {
	return &userService{repo: repo, hasher: hasher}
}

// GetUser returns gorm.ErrRecordNotFound when the account does not exist.
func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *userService) UpdateName(ctx context.Context, id uuid.UUID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("Please provide a name to update")
	}

	user, err := s.repo.UpdateName(ctx, id, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserGone
		}
		return nil, fmt.Errorf("update name: %w", err)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

// EnsureAdmin makes sure an admin account exists for email. A missing account
// is created with the given password; an existing one is promoted and keeps
// its credentials.
func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			if err := s.repo.UpdateRole(ctx, existing.ID, model.RoleAdmin); err != nil {
				return nil, fmt.Errorf("promote admin: %w", err)
			}
			existing.Role = model.RoleAdmin
		}
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find admin: %w", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	admin := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: &digest,
		Role:         model.RoleAdmin,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}
