package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authservice/internal/model"
)

// AuthProviderRepository persists links between external identities and users.
type AuthProviderRepository interface {
	Create(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error
	// FindUser returns the user linked to (provider, providerUserID) or gorm.ErrRecordNotFound.
	FindUser(ctx context.Context, provider, providerUserID string) (*model.User, error)
}

type authProviderRepository struct {
	db *gorm.DB
}

// NewAuthProviderRepository builds a GORM-backed provider link repository.
func NewAuthProviderRepository(db *gorm.DB) AuthProviderRepository {
	return &authProviderRepository{db: db}
}

func (r *authProviderRepository) Create(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error {
	link := &model.AuthProvider{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
	}
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *authProviderRepository) FindUser(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN auth_providers ap ON ap.user_id = users.id").
		Where("ap.provider = ? AND ap.provider_user_id = ?", provider, providerUserID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
