package model

import (
	"time"

	"github.com/google/uuid"
)

// Known identity providers.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// AuthProvider links an external identity (provider + provider-issued id) to a local user.
type AuthProvider struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:char(36);not null;index"`
	Provider       string    `json:"provider" gorm:"size:50;not null;uniqueIndex:idx_provider_identity"`
	ProviderUserID string    `json:"provider_user_id" gorm:"size:191;not null;uniqueIndex:idx_provider_identity"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName keeps the link table name stable across drivers.
func (AuthProvider) TableName() string {
	return "auth_providers"
}
