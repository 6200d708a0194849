package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of authorization roles a user may hold.
type Role string

const (
	// RoleRegular is assigned to every self-registered or provider-created account.
	RoleRegular Role = "regular"
	// RoleAdmin grants access to administrative endpoints.
	RoleAdmin Role = "admin"
)

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	return r == RoleRegular || r == RoleAdmin
}

// User represents an authenticated user in the system.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash *string   `json:"-" gorm:"size:255"` // nil for provider-only accounts
	Role         Role      `json:"role" gorm:"size:50;not null;default:'regular'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Providers []AuthProvider `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record and refuses roles
// outside the closed set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleRegular
	}
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role %q", u.Role)
	}
	return nil
}

// HasPassword reports whether the account can complete a credential login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
