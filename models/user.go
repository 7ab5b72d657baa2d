package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account linked to a Google identity.
type User struct {
	ID        uuid.UUID `json:"id" bson:"_id" gorm:"type:uuid;primaryKey"`
	GoogleID  string    `json:"-" bson:"google_id" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" bson:"email" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name" bson:"name"`
	Avatar    string    `json:"avatar,omitempty" bson:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at" gorm:"not null"`
	LastLogin time.Time `json:"lastLogin" bson:"last_login" gorm:"not null"`
}

// UserProfile is the part of a user that is safe to hand to the storefront.
type UserProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:     u.ID.String(),
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
	}
}

// IdentityClaims are the verified claims extracted from a provider ID token.
type IdentityClaims struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// SessionClaims is the identity carried by a session token.
type SessionClaims struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}
