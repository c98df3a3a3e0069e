package domain

import (
	"errors"
	"time"
)

// Identity is the signed-in user as seen by the payment core.
type Identity struct {
	UserID string
	Email  string
}

// User is a registered account holder. HashedPassword is a bcrypt hash.
type User struct {
	ID             string
	Email          string
	Name           string
	HashedPassword string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Active         bool
}

// Identity returns the identity view of u.
func (u *User) Identity() *Identity {
	return &Identity{UserID: u.ID, Email: u.Email}
}

// Authentication errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)
