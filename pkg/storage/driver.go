// Package storage
package storage

import (
	"context"
	"time"
)

// User is a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore defines the interface for persisting accounts in a storage
// backend.
type UserStore interface {
	// CreateUser inserts a new user. Emails are unique; inserting a
	// duplicate returns ErrDuplicateEmail.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByEmail retrieves a user by email, or ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the stored password hash for a user.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Count returns the number of registered users.
	Count(ctx context.Context) (int, error)

	// Close closes the store and releases any resources.
	Close() error
}
