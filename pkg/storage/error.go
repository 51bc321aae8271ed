package storage

import "errors"

// ErrNotFound is returned when a user doesn't exist in the store.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when creating a user with an email that is
// already registered.
var ErrDuplicateEmail = errors.New("email already registered")
