// Package inmemory provides a map-backed user store for tests and throwaway
// deployments. Contents are lost on process exit.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/modelgate/pkg/storage"
)

// UserStore implements storage.UserStore in memory.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*storage.User
	byEmail map[string]*storage.User
}

// NewUserStore creates an empty in-memory store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]*storage.User),
		byEmail: make(map[string]*storage.User),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return storage.ErrDuplicateEmail
	}

	u := *user
	s.byID[u.ID] = &u
	s.byEmail[u.Email] = &u
	return nil
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *UserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *UserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *UserStore) Close() error {
	return nil
}
