package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory UserStorage used when no DATABASE_URL is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]*User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
	}
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(user), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(user), nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return ErrEmailAlreadyExists
	}

	stored := copyUser(user)
	s.byID[stored.ID] = stored
	s.byEmail[stored.Email] = stored
	return nil
}

func (s *MemoryStore) MarkUserVerified(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}

	now := time.Now().UTC()
	user.IsVerified = true
	user.VerifiedAt = &now
	return nil
}

func copyUser(u *User) *User {
	c := *u
	if u.VerifiedAt != nil {
		v := *u.VerifiedAt
		c.VerifiedAt = &v
	}
	return &c
}

var _ UserStorage = (*MemoryStore)(nil)
