// Package memstore provides an in-memory CredentialStore for tests,
// examples, and single-process deployments.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	authcore "github.com/studyportal/authcore"
)

// Store is a mutex-guarded map-backed credential store. The zero value is
// not usable; construct with [New].
type Store struct {
	mu      sync.RWMutex
	byID    map[string]authcore.UserRecord
	byEmail map[string]string
	clock   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:    make(map[string]authcore.UserRecord),
		byEmail: make(map[string]string),
		clock:   time.Now,
	}
}

// WithClock overrides the timestamp source. Test-oriented.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (authcore.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[authcore.NormalizeEmail(email)]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (authcore.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) CreateUser(_ context.Context, input authcore.CreateUserInput) (authcore.UserRecord, error) {
	email := authcore.NormalizeEmail(input.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return authcore.UserRecord{}, authcore.ErrAccountExists
	}

	now := s.clock()
	user := authcore.UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		IsActive:     input.IsActive,
		TokenVersion: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.byID[user.ID] = user
	s.byEmail[email] = user.ID
	return user, nil
}

func (s *Store) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return authcore.ErrUserNotFound
	}
	user.LastLoginAt = at
	user.UpdatedAt = s.clock()
	s.byID[id] = user
	return nil
}

func (s *Store) SetPasswordHash(_ context.Context, id, hash string) (authcore.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock()
	s.byID[id] = user
	return user, nil
}

func (s *Store) SetActive(_ context.Context, id string, active bool) (authcore.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	user.IsActive = active
	user.UpdatedAt = s.clock()
	s.byID[id] = user
	return user, nil
}

func (s *Store) BumpTokenVersion(_ context.Context, id string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return 0, authcore.ErrUserNotFound
	}
	user.TokenVersion++
	user.UpdatedAt = s.clock()
	s.byID[id] = user
	return user.TokenVersion, nil
}

// Put inserts or replaces a record verbatim. Test seeding helper.
func (s *Store) Put(user authcore.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[user.ID] = user
	s.byEmail[authcore.NormalizeEmail(user.Email)] = user.ID
}
