// Package redistore provides a Redis-backed CredentialStore for
// multi-process deployments that share one user base.
//
// # Key layout
//
//   - acu:<id>     — user record hash
//   - ace:<email>  — normalized-e-mail index mapping to the user id
//
// Uniqueness is enforced by SETNX on the e-mail index; the token version is
// advanced atomically with HINCRBY.
package redistore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	authcore "github.com/studyportal/authcore"
)

// ErrRedisUnavailable wraps Redis infrastructure failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	fieldEmail        = "email"
	fieldName         = "name"
	fieldPasswordHash = "password_hash"
	fieldRole         = "role"
	fieldIsActive     = "is_active"
	fieldTokenVersion = "token_version"
	fieldLastLoginAt  = "last_login_at"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

// Store is a Redis-backed credential store. Safe for concurrent use.
type Store struct {
	redis redis.UniversalClient
	clock func() time.Time
}

// New returns a Store backed by the given Redis client.
func New(client redis.UniversalClient) *Store {
	return &Store{
		redis: client,
		clock: time.Now,
	}
}

// WithClock overrides the timestamp source. Test-oriented.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func userKey(id string) string     { return "acu:" + id }
func emailKey(email string) string { return "ace:" + email }

func (s *Store) GetUserByEmail(ctx context.Context, email string) (authcore.UserRecord, error) {
	id, err := s.redis.Get(ctx, emailKey(authcore.NormalizeEmail(email))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return authcore.UserRecord{}, authcore.ErrUserNotFound
		}
		return authcore.UserRecord{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (authcore.UserRecord, error) {
	fields, err := s.redis.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return authcore.UserRecord{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return decodeUser(id, fields)
}

func (s *Store) CreateUser(ctx context.Context, input authcore.CreateUserInput) (authcore.UserRecord, error) {
	email := authcore.NormalizeEmail(input.Email)
	id := uuid.NewString()

	// SETNX on the e-mail index is the uniqueness gate: losers of a
	// concurrent create race observe created=false and never write a
	// record.
	created, err := s.redis.SetNX(ctx, emailKey(email), id, 0).Result()
	if err != nil {
		return authcore.UserRecord{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !created {
		return authcore.UserRecord{}, authcore.ErrAccountExists
	}

	now := s.clock()
	user := authcore.UserRecord{
		ID:           id,
		Email:        email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		IsActive:     input.IsActive,
		TokenVersion: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.redis.HSet(ctx, userKey(id), encodeUser(user)).Err(); err != nil {
		// Roll back the index so the e-mail is not burned by a half write.
		_ = s.redis.Del(ctx, emailKey(email)).Err()
		return authcore.UserRecord{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return user, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.setFields(ctx, id, map[string]interface{}{
		fieldLastLoginAt: at.UTC().Format(time.RFC3339Nano),
	})
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) (authcore.UserRecord, error) {
	if err := s.setFields(ctx, id, map[string]interface{}{
		fieldPasswordHash: hash,
	}); err != nil {
		return authcore.UserRecord{}, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) (authcore.UserRecord, error) {
	if err := s.setFields(ctx, id, map[string]interface{}{
		fieldIsActive: strconv.FormatBool(active),
	}); err != nil {
		return authcore.UserRecord{}, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) BumpTokenVersion(ctx context.Context, id string) (uint32, error) {
	exists, err := s.redis.Exists(ctx, userKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if exists == 0 {
		return 0, authcore.ErrUserNotFound
	}

	version, err := s.redis.HIncrBy(ctx, userKey(id), fieldTokenVersion, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	_ = s.touch(ctx, id)
	return uint32(version), nil
}

func (s *Store) setFields(ctx context.Context, id string, fields map[string]interface{}) error {
	exists, err := s.redis.Exists(ctx, userKey(id)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if exists == 0 {
		return authcore.ErrUserNotFound
	}

	fields[fieldUpdatedAt] = s.clock().UTC().Format(time.RFC3339Nano)
	if err := s.redis.HSet(ctx, userKey(id), fields).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) touch(ctx context.Context, id string) error {
	return s.redis.HSet(ctx, userKey(id),
		fieldUpdatedAt, s.clock().UTC().Format(time.RFC3339Nano)).Err()
}

func encodeUser(user authcore.UserRecord) map[string]interface{} {
	fields := map[string]interface{}{
		fieldEmail:        user.Email,
		fieldName:         user.Name,
		fieldPasswordHash: user.PasswordHash,
		fieldRole:         string(user.Role),
		fieldIsActive:     strconv.FormatBool(user.IsActive),
		fieldTokenVersion: strconv.FormatUint(uint64(user.TokenVersion), 10),
		fieldCreatedAt:    user.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt:    user.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if !user.LastLoginAt.IsZero() {
		fields[fieldLastLoginAt] = user.LastLoginAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func decodeUser(id string, fields map[string]string) (authcore.UserRecord, error) {
	role, err := authcore.ParseRole(fields[fieldRole])
	if err != nil {
		return authcore.UserRecord{}, fmt.Errorf("corrupt user record %s: %w", id, err)
	}

	version, err := strconv.ParseUint(fields[fieldTokenVersion], 10, 32)
	if err != nil {
		return authcore.UserRecord{}, fmt.Errorf("corrupt user record %s: bad token version", id)
	}

	user := authcore.UserRecord{
		ID:           id,
		Email:        fields[fieldEmail],
		Name:         fields[fieldName],
		PasswordHash: fields[fieldPasswordHash],
		Role:         role,
		IsActive:     fields[fieldIsActive] == "true",
		TokenVersion: uint32(version),
	}

	if v := fields[fieldLastLoginAt]; v != "" {
		if user.LastLoginAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return authcore.UserRecord{}, fmt.Errorf("corrupt user record %s: bad last login", id)
		}
	}
	if v := fields[fieldCreatedAt]; v != "" {
		if user.CreatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return authcore.UserRecord{}, fmt.Errorf("corrupt user record %s: bad created at", id)
		}
	}
	if v := fields[fieldUpdatedAt]; v != "" {
		if user.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return authcore.UserRecord{}, fmt.Errorf("corrupt user record %s: bad updated at", id)
		}
	}

	return user, nil
}
