// Package session maps opaque auth tokens to user IDs through a Redis
// cache with expiring keys
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/files-api/util"

	"github.com/redis/go-redis/v9"
)

// TTL is how long a token stays valid after creation. Lookups don't
// extend it, there's no sliding window
const TTL = 24 * time.Hour

const keyPrefix = "auth_"

// ErrNoSession means the token was never issued, expired or was
// revoked. A Redis outage is reported as a separate, wrapped error so
// callers never mistake an outage for bad credentials
var ErrNoSession = errors.New("session not found")

type Store struct {
	rdb redis.UniversalClient
}

func NewStore(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

// Create issues a new random token for the given user and stores the
// mapping with the fixed TTL
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	token, err := util.GenerateToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token, %w", err)
	}

	err = s.rdb.Set(ctx, keyPrefix+token, userID, TTL).Err()
	if err != nil {
		return "", fmt.Errorf("session store unavailable, %w", err)
	}

	return token, nil
}

// Resolve returns the user ID a token maps to, or ErrNoSession
func (s *Store) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.Get(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("session store unavailable, %w", err)
	}

	return userID, nil
}

// Revoke deletes a token. Revoking a token that doesn't exist is not
// an error
func (s *Store) Revoke(ctx context.Context, token string) error {
	err := s.rdb.Del(ctx, keyPrefix+token).Err()
	if err != nil {
		return fmt.Errorf("session store unavailable, %w", err)
	}

	return nil
}

// Alive reports whether the backing Redis connection is usable. Used
// by the status endpoint
func (s *Store) Alive(ctx context.Context) bool {
	return s.rdb.Ping(ctx).Err() == nil
}
