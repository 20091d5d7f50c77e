package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/spamdetect-backend/pkg/database"
	"github.com/redis/go-redis/v9"
)

// OAuthStateStore keeps pending OAuth2 state values in Redis
type OAuthStateStore struct {
	redis *database.Redis
}

// NewOAuthStateStore creates a new OAuth2 state store
func NewOAuthStateStore(redis *database.Redis) *OAuthStateStore {
	return &OAuthStateStore{redis: redis}
}

func stateKey(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

// Save remembers state until ttl elapses
func (s *OAuthStateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.redis.Client.Set(ctx, stateKey(state), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume deletes state and reports whether it was pending.
// A state can be consumed at most once.
func (s *OAuthStateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	err := s.redis.Client.GetDel(ctx, stateKey(state)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return true, nil
}
