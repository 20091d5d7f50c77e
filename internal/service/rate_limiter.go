package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/spamdetect-backend/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimitDecision describes the outcome of a rate limit check
type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis, now: time.Now}
}

// Allow records a request for key using a sliding window log.
// Rejected requests are not recorded.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitDecision, error) {
	now := r.now()
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	windowStart := now.Add(-window).UnixMilli()

	err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "-inf", "("+strconv.FormatInt(windowStart, 10)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	decision := &RateLimitDecision{Limit: limit}

	if count >= int64(limit) {
		decision.RetryAfter = window
		oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestAt := time.UnixMilli(int64(oldest[0].Score))
			decision.RetryAfter = max(window-now.Sub(oldestAt), time.Second)
		}
		return decision, nil
	}

	err = r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.NewString(),
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to add entry: %w", err)
	}

	// Expiry is best effort; the window is trimmed on every call.
	_ = r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err()

	decision.Allowed = true
	decision.Remaining = max(limit-int(count)-1, 0)
	return decision, nil
}
