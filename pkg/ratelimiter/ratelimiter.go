package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"anoa.com/shuttleapi/pkg/apperror"
	"github.com/redis/go-redis/v9"
)

// RateLimitError is returned when an action is still cooling down.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimitExceeded
}

func key(subject, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", subject, action)
}

// CheckAndSetRateLimit reports whether subject may perform action now and, if so,
// starts a cooldown of the given length. A nil client allows everything.
func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, subject, action string, limit time.Duration) (bool, error) {
	if rdb == nil || limit <= 0 {
		return true, nil
	}

	wasSet, err := rdb.SetNX(ctx, key(subject, action), "locked", limit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func GetRateLimitTTL(ctx context.Context, rdb *redis.Client, subject, action string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.TTL(ctx, key(subject, action)).Result()
}

func ClearRateLimit(ctx context.Context, rdb *redis.Client, subject, action string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, key(subject, action)).Err()
}
