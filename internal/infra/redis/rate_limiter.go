package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter counts replies per key in windows aligned to the clock, so a
// counter whose TTL was never set still rolls over with the next window.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow reports whether one more hit fits in the current window. limit <= 0 disables the check.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	bucket := windowKey(key, r.now(), window)

	count, err := r.client.Incr(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, bucket, window); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// ContactKey scopes the limit to one contact of one WhatsApp account.
func ContactKey(accountID int64, contact string) string {
	return fmt.Sprintf("rate_limit:%d:%s", accountID, contact)
}

func windowKey(key string, at time.Time, window time.Duration) string {
	return fmt.Sprintf("%s:%d", key, at.UnixNano()/int64(window))
}
