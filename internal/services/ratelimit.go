package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/pkg/logger"
)

// WindowCounter increments a fixed-window counter, setting its expiry on the
// first hit of the window.
type WindowCounter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) WindowCounter {
	return &redisCounter{client: client}
}

func (c *redisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("failed to set expiry on %s: %w", key, err)
		}
	}
	return count, nil
}

type memoryCounter struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryCounter keeps windows in process memory. Counts are not shared
// between server instances.
func NewMemoryCounter() WindowCounter {
	return &memoryCounter{cache: cache.New(time.Minute, 2*time.Minute)}
}

func (c *memoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.cache.Add(key, int64(1), ttl); err == nil {
		return 1, nil
	}
	count, err := c.cache.IncrementInt64(key, 1)
	if err != nil {
		// Expired between Add and Increment.
		c.cache.Set(key, int64(1), ttl)
		return 1, nil
	}
	return count, nil
}

type RateLimits struct {
	UserRPM      int
	GlobalRPM    int
	SafetyMargin int
}

// RateLimiter enforces per-client and global requests-per-minute limits.
type RateLimiter interface {
	Allow(ctx context.Context, clientID string) error
}

type rateLimiter struct {
	counter WindowCounter
	limits  RateLimits
	log     logger.Logger
	now     func() time.Time
}

func NewRateLimiter(counter WindowCounter, limits RateLimits, log logger.Logger) RateLimiter {
	if log == nil {
		log = logger.NewNop()
	}
	return &rateLimiter{
		counter: counter,
		limits:  limits,
		log:     log,
		now:     time.Now,
	}
}

// Allow counts one request for clientID in the current minute window. It
// returns a *models.RateLimitError once either limit is exceeded. Counter
// failures are logged and the request is let through.
func (l *rateLimiter) Allow(ctx context.Context, clientID string) error {
	if clientID == "" {
		clientID = "anonymous"
	}

	now := l.now().Unix()
	window := now / 60
	ttl := time.Duration(60-now%60) * time.Second

	userKey := fmt.Sprintf("rl:user:%s:%d", clientID, window)
	userCount, err := l.counter.Incr(ctx, userKey, ttl)
	if err != nil {
		l.log.Warn("ratelimit", "Rate limit counter unavailable", map[string]any{"error": err.Error()})
		return nil
	}
	if userCount > int64(l.limits.UserRPM) {
		return &models.RateLimitError{
			Scope:      "user",
			Message:    "Too many requests. Please wait and try again.",
			RetryAfter: ttl,
		}
	}

	globalKey := fmt.Sprintf("rl:global:%d", window)
	globalCount, err := l.counter.Incr(ctx, globalKey, ttl)
	if err != nil {
		l.log.Warn("ratelimit", "Rate limit counter unavailable", map[string]any{"error": err.Error()})
		return nil
	}
	if globalCount > int64(l.limits.GlobalRPM-l.limits.SafetyMargin) {
		return &models.RateLimitError{
			Scope:      "global",
			Message:    "Service busy. Please try again shortly.",
			RetryAfter: ttl,
		}
	}

	return nil
}
