package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resumeiq/internal/models"
)

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func newTestLimiter(counter WindowCounter, limits RateLimits, now time.Time) *rateLimiter {
	l := NewRateLimiter(counter, limits, nil).(*rateLimiter)
	l.now = func() time.Time { return now }
	return l
}

func TestRateLimiter_PerUser(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 15, 0, time.UTC)
	l := newTestLimiter(NewMemoryCounter(), RateLimits{UserRPM: 3, GlobalRPM: 100, SafetyMargin: 5}, now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Allow(ctx, "alice"))
	}

	err := l.Allow(ctx, "alice")
	var rateErr *models.RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, "user", rateErr.Scope)
	assert.Equal(t, 45*time.Second, rateErr.RetryAfter)
	assert.Equal(t, "rate_limited", models.ErrorKind(err))

	assert.NoError(t, l.Allow(ctx, "bob"))

	// A new minute opens a new window.
	l.now = func() time.Time { return now.Add(time.Minute) }
	assert.NoError(t, l.Allow(ctx, "alice"))
}

func TestRateLimiter_GlobalWithSafetyMargin(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(NewMemoryCounter(), RateLimits{UserRPM: 10, GlobalRPM: 8, SafetyMargin: 5}, now)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "a"))
	require.NoError(t, l.Allow(ctx, "b"))
	require.NoError(t, l.Allow(ctx, "c"))

	err := l.Allow(ctx, "d")
	var rateErr *models.RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, "global", rateErr.Scope)
}

func TestRateLimiter_CounterFailureAllows(t *testing.T) {
	l := newTestLimiter(failingCounter{}, RateLimits{UserRPM: 0, GlobalRPM: 0}, time.Now())
	assert.NoError(t, l.Allow(context.Background(), "alice"))
}

func TestMemoryCounter_Incr(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	n, err := c.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
