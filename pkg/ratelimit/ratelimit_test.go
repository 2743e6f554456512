package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "contact:1.2.3.4", 2, time.Minute))
	assert.True(t, l.Allow(ctx, "contact:1.2.3.4", 2, time.Minute))
	assert.False(t, l.Allow(ctx, "contact:1.2.3.4", 2, time.Minute))
	assert.True(t, l.Allow(ctx, "contact:5.6.7.8", 2, time.Minute))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow(ctx, "contact:1.2.3.4", 2, time.Minute))
}

func TestRedisLimiterFailsOpenWithoutClient(t *testing.T) {
	var l *RedisLimiter
	assert.True(t, l.Allow(context.Background(), "k", 1, time.Second))
	assert.True(t, NewRedisLimiter(nil, "").Allow(context.Background(), "k", 1, time.Second))
}
