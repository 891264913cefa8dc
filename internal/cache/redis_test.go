package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kjstillabower/weather-prediction-demo/internal/models"
)

// TestRedisCache_Unreachable verifies that connection failures are returned as errors, not misses.
func TestRedisCache_Unreachable(t *testing.T) {
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
	c.pingTimeout = 200 * time.Millisecond
	defer c.Close()

	ctx := context.Background()
	_, ok, err := c.Get(ctx, "condition:t=15")
	if err == nil {
		t.Fatal("Get() error = nil, want connection error")
	}
	if ok {
		t.Error("Get() ok = true on error")
	}
	if err := c.Set(ctx, "condition:t=15", models.Prediction{Kind: models.KindCondition}, time.Minute); err == nil {
		t.Error("Set() error = nil, want connection error")
	}
	if err := c.Ping(); err == nil {
		t.Error("Ping() error = nil, want connection error")
	}
}

func TestRedisCache_ImplementsInterfaces(t *testing.T) {
	var _ Cache = (*RedisCache)(nil)
	var _ Pinger = (*RedisCache)(nil)
	var _ Cache = (*MemcachedCache)(nil)
	var _ Pinger = (*MemcachedCache)(nil)
	var _ Cache = (*InMemoryCache)(nil)
}
