package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// QuotaCache stores resolved per-user quotas in Redis. Usage is never cached
// here: admission always reads it fresh.
type QuotaCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQuotaCache(client *redis.Client, ttl time.Duration) *QuotaCache {
	return &QuotaCache{client: client, ttl: ttl}
}

// NewRedisClient parses url, applies timeouts and pings the server. A
// negative db keeps the database index given in url.
func NewRedisClient(ctx context.Context, url, password string, db int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	if db >= 0 {
		opts.DB = db
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func quotaKey(userID uuid.UUID) string {
	return fmt.Sprintf("quota:%s", userID)
}

// Get reports whether a quota is cached for the user.
func (c *QuotaCache) Get(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	val, err := c.client.Get(ctx, quotaKey(userID)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	} else if err != nil {
		return 0, false, fmt.Errorf("redis get failed: %w", err)
	}
	return val, true, nil
}

func (c *QuotaCache) Set(ctx context.Context, userID uuid.UUID, quotaBytes int64) error {
	return c.client.Set(ctx, quotaKey(userID), quotaBytes, c.ttl).Err()
}
