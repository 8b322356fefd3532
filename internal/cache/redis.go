package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"remindly/internal/config"
	"remindly/pkg/logger"
)

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client (initialized on first use).
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err, "url", cfg.RedisURL)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		client = redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			return
		}
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

func listKey(userID string) string {
	return "reminders:user:" + userID
}

// GetRawList reads a user's cached reminder list as raw JSON bytes.
// Returns (nil, false) on miss or error.
func GetRawList(ctx context.Context, userID string) ([]byte, bool) {
	c := Client(ctx)
	if c == nil {
		return nil, false
	}
	b, err := c.Get(ctx, listKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get reminders failed", "error", err)
		return nil, false
	}
	return b, true
}

// SetRawList writes a user's reminder list to Redis with the configured TTL.
func SetRawList(ctx context.Context, userID string, b []byte) {
	c := Client(ctx)
	if c == nil {
		return
	}
	ttl := time.Duration(config.Get().CacheTTL) * time.Second
	if err := c.Set(ctx, listKey(userID), b, ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set reminders failed", "error", err)
	}
}

// SetRawListAsync fills the cache off the request path.
func SetRawListAsync(userID string, b []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	SetRawList(ctx, userID, b)
}

// Invalidate drops a user's cached list so the next read goes to the database.
// Called by the worker after every mutation.
func Invalidate(ctx context.Context, userID string) {
	c := Client(ctx)
	if c == nil {
		return
	}
	if err := c.Del(ctx, listKey(userID)).Err(); err != nil {
		logger.Debug(ctx, "Redis invalidate reminders failed", "error", err)
	}
}
