package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FrancoVillarLaz/notifications-service/internal/domain/template"
)

var _ template.Cache = (*RedisTemplateCache)(nil)

// RedisTemplateCache caches template lookups in Redis, keyed by
// (code, locale), with TTL expiry. There is no explicit invalidation;
// stale reads within the TTL are an accepted trade-off for lookup latency.
type RedisTemplateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTemplateCache creates a Redis-backed template cache.
func NewRedisTemplateCache(redisAddr, password string, db int, ttl time.Duration) *RedisTemplateCache {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &RedisTemplateCache{client: client, ttl: ttl}
}

func cacheKey(code, locale string) string {
	return fmt.Sprintf("notifications:tmpl:%s:%s", locale, code)
}

// Get returns the cached template for (code, locale), if present. Cache
// errors degrade to a miss.
func (c *RedisTemplateCache) Get(ctx context.Context, code, locale string) (*template.Template, bool) {
	data, err := c.client.Get(ctx, cacheKey(code, locale)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("template cache read failed", "code", code, "error", err)
		}
		return nil, false
	}

	var tmpl template.Template
	if err := json.Unmarshal(data, &tmpl); err != nil {
		slog.Warn("template cache entry corrupt, dropping", "code", code, "error", err)
		_ = c.client.Del(ctx, cacheKey(code, locale)).Err()
		return nil, false
	}

	return &tmpl, true
}

// Set stores a template under (code, locale) with the configured TTL.
// Cache errors are logged, not surfaced; the store remains authoritative.
func (c *RedisTemplateCache) Set(ctx context.Context, code, locale string, tmpl *template.Template) {
	data, err := json.Marshal(tmpl)
	if err != nil {
		slog.Warn("template cache marshal failed", "code", code, "error", err)
		return
	}

	if err := c.client.Set(ctx, cacheKey(code, locale), data, c.ttl).Err(); err != nil {
		slog.Warn("template cache write failed", "code", code, "error", err)
	}
}

// Close closes the Redis connection.
func (c *RedisTemplateCache) Close() error {
	return c.client.Close()
}
