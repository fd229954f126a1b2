package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RouteCache memoizes JSON read models under route:<tag>:<key>.
// Revalidating a tag drops every key filed under it.
type RouteCache struct {
	kv         KV
	defaultTTL time.Duration
	logger     *zap.Logger
}

func NewRouteCache(kv KV, defaultTTL time.Duration, logger *zap.Logger) *RouteCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteCache{kv: kv, defaultTTL: defaultTTL, logger: logger}
}

func routeKey(tag, key string) string {
	return "route:" + tag + ":" + key
}

// Remember decodes a cached payload into out, or calls load, caches its
// result and decodes that into out. Cache errors are logged and bypassed.
func (c *RouteCache) Remember(ctx context.Context, tag, key string, ttl time.Duration, out any, load func(ctx context.Context) (any, error)) error {
	k := routeKey(tag, key)
	raw, err := c.kv.Get(ctx, k)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal([]byte(raw), out); jsonErr == nil {
			return nil
		}
		c.logger.Warn("route cache entry corrupt", zap.String("key", k))
	case !errors.Is(err, ErrMiss):
		c.logger.Warn("route cache read failed", zap.String("key", k), zap.Error(err))
	}

	v, err := load(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", k, err)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.kv.Set(ctx, k, string(b), ttl); err != nil {
		c.logger.Warn("route cache write failed", zap.String("key", k), zap.Error(err))
	}
	return json.Unmarshal(b, out)
}

// Revalidate drops every cached entry under the given tags.
func (c *RouteCache) Revalidate(ctx context.Context, tags ...string) {
	for _, tag := range tags {
		keys, err := c.kv.ScanKeys(ctx, routeKey(tag, "*"))
		if err != nil {
			c.logger.Warn("route cache scan failed", zap.String("tag", tag), zap.Error(err))
			continue
		}
		if err := c.kv.Delete(ctx, keys...); err != nil {
			c.logger.Warn("route cache revalidate failed", zap.String("tag", tag), zap.Error(err))
			continue
		}
		c.logger.Debug("route cache revalidated", zap.String("tag", tag), zap.Int("keys", len(keys)))
	}
}
