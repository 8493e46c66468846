// Package cache fronts the product catalog with Redis. Cache failures are
// logged and fall through to the catalog; they never fail a settlement.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reseller-settlement/internal/domain/catalog"
)

const productKeyPrefix = "catalog:product:"

// Cmdable is the subset of the Redis client used by the cache
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

var _ Cmdable = (*redis.Client)(nil)

// ProductCache is a read-through cache in front of a catalog.Repository
type ProductCache struct {
	next   catalog.Repository
	client Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewProductCache wraps next with a Redis cache. A non-positive ttl disables caching.
func NewProductCache(logger *slog.Logger, next catalog.Repository, client Cmdable, ttl time.Duration) catalog.Repository {
	if ttl <= 0 || client == nil {
		return next
	}
	return &ProductCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *ProductCache) GetByCode(ctx context.Context, code string) (*catalog.Product, error) {
	key := productKeyPrefix + code

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var product catalog.Product
		if err := json.Unmarshal(raw, &product); err == nil {
			return &product, nil
		}
		c.logger.Warn("Discarding undecodable cached product", "code", code)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Product cache read failed", "code", code, "error", err)
	}

	product, err := c.next.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(product)
	if err != nil {
		c.logger.Warn("Failed to encode product for cache", "code", code, "error", err)
		return product, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Product cache write failed", "code", code, "error", err)
	}

	return product, nil
}
