package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultProductCacheTTL = 10 * time.Minute

// ProductCache is a read-through Redis cache in front of the product
// catalog. Redis failures degrade to reading the catalog directly.
type ProductCache struct {
	rdb     goredis.Cmdable
	catalog domain.ProductLookup
	ttl     time.Duration
	metrics *metrics.LookupMetrics
}

var _ domain.ProductLookup = (*ProductCache)(nil)

func NewProductCache(rdb goredis.Cmdable, catalog domain.ProductLookup, ttl time.Duration, m *metrics.LookupMetrics) *ProductCache {
	if ttl <= 0 {
		ttl = DefaultProductCacheTTL
	}
	return &ProductCache{rdb: rdb, catalog: catalog, ttl: ttl, metrics: m}
}

func (c *ProductCache) GetProduct(ctx context.Context, ref string) (domain.ProductDetails, error) {
	if product, ok := c.getCached(ctx, ref); ok {
		c.metrics.CacheHits.WithLabelValues("redis").Inc()
		return product, nil
	}
	c.metrics.CacheMisses.WithLabelValues("redis").Inc()

	product, err := c.catalog.GetProduct(ctx, ref)
	if err != nil {
		return domain.ProductDetails{}, err
	}

	c.writeCache(ctx, ref, product)
	return product, nil
}

// Invalidate drops ref from Redis, e.g. after a price or stock change.
func (c *ProductCache) Invalidate(ctx context.Context, ref string) error {
	if err := c.rdb.Del(ctx, productCacheKey(ref)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate product cache: %w", err)
	}
	return nil
}

func (c *ProductCache) getCached(ctx context.Context, ref string) (domain.ProductDetails, bool) {
	data, err := c.rdb.Get(ctx, productCacheKey(ref)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "Redis product cache GET failed", "ref", ref, "error", err)
		}
		return domain.ProductDetails{}, false
	}

	var product domain.ProductDetails
	if err := json.Unmarshal(data, &product); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached product", "ref", ref, "error", err)
		return domain.ProductDetails{}, false
	}
	return product, true
}

func (c *ProductCache) writeCache(ctx context.Context, ref string, product domain.ProductDetails) {
	encoded, err := json.Marshal(product)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal product for Redis cache", "ref", ref, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, productCacheKey(ref), encoded, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to populate Redis product cache", "ref", ref, "error", err)
	}
}

func productCacheKey(ref string) string {
	return "product_cache:" + ref
}
