package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// Cache is the Redis read-through cache for product reads. It never backs a stock check.
type Cache struct {
	Redis redis.Cmdable
	TTL   time.Duration
}

func (c *Cache) ttl() time.Duration {
	if c.TTL <= 0 {
		return redisx.TTLProductCache
	}
	return c.TTL
}

// GetProduct reports ok=false on a cache miss.
func (c *Cache) GetProduct(ctx context.Context, id string) (Product, bool, error) {
	var p Product
	ok, err := c.get(ctx, fmt.Sprintf(redisx.KeyProduct, id), &p)
	return p, ok, err
}

func (c *Cache) SetProduct(ctx context.Context, p Product) error {
	return c.set(ctx, fmt.Sprintf(redisx.KeyProduct, p.ID), p)
}

func (c *Cache) GetProducts(ctx context.Context) ([]Product, bool, error) {
	var ps []Product
	ok, err := c.get(ctx, redisx.KeyProductList, &ps)
	return ps, ok, err
}

func (c *Cache) SetProducts(ctx context.Context, ps []Product) error {
	return c.set(ctx, redisx.KeyProductList, ps)
}

// InvalidateProducts drops the given product entries and the cached listing.
func (c *Cache) InvalidateProducts(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf(redisx.KeyProduct, id))
	}
	keys = append(keys, redisx.KeyProductList)
	return c.Redis.Del(ctx, keys...).Err()
}

func (c *Cache) get(ctx context.Context, key string, out any) (bool, error) {
	b, err := c.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, key, b, c.ttl()).Err()
}
