package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safar/go-order-store/internal/models"
)

const productKeyPrefix = "product:"

// ProductCache is a read-through cache for catalog reads on the HTTP
// surface. It is never consulted by order placement: stock decisions
// always go to the database.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

// Get returns (nil, nil) on a cache miss.
func (c *ProductCache) Get(ctx context.Context, id string) (*models.Product, error) {
	data, err := c.client.Get(ctx, productKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &product, nil
}

func (c *ProductCache) Set(ctx context.Context, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.client.Set(ctx, productKeyPrefix+product.ID, data, c.ttl).Err()
}

func (c *ProductCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, productKeyPrefix+id).Err()
}
