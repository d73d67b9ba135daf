package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/safar/go-order-store/internal/models"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestProductCache_RoundTrip(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	c := NewProductCache(client, time.Minute)

	product := &models.Product{
		ID:            uuid.NewString(),
		Name:          "Keyboard",
		Price:         decimal.RequireFromString("49.90"),
		StockQuantity: 12,
	}

	if err := c.Set(ctx, product); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Expected cache hit")
	}
	if got.Name != product.Name {
		t.Errorf("Expected name %q, got %q", product.Name, got.Name)
	}
	if !got.Price.Equal(product.Price) {
		t.Errorf("Expected price %s, got %s", product.Price, got.Price)
	}
	if got.StockQuantity != product.StockQuantity {
		t.Errorf("Expected stock %d, got %d", product.StockQuantity, got.StockQuantity)
	}
}

func TestProductCache_Miss(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	c := NewProductCache(client, time.Minute)

	got, err := c.Get(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("Expected miss, got a product")
	}
}

func TestProductCache_Invalidate(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	c := NewProductCache(client, time.Minute)

	product := &models.Product{
		ID:    uuid.NewString(),
		Name:  "Mouse",
		Price: decimal.RequireFromString("19.90"),
	}

	if err := c.Set(ctx, product); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Invalidate(ctx, product.ID); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	got, err := c.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("Expected miss after invalidate")
	}
}
