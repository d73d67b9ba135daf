package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMemoryLedger_ConcurrentDecrement(t *testing.T) {
	mem := NewMemoryStore()
	p := mem.AddProduct("Product 1", decimal.RequireFromString("10.00"), 100)

	ctx := context.Background()
	concurrency := 50
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mem.Decrement(ctx, p.ID, 3)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else if !errors.Is(err, ErrInsufficientStock) {
			t.Errorf("Unexpected error: %v", err)
		}
	}

	final, err := mem.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}

	expected := 100 - successCount*3
	if final.StockQuantity != expected {
		t.Errorf("Expected stock %d, got %d", expected, final.StockQuantity)
	}
	if final.StockQuantity < 0 {
		t.Errorf("Stock must never be negative, got %d", final.StockQuantity)
	}
}

func TestMemoryLedger_DecrementUnknownProduct(t *testing.T) {
	mem := NewMemoryStore()

	_, err := mem.Decrement(context.Background(), "b5a2e1ce-64fd-45ac-a07e-17e1c9f3c0c4", 1)
	if !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("Expected invalid product, got: %v", err)
	}
}

func TestMemoryLedger_DecrementAllIsAtomic(t *testing.T) {
	mem := NewMemoryStore()
	p1 := mem.AddProduct("Product 1", decimal.RequireFromString("10.00"), 5)
	p2 := mem.AddProduct("Product 2", decimal.RequireFromString("4.50"), 1)

	err := mem.DecrementAll(context.Background(), []StockDecrement{
		{ProductID: p1.ID, Amount: 2},
		{ProductID: p2.ID, Amount: 3},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected insufficient stock, got: %v", err)
	}

	ctx := context.Background()
	got1, _ := mem.GetProduct(ctx, p1.ID)
	got2, _ := mem.GetProduct(ctx, p2.ID)
	if got1.StockQuantity != 5 || got2.StockQuantity != 1 {
		t.Errorf("Failed batch must leave no partial decrement: got %d and %d",
			got1.StockQuantity, got2.StockQuantity)
	}
}

func TestMemoryLedger_DecrementAllSumsDuplicates(t *testing.T) {
	mem := NewMemoryStore()
	p := mem.AddProduct("Product 1", decimal.RequireFromString("10.00"), 3)

	err := mem.DecrementAll(context.Background(), []StockDecrement{
		{ProductID: p.ID, Amount: 2},
		{ProductID: p.ID, Amount: 2},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected insufficient stock for the cumulative amount, got: %v", err)
	}

	got, _ := mem.GetProduct(context.Background(), p.ID)
	if got.StockQuantity != 3 {
		t.Errorf("Expected stock unchanged at 3, got %d", got.StockQuantity)
	}
}
