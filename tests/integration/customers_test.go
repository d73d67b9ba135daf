package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/go-order-store/internal/order"
	"github.com/safar/go-order-store/internal/store"
)

func TestCreateAndGetCustomer(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	created, err := store.CreateCustomer(ctx, db, "Jordan Doe", "jordan@example.com")
	if err != nil {
		t.Fatalf("Create customer: %v", err)
	}
	if created.ID == "" {
		t.Error("Customer ID should not be empty")
	}

	got, err := store.GetCustomer(ctx, db, created.ID)
	if err != nil {
		t.Fatalf("Get customer: %v", err)
	}
	if got.Email != "jordan@example.com" {
		t.Errorf("Expected email jordan@example.com, got %s", got.Email)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.GetCustomer(context.Background(), db, "0191d47e-3a1c-4f5e-9f93-7ce1c74a6a42")
	if !errors.Is(err, order.ErrCustomerNotFound) {
		t.Errorf("Expected customer not found, got: %v", err)
	}

	_, err = store.GetCustomer(context.Background(), db, "garbage-id")
	if !errors.Is(err, order.ErrCustomerNotFound) {
		t.Errorf("Expected customer not found for malformed id, got: %v", err)
	}
}

func TestPostgresAdapter_FindByID_AbsentIsNil(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	pg := store.NewPostgres(db)

	customer, err := pg.FindByID(context.Background(), "92f8f3c7-38d7-41f7-8b53-54d87f1b40ae")
	if err != nil {
		t.Fatalf("FindByID should not error on absence: %v", err)
	}
	if customer != nil {
		t.Error("Expected nil customer for unknown id")
	}
}
