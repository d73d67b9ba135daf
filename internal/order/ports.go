package order

import (
	"context"

	"github.com/safar/go-order-store/internal/models"
)

// ItemRequest is one entry of a customer's order request. Entries are
// kept in request order and may repeat the same product id.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// StockDecrement names one product quantity to debit from the ledger.
type StockDecrement struct {
	ProductID string
	Amount    int
}

// CustomerRepository resolves customer ids. FindByID returns (nil, nil)
// when the customer does not exist; errors are reserved for lookup
// failures.
type CustomerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Customer, error)
}

// ProductCatalog resolves product ids to current price/stock records.
// FindAllByID may silently omit ids it does not know; callers must
// check the result against the requested set.
type ProductCatalog interface {
	FindAllByID(ctx context.Context, ids []string) ([]models.Product, error)
}

// StockLedger owns the authoritative quantity on hand. Decrement is
// conditional: the check and the write are one atomic unit, so
// concurrent decrements on the same product can never drive the
// quantity below zero. DecrementAll applies the whole batch or none
// of it.
type StockLedger interface {
	Decrement(ctx context.Context, productID string, amount int) (*models.Product, error)
	DecrementAll(ctx context.Context, decrements []StockDecrement) error
}

// OrderRepository persists orders together with their line items.
// Create is a single durable write; an order is never observable
// without its items.
type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	SetStatus(ctx context.Context, orderID, status string) error
}
