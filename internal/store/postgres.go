package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/safar/go-order-store/internal/database"
	"github.com/safar/go-order-store/internal/models"
	"github.com/safar/go-order-store/internal/order"
)

// Postgres adapts this package's store functions to the order ports,
// so the placement service stays ignorant of the storage engine.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	customer, err := GetCustomer(ctx, p.db, id)
	if errors.Is(err, order.ErrCustomerNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (p *Postgres) FindAllByID(ctx context.Context, ids []string) ([]models.Product, error) {
	return FindAllProductsByID(ctx, p.db, ids)
}

func (p *Postgres) Decrement(ctx context.Context, productID string, amount int) (*models.Product, error) {
	var product *models.Product
	err := database.WithRetry(ctx, p.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		product, err = DecrementStock(ctx, tx, productID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DecrementAll runs every decrement in one transaction: either all
// line items debit or none do. Rows are touched in sorted product-id
// order so two concurrent multi-product orders cannot deadlock.
func (p *Postgres) DecrementAll(ctx context.Context, decrements []order.StockDecrement) error {
	sorted := make([]order.StockDecrement, len(decrements))
	copy(sorted, decrements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})

	return database.WithRetry(ctx, p.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, d := range sorted {
			if _, err := DecrementStock(ctx, tx, d.ProductID, d.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Postgres) Create(ctx context.Context, o *models.Order) error {
	return CreateOrder(ctx, p.db, o)
}

func (p *Postgres) SetStatus(ctx context.Context, orderID, status string) error {
	return SetOrderStatus(ctx, p.db, orderID, status)
}
