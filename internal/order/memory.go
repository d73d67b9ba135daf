package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/go-order-store/internal/models"
)

// MemoryStore implements every port against in-process maps. It backs
// the unit tests and local runs without a database. A single mutex
// makes each operation atomic, including the batch decrement.
type MemoryStore struct {
	mu        sync.Mutex
	customers map[string]models.Customer
	products  map[string]models.Product
	orders    map[string]models.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: make(map[string]models.Customer),
		products:  make(map[string]models.Product),
		orders:    make(map[string]models.Order),
	}
}

func (m *MemoryStore) AddCustomer(name, email string) models.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	c := models.Customer{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	m.customers[c.ID] = c
	return c
}

func (m *MemoryStore) AddProduct(name string, price decimal.Decimal, stock int) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	p := models.Product{
		ID:            uuid.NewString(),
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
	m.products[p.ID] = p
	return p
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryStore) FindAllByID(ctx context.Context, ids []string) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var products []models.Product
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := m.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProduct, id)
	}
	return &p, nil
}

func (m *MemoryStore) SetProductPrice(id string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.products[id]; ok {
		p.Price = price
		p.UpdatedAt = time.Now()
		p.Version++
		m.products[id] = p
	}
}

func (m *MemoryStore) Decrement(ctx context.Context, productID string, amount int) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.decrementLocked(productID, amount)
}

func (m *MemoryStore) DecrementAll(ctx context.Context, decrements []StockDecrement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check the cumulative effect of the whole batch before touching
	// anything, so the batch applies all-or-nothing.
	totals := make(map[string]int, len(decrements))
	for _, d := range decrements {
		totals[d.ProductID] += d.Amount
	}
	for id, total := range totals {
		p, ok := m.products[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrInvalidProduct, id)
		}
		if p.StockQuantity < total {
			return fmt.Errorf("%w: product %s has %d, requested %d",
				ErrInsufficientStock, id, p.StockQuantity, total)
		}
	}

	for _, d := range decrements {
		if _, err := m.decrementLocked(d.ProductID, d.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) decrementLocked(productID string, amount int) (*models.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProduct, productID)
	}
	if p.StockQuantity < amount {
		return nil, fmt.Errorf("%w: product %s has %d, requested %d",
			ErrInsufficientStock, productID, p.StockQuantity, amount)
	}

	p.StockQuantity -= amount
	p.UpdatedAt = time.Now()
	m.products[productID] = p
	return &p, nil
}

func (m *MemoryStore) Create(ctx context.Context, o *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Version = 1
	for i := range o.Items {
		o.Items[i].CreatedAt = now
	}

	stored := *o
	stored.Items = make([]models.OrderLineItem, len(o.Items))
	copy(stored.Items, o.Items)
	m.orders[o.ID] = stored
	return nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, orderID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	o.Version++
	m.orders[orderID] = o
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	out := o
	out.Items = make([]models.OrderLineItem, len(o.Items))
	copy(out.Items, o.Items)
	return &out, nil
}

func (m *MemoryStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *MemoryStore) Orders() []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out
}
