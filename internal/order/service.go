package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/go-order-store/internal/models"
)

// Service places orders: it verifies the customer, assembles and prices
// the requested items, persists the order as pending, debits the stock
// ledger, and confirms the order.
//
// The order write and the stock debit are separate steps. If the batch
// decrement fails after the order was persisted (a concurrent order may
// have taken the stock between the assembler's snapshot and the debit),
// the order is marked cancelled and the ledger error is returned. An
// order is therefore never left silently under-decremented: confirmed
// means stock was debited, cancelled means it was not.
type Service struct {
	customers CustomerRepository
	assembler *Assembler
	ledger    StockLedger
	orders    OrderRepository
}

func NewService(customers CustomerRepository, catalog ProductCatalog, ledger StockLedger, orders OrderRepository) *Service {
	return &Service{
		customers: customers,
		assembler: NewAssembler(catalog),
		ledger:    ledger,
		orders:    orders,
	}
}

// generateOrderNumber derives the human-facing number from the order's
// uuid, so it is unique whenever the id is and cannot collide under
// concurrent placements the way a clock-based number could.
func generateOrderNumber(orderID string) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(orderID, "-", ""))
}

// PlaceOrder is not idempotent: two identical calls produce two orders
// and two debits.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, items []ItemRequest) (*models.Order, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
	}

	lines, err := s.assembler.Assemble(ctx, items)
	if err != nil {
		return nil, err
	}

	o := &models.Order{
		ID:         uuid.NewString(),
		CustomerID: customer.ID,
		Status:     models.OrderStatusPending,
	}
	o.OrderNumber = generateOrderNumber(o.ID)

	total := decimal.Zero
	for i := range lines {
		lines[i].ID = uuid.NewString()
		lines[i].OrderID = o.ID
		total = total.Add(lines[i].Subtotal)
	}
	o.TotalAmount = total
	o.Items = lines

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("%w: persist order %s: %w", ErrPersistence, o.ID, err)
	}

	decrements := make([]StockDecrement, 0, len(lines))
	for _, line := range lines {
		decrements = append(decrements, StockDecrement{ProductID: line.ProductID, Amount: line.Quantity})
	}

	if err := s.ledger.DecrementAll(ctx, decrements); err != nil {
		// Compensate: the order is already durable, so mark it
		// cancelled even if the caller's context is gone.
		cancelCtx := context.WithoutCancel(ctx)
		if cErr := s.orders.SetStatus(cancelCtx, o.ID, models.OrderStatusCancelled); cErr != nil {
			return nil, fmt.Errorf("cancel order %s failed: %v (original error: %w)", o.ID, cErr, err)
		}
		return nil, err
	}

	if err := s.orders.SetStatus(ctx, o.ID, models.OrderStatusConfirmed); err != nil {
		return nil, fmt.Errorf("%w: confirm order %s: %w", ErrPersistence, o.ID, err)
	}
	o.Status = models.OrderStatusConfirmed

	return o, nil
}
