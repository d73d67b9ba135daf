package order

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/go-order-store/internal/models"
)

// Assembler turns a requested product list into priced line items using
// a single catalog snapshot. Its stock check is advisory: the ledger
// re-checks against live quantities when the order is placed.
type Assembler struct {
	catalog ProductCatalog
}

func NewAssembler(catalog ProductCatalog) *Assembler {
	return &Assembler{catalog: catalog}
}

// Assemble validates every request entry against one catalog read and
// produces line items in request order. Each entry is checked
// independently against the snapshot, so duplicate product ids are not
// summed here; the ledger enforces their cumulative effect.
func (a *Assembler) Assemble(ctx context.Context, items []ItemRequest) ([]models.OrderLineItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s requested %d", ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := a.catalog.FindAllByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	if len(byID) != len(ids) {
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrInvalidProduct, id)
			}
		}
	}

	lines := make([]models.OrderLineItem, 0, len(items))
	for i, item := range items {
		p := byID[item.ProductID]
		if p.StockQuantity < item.Quantity {
			return nil, fmt.Errorf("%w: product %s has %d, requested %d",
				ErrInsufficientStock, item.ProductID, p.StockQuantity, item.Quantity)
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		lines = append(lines, models.OrderLineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			Subtotal:  p.Price.Mul(qty),
			Position:  i,
		})
	}

	return lines, nil
}
