package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/safar/go-order-store/internal/database"
	"github.com/safar/go-order-store/internal/models"
	"github.com/safar/go-order-store/internal/order"
)

// CreateOrder persists the order and all of its line items in one
// transaction. The passed order's server-assigned fields (timestamps,
// version) are filled in on success.
func CreateOrder(ctx context.Context, db *sql.DB, o *models.Order) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (id, customer_id, order_number, status, total_amount, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
			 RETURNING created_at, updated_at, version`,
			o.ID, o.CustomerID, o.OrderNumber, o.Status, o.TotalAmount).Scan(
			&o.CreatedAt,
			&o.UpdatedAt,
			&o.Version,
		)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for i := range o.Items {
			item := &o.Items[i]
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_line_items (id, order_id, product_id, quantity, unit_price, subtotal, position, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
				 RETURNING created_at`,
				item.ID, o.ID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal, item.Position).Scan(
				&item.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("create order line item: %w", err)
			}
		}

		return nil
	})
}

func SetOrderStatus(ctx context.Context, db *sql.DB, orderID, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2`,
		status, orderID)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", order.ErrOrderNotFound, orderID)
	}

	return nil
}

func GetOrder(ctx context.Context, db *sql.DB, id string) (*models.Order, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}

	o := &models.Order{}

	query := `
		SELECT id, customer_id, order_number, status, total_amount, created_at, updated_at, version
		FROM orders
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&o.ID,
		&o.CustomerID,
		&o.OrderNumber,
		&o.Status,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, unit_price, subtotal, position, created_at
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY position`

	rows, err := db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get order line items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderLineItem
	for rows.Next() {
		var item models.OrderLineItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.Position,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order line item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	o.Items = items

	return o, nil
}

func ListOrdersByCustomerCursor(ctx context.Context, db *sql.DB, customerID, cursor string, limit int) (*CursorPage, error) {
	if uuid.Validate(customerID) != nil {
		return nil, fmt.Errorf("%w: %s", order.ErrCustomerNotFound, customerID)
	}

	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, customer_id, order_number, status, total_amount, created_at, updated_at, version
		FROM orders
		WHERE customer_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, customerID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.ID,
			&o.CustomerID,
			&o.OrderNumber,
			&o.Status,
			&o.TotalAmount,
			&o.CreatedAt,
			&o.UpdatedAt,
			&o.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
