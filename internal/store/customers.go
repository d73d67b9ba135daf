package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/safar/go-order-store/internal/models"
	"github.com/safar/go-order-store/internal/order"
)

func CreateCustomer(ctx context.Context, db *sql.DB, name, email string) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		INSERT INTO customers (id, name, email, created_at, updated_at, version)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		RETURNING id, name, email, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, uuid.NewString(), name, email).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.CreatedAt,
		&customer.UpdatedAt,
		&customer.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	return customer, nil
}

func GetCustomer(ctx context.Context, db *sql.DB, id string) (*models.Customer, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", order.ErrCustomerNotFound, id)
	}

	customer := &models.Customer{}

	query := `
		SELECT id, name, email, created_at, updated_at, version
		FROM customers
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.CreatedAt,
		&customer.UpdatedAt,
		&customer.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", order.ErrCustomerNotFound, id)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return customer, nil
}

func ListCustomers(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, name, email, created_at, updated_at, version
		FROM customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var customer models.Customer
		err := rows.Scan(
			&customer.ID,
			&customer.Name,
			&customer.Email,
			&customer.CreatedAt,
			&customer.UpdatedAt,
			&customer.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(customers, total, page, pageSize), nil
}
