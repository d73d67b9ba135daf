package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/safar/go-order-store/internal/database"
	"github.com/safar/go-order-store/internal/models"
	"github.com/safar/go-order-store/internal/order"
)

var ErrDuplicateProductName = errors.New("product name already exists")

var ErrStaleProductVersion = errors.New("product version is stale")

func CreateProduct(ctx context.Context, db *sql.DB, name string, price decimal.Decimal, stock int) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (id, name, price, stock_quantity, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
		RETURNING id, name, price, stock_quantity, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, uuid.NewString(), name, price, stock).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProductName, name)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id string) (*models.Product, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", order.ErrInvalidProduct, id)
	}

	product := &models.Product{}

	query := `
		SELECT id, name, price, stock_quantity, created_at, updated_at, version
		FROM products
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", order.ErrInvalidProduct, id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func FindProductByName(ctx context.Context, db *sql.DB, name string) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, name, price, stock_quantity, created_at, updated_at, version
		FROM products
		WHERE name = $1`

	err := db.QueryRowContext(ctx, query, name).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find product by name: %w", err)
	}

	return product, nil
}

// FindAllProductsByID returns the products whose ids exist; unknown or
// malformed ids are silently omitted. Callers that need completeness
// must compare the result against the requested set.
func FindAllProductsByID(ctx context.Context, db *sql.DB, ids []string) ([]models.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if uuid.Validate(id) == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, price, stock_quantity, created_at, updated_at, version
		FROM products
		WHERE id = ANY($1)`

	rows, err := db.QueryContext(ctx, query, pq.Array(valid))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Price,
			&product.StockQuantity,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// DecrementStock applies a conditional decrement: the stock check and
// the write are one UPDATE, so no interleaving of concurrent
// decrements can drive stock_quantity negative. Zero rows affected
// means either the product is missing or the stock is short; an
// existence check in the same transaction tells the two apart.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID string, quantity int) (*models.Product, error) {
	if uuid.Validate(productID) != nil {
		return nil, fmt.Errorf("%w: %s", order.ErrInvalidProduct, productID)
	}

	product := &models.Product{}

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND stock_quantity >= $1
		RETURNING id, name, price, stock_quantity, created_at, updated_at, version`

	err := tx.QueryRowContext(ctx, query, quantity, productID).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err == nil {
		return product, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}

	var exists bool
	err = tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)",
		productID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check product exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", order.ErrInvalidProduct, productID)
	}
	return nil, fmt.Errorf("%w: product %s", order.ErrInsufficientStock, productID)
}

// RestockProduct sets the absolute stock level for catalog maintenance,
// guarded by the version column so concurrent corrections conflict
// instead of overwriting each other. Never used by order placement.
func RestockProduct(ctx context.Context, db *sql.DB, productID string, newStock, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		newStock, productID, version)
	if err != nil {
		return fmt.Errorf("restock product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrStaleProductVersion
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, name, price, stock_quantity, created_at, updated_at, version
		FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Price,
			&product.StockQuantity,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}
