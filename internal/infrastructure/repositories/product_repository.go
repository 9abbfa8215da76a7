package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/catalog-service/internal/core/domain/product"
	"github.com/avatarctic/catalog-service/internal/core/ports"
	"github.com/avatarctic/catalog-service/internal/infrastructure/db"
)

const productColumns = `id, name, description, price, sku, created_at, updated_at`

const uniqueViolation = "23505"

// ProductRepository implements ports.ProductRepository on PostgreSQL.
type ProductRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(database *db.Database, logger *logrus.Logger) ports.ProductRepository {
	return &ProductRepository{db: database, logger: logger}
}

// FindAll returns every product, newest first
func (r *ProductRepository) FindAll(ctx context.Context) ([]*product.Product, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	products := []*product.Product{}
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id`
	if err := conn.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a product by ID
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*product.Product, error) {
	// ids are UUIDs in storage; anything else cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", product.ErrNotFound, id)
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var p product.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if err := conn.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", product.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get product by ID: %w", err)
	}
	return &p, nil
}

// Create inserts a product and returns the stored row
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	row := *p
	product.Normalize(&row)

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var created product.Product
	query := `
		INSERT INTO products (name, description, price, sku)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + productColumns
	if err := conn.GetContext(ctx, &created, query, row.Name, row.Description, row.Price, row.SKU); err != nil {
		return nil, r.writeError("create", "", err)
	}
	return &created, nil
}

// Update applies the non-nil fields of req and returns the updated row
func (r *ProductRepository) Update(ctx context.Context, id string, req *product.UpdateProductRequest) (*product.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", product.ErrNotFound, id)
	}
	patch := *req
	product.NormalizeUpdate(&patch)

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var updated product.Product
	query := `
		UPDATE products
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    price = COALESCE($4, price),
		    sku = COALESCE($5, sku),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns
	err = conn.GetContext(ctx, &updated, query, id, patch.Name, patch.Description, patch.Price, patch.SKU)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", product.ErrNotFound, id)
		}
		return nil, r.writeError("update", id, err)
	}
	return &updated, nil
}

// Delete removes a product by ID
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", product.ErrNotFound, id)
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := conn.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return r.writeError("delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", product.ErrWriteFailed, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", product.ErrNotFound, id)
	}
	return nil
}

func (r *ProductRepository) writeError(op, id string, err error) error {
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"op": op, "id": id}).WithError(err).Error("product write failed")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w (%s)", product.ErrDuplicateSKU, pqErr.Detail)
	}
	return fmt.Errorf("%w: %s: %v", product.ErrWriteFailed, op, err)
}

var _ ports.ProductRepository = (*ProductRepository)(nil)
