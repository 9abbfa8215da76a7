package ports

import (
	"context"

	"github.com/avatarctic/catalog-service/internal/core/domain/product"
)

// ProductRepository is the durable source of truth for products.
// Missing rows are reported as product.ErrNotFound.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]*product.Product, error)
	FindByID(ctx context.Context, id string) (*product.Product, error)
	// Create inserts p and returns the canonical row with its generated id.
	Create(ctx context.Context, p *product.Product) (*product.Product, error)
	// Update applies the set fields of req and returns the re-read canonical row.
	Update(ctx context.Context, id string, req *product.UpdateProductRequest) (*product.Product, error)
	Delete(ctx context.Context, id string) error
}

// ProductService defines the cache-aside catalog operations
type ProductService interface {
	FindAll(ctx context.Context) ([]*product.Product, error)
	FindOne(ctx context.Context, id string) (*product.Product, error)
	Create(ctx context.Context, req *product.CreateProductRequest) (*product.Product, error)
	Update(ctx context.Context, id string, req *product.UpdateProductRequest) (*product.Product, error)
	Remove(ctx context.Context, id string) error
}

// CatalogObserver receives cache and publish outcomes for metrics.
type CatalogObserver interface {
	CacheHit(family string)
	CacheMiss(family string)
	CacheError(op string)
	PublishResult(accepted bool)
}
