package product

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cache keys shared by every catalog reader and writer.
const (
	AllProductsKey   = "all_products"
	productKeyPrefix = "product_"
)

// priceScale is the number of decimal places a stored price keeps.
const priceScale int32 = 2

// CacheKey returns the single-record cache key for id.
func CacheKey(id string) string {
	return productKeyPrefix + id
}

type Product struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	SKU         string          `json:"sku" db:"sku"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// CreateProductRequest represents the request to create a new product
type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"` // initial stock, announced to inventory
}

// UpdateProductRequest represents a partial update. Nil fields are left untouched.
type UpdateProductRequest struct {
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	SKU           *string          `json:"sku,omitempty"`
	QuantityDelta *int             `json:"quantity_delta,omitempty"`
}

// HasFieldChanges reports whether the request touches any stored column.
func (r *UpdateProductRequest) HasFieldChanges() bool {
	return r.Name != nil || r.Description != nil || r.Price != nil || r.SKU != nil
}

// InventoryDelta returns the stock change carried by the request, 0 when none.
func (r *UpdateProductRequest) InventoryDelta() int {
	if r.QuantityDelta == nil {
		return 0
	}
	return *r.QuantityDelta
}

// Normalize computes the stored form of a product before it is written.
func Normalize(p *Product) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.SKU = normalizeSKU(p.SKU)
	p.Price = p.Price.Round(priceScale)
}

// NormalizeUpdate applies the same transformation to the set fields of a patch.
func NormalizeUpdate(req *UpdateProductRequest) {
	if req.Name != nil {
		v := strings.TrimSpace(*req.Name)
		req.Name = &v
	}
	if req.Description != nil {
		v := strings.TrimSpace(*req.Description)
		req.Description = &v
	}
	if req.SKU != nil {
		v := normalizeSKU(*req.SKU)
		req.SKU = &v
	}
	if req.Price != nil {
		v := req.Price.Round(priceScale)
		req.Price = &v
	}
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
