package httpserver

import (
	"fmt"

	"github.com/avatarctic/catalog-service/internal/core/domain/product"
)

// requestValidator routes echo's c.Validate to the product rules.
type requestValidator struct{}

func (v *requestValidator) Validate(i interface{}) error {
	switch req := i.(type) {
	case *product.CreateProductRequest:
		return product.ValidateCreate(req)
	case *product.UpdateProductRequest:
		return product.ValidateUpdate(req)
	default:
		return fmt.Errorf("no validation rules for %T", i)
	}
}
