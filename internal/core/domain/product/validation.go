package product

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	maxNameLength = 255
	maxSKULength  = 64
)

// maxPrice is the largest value a NUMERIC(12,2) column holds.
var maxPrice = decimal.RequireFromString("9999999999.99")

// ValidateCreate checks a create request. It is run by the request handler, not the catalog.
func ValidateCreate(req *CreateProductRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrValidation)
	}
	if err := validateName(req.Name); err != nil {
		return err
	}
	if err := validateSKU(req.SKU); err != nil {
		return err
	}
	return validatePrice(req.Price)
}

// ValidateUpdate checks the set fields of a patch and rejects an empty patch.
func ValidateUpdate(req *UpdateProductRequest) error {
	if req == nil || (!req.HasFieldChanges() && req.QuantityDelta == nil) {
		return fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return err
		}
	}
	if req.SKU != nil {
		if err := validateSKU(*req.SKU); err != nil {
			return err
		}
	}
	if req.Price != nil {
		return validatePrice(*req.Price)
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, maxNameLength)
	}
	return nil
}

func validateSKU(sku string) error {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return fmt.Errorf("%w: sku is required", ErrValidation)
	}
	if len(sku) > maxSKULength {
		return fmt.Errorf("%w: sku exceeds %d characters", ErrValidation, maxSKULength)
	}
	return nil
}

// validatePrice checks the value that will be stored, after rounding to cents.
func validatePrice(price decimal.Decimal) error {
	stored := price.Round(priceScale)
	if !stored.IsPositive() {
		return fmt.Errorf("%w: price must be at least 0.01", ErrValidation)
	}
	if stored.GreaterThan(maxPrice) {
		return fmt.Errorf("%w: price exceeds %s", ErrValidation, maxPrice.StringFixed(priceScale))
	}
	return nil
}
