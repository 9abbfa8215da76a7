package product

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the requested id is absent from the durable store.
	ErrNotFound = errors.New("product not found")
	// ErrValidation marks malformed input rejected before reaching the catalog.
	ErrValidation = errors.New("invalid product")
	// ErrWriteFailed wraps a durable-store write failure; callers may retry.
	ErrWriteFailed = errors.New("product write failed")
	// ErrPoolExhausted means no database connection became free within the acquisition timeout.
	ErrPoolExhausted = errors.New("database connection pool exhausted")
)

// ErrDuplicateSKU is a write failure caused by the sku uniqueness constraint.
var ErrDuplicateSKU = fmt.Errorf("%w: sku already exists", ErrWriteFailed)
