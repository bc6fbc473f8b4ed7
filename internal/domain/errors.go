package domain

import "fmt"

// ValidationError blocks a checkout transition or submission. Field names the
// first offending input ("cart" for an empty cart).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ErrEmptyCart is the validation failure for a checkout without items.
var ErrEmptyCart = &ValidationError{
	Field:   "cart",
	Message: "your cart is empty, add a product before continuing",
}
