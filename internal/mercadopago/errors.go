package mercadopago

import (
	"fmt"
)

// ProviderError is a non-success or unreadable answer from the API. Body
// holds the raw response for logging; it is never shown to buyers.
type ProviderError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mercadopago: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("mercadopago: unexpected status %d", e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NetworkError means the request never produced a response, including calls
// refused by the open circuit breaker.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("mercadopago: request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
