package exchange

import (
	"errors"
	"fmt"
)

// FetchError marks a transient I/O failure while reading venue state.
// Retryable with backoff at the adapter boundary.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// OrderError marks a venue-level order rejection (insufficient balance,
// precision mismatch, unknown symbol). Never retried: the market has moved.
type OrderError struct {
	Symbol string
	Reason string
	Err    error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order %s: %s: %v", e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("order %s: %s", e.Symbol, e.Reason)
}

func (e *OrderError) Unwrap() error { return e.Err }

func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func IsOrderError(err error) bool {
	var oe *OrderError
	return errors.As(err, &oe)
}
