package exchange

import (
	"errors"
	"fmt"
)

// Venue rejections the strategy must tell apart from transient failures.
var (
	// ErrInsufficientFunds means the venue rejected an order for lack of balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidOrder means the amount or price violates the venue's trading
	// rules, usually a sign of stale limits metadata.
	ErrInvalidOrder = errors.New("invalid order parameters")
)

// TransientError wraps network, timeout and rate-limit failures. Nothing
// retries these within a cycle; the next cycle re-attempts naturally.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transient venue or network failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
