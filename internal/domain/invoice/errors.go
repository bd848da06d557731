package invoice

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("invoice not found")
	ErrInvoiceInactive     = errors.New("invoice is inactive")
	ErrInvoiceCancelled    = errors.New("invoice is cancelled")
	ErrOverpaymentRejected = errors.New("payment would exceed invoice total")
	ErrValidation          = errors.New("invalid payment data")
	ErrConflict            = errors.New("concurrent invoice update, retry")
)

// OverpaymentError carries the amounts involved so operators can resolve
// the excess by hand. It is a guard, never a silent clamp.
type OverpaymentError struct {
	InvoiceID int64
	Attempted decimal.Decimal
	Total     decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s would bring invoice %d over its total %s (tolerance %s)",
		e.Attempted.StringFixed(2), e.InvoiceID, e.Total.StringFixed(2), e.Tolerance.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpaymentRejected }
