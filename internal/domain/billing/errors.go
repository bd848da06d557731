package billing

import "errors"

var (
	// ErrNotBillable is returned when invoice generation is requested for
	// a contract that has not been released, was cancelled, or has no
	// payment schedule.
	ErrNotBillable = errors.New("contract is not billable")

	// ErrScheduleExhausted is returned when the next due date falls past
	// the end of the contract's validity window.
	ErrScheduleExhausted = errors.New("billing schedule exhausted")
)
