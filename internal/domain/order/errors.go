package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("service order not found")
	ErrEntryNotFound     = errors.New("checklist entry not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")

	// ErrOrderClosed rejects checklist edits on a completed order.
	ErrOrderClosed = errors.New("service order already completed")

	// ErrChecklistIncomplete blocks completion while mandatory checklist
	// lines remain open.
	ErrChecklistIncomplete = errors.New("mandatory checklist incomplete")
)

// ChecklistIncompleteError carries the open mandatory lines so callers
// can show the technician exactly what is missing.
type ChecklistIncompleteError struct {
	OrderID int64
	Pending []string
}

func (e *ChecklistIncompleteError) Error() string {
	return fmt.Sprintf("order %d: %d mandatory checklist items pending", e.OrderID, len(e.Pending))
}

func (e *ChecklistIncompleteError) Unwrap() error { return ErrChecklistIncomplete }

// TransitionError reports a rejected status change.
type TransitionError struct {
	OrderID int64
	From    Status
	To      Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %d: cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
