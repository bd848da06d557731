package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ispcrm/internal/domain/schedule"
)

// applyRetries bounds optimistic-conflict retries on a single invoice.
const applyRetries = 3

var oneHundred = decimal.NewFromInt(100)

// ReconcilerConfig is the reconciliation policy.
type ReconcilerConfig struct {
	// OverpaymentTolerance is how far accumulated payments may exceed the
	// invoice total before the payment is rejected.
	OverpaymentTolerance decimal.Decimal
}

// Reconciler matches payments against invoices and derives invoice status.
// Historical Payment rows are never mutated; corrections are compensating
// entries.
type Reconciler struct {
	repo    Repository
	cfg     ReconcilerConfig
	loggerf func(format string, args ...interface{})
}

func NewReconciler(repo Repository, cfg ReconcilerConfig, loggerf func(format string, args ...interface{})) *Reconciler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Reconciler{repo: repo, cfg: cfg, loggerf: loggerf}
}

// ApplyPayment appends a ledger entry and recomputes the invoice status.
// Negative amounts are compensating entries; the accumulated amount may
// never go below zero or above total plus the configured tolerance.
func (r *Reconciler) ApplyPayment(ctx context.Context, invoiceID int64, req *ApplyPaymentRequest, actor string) (*Invoice, *Payment, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsZero() {
		return nil, nil, ErrValidation
	}

	paidAt := time.Now().UTC()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}

	for attempt := 0; attempt < applyRetries; attempt++ {
		inv, err := r.repo.GetByID(ctx, invoiceID)
		if err != nil {
			return nil, nil, err
		}
		if !inv.Active {
			return nil, nil, ErrInvoiceInactive
		}
		if inv.Status == StatusCancelled {
			return nil, nil, ErrInvoiceCancelled
		}

		newPaid := inv.AmountPaid.Add(amount)
		if newPaid.IsNegative() {
			return nil, nil, ErrValidation
		}
		if newPaid.GreaterThan(inv.TotalAmount.Add(r.cfg.OverpaymentTolerance)) {
			return nil, nil, &OverpaymentError{
				InvoiceID: inv.ID,
				Attempted: amount,
				Total:     inv.TotalAmount,
				Tolerance: r.cfg.OverpaymentTolerance,
			}
		}

		p := &Payment{
			ID:          uuid.New().String(),
			InvoiceID:   inv.ID,
			Amount:      amount,
			PaidAt:      paidAt,
			Method:      req.Method,
			ExternalRef: req.ExternalRef,
			Notes:       req.Notes,
			RecordedBy:  actor,
			Active:      true,
		}

		applied, err := r.repo.AppendPayment(ctx, inv.ID, p, inv.AmountPaid, newPaid, inv.StatusFor(newPaid))
		if err != nil {
			return nil, nil, err
		}
		if applied {
			updated, err := r.repo.GetByID(ctx, inv.ID)
			if err != nil {
				return nil, nil, err
			}
			return updated, p, nil
		}
		r.loggerf("level=info msg=payment apply conflict, retrying invoice_id=%d attempt=%d", invoiceID, attempt+1)
	}
	return nil, nil, ErrConflict
}

// SweepOverdue transitions every active unpaid invoice past its due date
// to overdue and computes the late-payment penalty: remaining balance
// times the snapshotted percentage, once per whole elapsed billing
// period (simple, non-compounding accrual). The penalty is recomputed
// from the due date on every run, so re-execution after a crash yields
// the same figures instead of double-applying fees. Individual failures
// are logged and skipped.
func (r *Reconciler) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	invoices, err := r.repo.ListForOverdueSweep(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, inv := range invoices {
		fee := r.lateFee(inv, now)
		ok, err := r.repo.MarkOverdue(ctx, inv.ID, fee, now)
		if err != nil {
			r.loggerf("level=error msg=overdue sweep failed for invoice invoice_id=%d err=%v", inv.ID, err)
			continue
		}
		if ok {
			swept++
		}
	}
	return swept, nil
}

func (r *Reconciler) lateFee(inv *Invoice, now time.Time) decimal.Decimal {
	periods := schedule.ElapsedPeriods(inv.DueDate, now, inv.Frequency)
	if periods == 0 || inv.LateFeePercent.IsZero() {
		return decimal.Zero
	}
	return inv.Outstanding().
		Mul(inv.LateFeePercent).
		Div(oneHundred).
		Mul(decimal.NewFromInt(int64(periods))).
		Round(2)
}

// CancelInvoice cancels an unpaid invoice. Paid invoices stay paid.
func (r *Reconciler) CancelInvoice(ctx context.Context, id int64) (*Invoice, error) {
	ok, err := r.repo.CancelInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		inv, err := r.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, cancelConflict(inv)
	}
	return r.repo.GetByID(ctx, id)
}

func cancelConflict(inv *Invoice) error {
	if inv.Status == StatusCancelled {
		return ErrInvoiceCancelled
	}
	return ErrConflict
}

// DeactivateInvoice hides the invoice from sweeps and queries without
// touching its status. The soft-delete overlay is orthogonal to status.
func (r *Reconciler) DeactivateInvoice(ctx context.Context, id int64) error {
	return r.repo.SetActive(ctx, id, false)
}

// DeactivatePayment soft-deletes a ledger row for redaction. It does not
// adjust the invoice balance; corrections go through compensating entries.
func (r *Reconciler) DeactivatePayment(ctx context.Context, paymentID string) error {
	return r.repo.DeactivatePayment(ctx, paymentID)
}

func (r *Reconciler) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	return r.repo.GetByID(ctx, id)
}

func (r *Reconciler) List(ctx context.Context, clientID int64, status Status, limit, offset int) ([]*Invoice, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return r.repo.List(ctx, clientID, status, limit, offset)
}

func (r *Reconciler) ListPayments(ctx context.Context, invoiceID int64) ([]*Payment, error) {
	if _, err := r.repo.GetByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return r.repo.ListPayments(ctx, invoiceID)
}

// Balance reports the invoice totals for the read API.
func (r *Reconciler) Balance(ctx context.Context, invoiceID int64) (*BalanceResponse, error) {
	inv, err := r.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{
		InvoiceID:   inv.ID,
		Number:      inv.Number,
		Status:      inv.Status,
		TotalAmount: inv.TotalAmount.StringFixed(2),
		AmountPaid:  inv.AmountPaid.StringFixed(2),
		LateFee:     inv.LateFee.StringFixed(2),
		Outstanding: inv.Outstanding().Add(inv.LateFee).StringFixed(2),
	}, nil
}
