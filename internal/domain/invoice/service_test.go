package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeInvoiceRepo applies the same accounting rules as the gorm
// implementation, in memory, so reconciliation can be exercised through
// full payment sequences.
type fakeInvoiceRepo struct {
	invoices map[int64]*Invoice
	payments []*Payment

	appendConflicts int // reject this many AppendPayment calls first
	markOverdueErr  map[int64]error
}

func newFakeInvoiceRepo(invoices ...*Invoice) *fakeInvoiceRepo {
	m := make(map[int64]*Invoice, len(invoices))
	for _, inv := range invoices {
		m[inv.ID] = inv
	}
	return &fakeInvoiceRepo{invoices: m, markOverdueErr: map[int64]error{}}
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, inv *Invoice) error {
	f.invoices[inv.ID] = inv
	return nil
}

func (f *fakeInvoiceRepo) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoiceRepo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	for _, inv := range f.invoices {
		if inv.Number == number {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeInvoiceRepo) List(ctx context.Context, clientID int64, status Status, limit, offset int) ([]*Invoice, int64, error) {
	return nil, 0, nil
}

func (f *fakeInvoiceRepo) ListForOverdueSweep(ctx context.Context, now time.Time) ([]*Invoice, error) {
	var out []*Invoice
	for _, inv := range f.invoices {
		if inv.Active && inv.DueDate.Before(now) &&
			(inv.Status == StatusPending || inv.Status == StatusPartiallyPaid || inv.Status == StatusOverdue) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepo) AppendPayment(ctx context.Context, invoiceID int64, p *Payment, expectedPaid, newPaid decimal.Decimal, newStatus Status) (bool, error) {
	if f.appendConflicts > 0 {
		f.appendConflicts--
		return false, nil
	}
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return false, ErrNotFound
	}
	if !inv.AmountPaid.Equal(expectedPaid) {
		return false, nil
	}
	f.payments = append(f.payments, p)
	inv.AmountPaid = newPaid
	inv.Status = newStatus
	return true, nil
}

func (f *fakeInvoiceRepo) MarkOverdue(ctx context.Context, id int64, lateFee decimal.Decimal, overdueAt time.Time) (bool, error) {
	if err := f.markOverdueErr[id]; err != nil {
		return false, err
	}
	inv, ok := f.invoices[id]
	if !ok {
		return false, ErrNotFound
	}
	inv.Status = StatusOverdue
	inv.LateFee = lateFee
	return true, nil
}

func (f *fakeInvoiceRepo) CancelInvoice(ctx context.Context, id int64) (bool, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return false, nil
	}
	if inv.Status == StatusPaid || inv.Status == StatusCancelled {
		return false, nil
	}
	inv.Status = StatusCancelled
	return true, nil
}

func (f *fakeInvoiceRepo) SetActive(ctx context.Context, id int64, active bool) error {
	inv, ok := f.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Active = active
	return nil
}

func (f *fakeInvoiceRepo) ListPayments(ctx context.Context, invoiceID int64) ([]*Payment, error) {
	var out []*Payment
	for _, p := range f.payments {
		if p.InvoiceID == invoiceID && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepo) DeactivatePayment(ctx context.Context, paymentID string) error {
	for _, p := range f.payments {
		if p.ID == paymentID {
			p.Active = false
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeInvoiceRepo) WithTx(tx *gorm.DB) Repository { return f }

func testInvoice(total string) *Invoice {
	return &Invoice{
		ID:             1,
		Number:         "FAT-000001-202601",
		ContractID:     1,
		ClientID:       7,
		DueDate:        time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		PeriodStart:    time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		TotalAmount:    decimal.RequireFromString(total),
		AmountPaid:     decimal.Zero,
		LateFee:        decimal.Zero,
		Status:         StatusPending,
		Active:         true,
		Frequency:      "monthly",
		LateFeePercent: decimal.RequireFromString("2.00"),
	}
}

func newTestReconciler(repo Repository) *Reconciler {
	return NewReconciler(repo, ReconcilerConfig{OverpaymentTolerance: decimal.Zero}, func(string, ...interface{}) {})
}

func TestApplyPayment_StatusProgression(t *testing.T) {
	repo := newFakeInvoiceRepo(testInvoice("120.00"))
	rec := newTestReconciler(repo)
	ctx := context.Background()

	inv, _, err := rec.ApplyPayment(ctx, 1, &ApplyPaymentRequest{Amount: "50.00"}, "caixa")
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyPaid, inv.Status)
	assert.Equal(t, "50.00", inv.AmountPaid.StringFixed(2))

	inv, _, err = rec.ApplyPayment(ctx, 1, &ApplyPaymentRequest{Amount: "70.00"}, "caixa")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, inv.Status)
	assert.Equal(t, "120.00", inv.AmountPaid.StringFixed(2))

	_, _, err = rec.ApplyPayment(ctx, 1, &ApplyPaymentRequest{Amount: "10.00"}, "caixa")
	assert.ErrorIs(t, err, ErrOverpaymentRejected)

	var overpay *OverpaymentError
	require.ErrorAs(t, err, &overpay)
	assert.Equal(t, "10.00", overpay.Attempted.StringFixed(2))
	assert.Equal(t, "120.00", overpay.Total.StringFixed(2))
}

func TestApplyPayment_LedgerConsistency(t *testing.T) {
	repo := newFakeInvoiceRepo(testInvoice("300.00"))
	rec := newTestReconciler(repo)
	ctx := context.Background()

	for _, amount := range []string{"100.00", "150.00", "50.00"} {
		_, _, err := rec.ApplyPayment(ctx, 1, &ApplyPaymentRequest{Amount: amount}, "caixa")
		require.NoError(t, err)
	}

	payments, err := rec.ListPayments(ctx, 1)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	inv, err := rec.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, sum.Equal(inv.AmountPaid), "payment sum %s != amount paid %s", sum, inv.AmountPaid)
	assert.Equal(t, StatusPaid, inv.Status)
}

func TestApplyPayment_ToleranceAllowsSmallExcess(t *testing.T) {
	repo := newFakeInvoiceRepo(testInvoice("100.00"))
	rec := NewReconciler(repo, ReconcilerConfig{OverpaymentTolerance: decimal.RequireFromString("0.05")}, nil)

	inv, _, err := rec.ApplyPayment(context.Background(), 1, &ApplyPaymentRequest{Amount: "100.03"}, "caixa")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, inv.Status)
}

func TestApplyPayment_CompensatingEntry(t *testing.T) {
	repo := newFakeInvoiceRepo(testInvoice("100.00"))
	rec := newTestReconciler(repo)
	ctx := context.Background()

	_, _, err := rec.ApplyPayment(ctx, 1, &ApplyPaymentRequest{Amount: "100.00"}, "caixa")
	require.NoError(t, err)

	// operator keyed the wrong amount; ledger is corrected, not edited
	inv, _, err := rec.ApplyPayment(ctx, 1, &ApplyPaymentRequest{Amount: "-40.00", Notes: "estorno"}, "supervisor")
	require.NoError(t, err)
	assert.Equal(t, "60.00", inv.AmountPaid.StringFixed(2))

	payments, _ := rec.ListPayments(ctx, 1)
	assert.Len(t, payments, 2)
}

func TestApplyPayment_GuardsInactiveAndCancelled(t *testing.T) {
	inactive := testInvoice("100.00")
	inactive.Active = false

	cancelled := testInvoice("100.00")
	cancelled.ID = 2
	cancelled.Number = "FAT-000002-202601"
	cancelled.Status = StatusCancelled

	repo := newFakeInvoiceRepo(inactive, cancelled)
	rec := newTestReconciler(repo)
	ctx := context.Background()

	_, _, err := rec.ApplyPayment(ctx, 1, &ApplyPaymentRequest{Amount: "10.00"}, "caixa")
	assert.ErrorIs(t, err, ErrInvoiceInactive)

	_, _, err = rec.ApplyPayment(ctx, 2, &ApplyPaymentRequest{Amount: "10.00"}, "caixa")
	assert.ErrorIs(t, err, ErrInvoiceCancelled)
}

func TestApplyPayment_RetriesOnConflict(t *testing.T) {
	repo := newFakeInvoiceRepo(testInvoice("100.00"))
	repo.appendConflicts = 2
	rec := newTestReconciler(repo)

	inv, _, err := rec.ApplyPayment(context.Background(), 1, &ApplyPaymentRequest{Amount: "100.00"}, "caixa")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, inv.Status)
}

func TestApplyPayment_ConflictExhaustion(t *testing.T) {
	repo := newFakeInvoiceRepo(testInvoice("100.00"))
	repo.appendConflicts = 10
	rec := newTestReconciler(repo)

	_, _, err := rec.ApplyPayment(context.Background(), 1, &ApplyPaymentRequest{Amount: "100.00"}, "caixa")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSweepOverdue_PenaltyAndIdempotence(t *testing.T) {
	inv := testInvoice("250.00")
	repo := newFakeInvoiceRepo(inv)
	rec := newTestReconciler(repo)
	ctx := context.Background()

	// two whole monthly periods past the 2026-01-10 due date
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	swept, err := rec.SweepOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	got, _ := rec.GetByID(ctx, 1)
	assert.Equal(t, StatusOverdue, got.Status)
	// 250.00 * 2% * 2 periods
	assert.Equal(t, "10.00", got.LateFee.StringFixed(2))

	// re-running the sweep recomputes the same figure, never accumulates
	swept, err = rec.SweepOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	got, _ = rec.GetByID(ctx, 1)
	assert.Equal(t, "10.00", got.LateFee.StringFixed(2))
}

func TestSweepOverdue_PenaltyOnRemainingBalance(t *testing.T) {
	inv := testInvoice("200.00")
	inv.AmountPaid = decimal.RequireFromString("150.00")
	inv.Status = StatusPartiallyPaid
	repo := newFakeInvoiceRepo(inv)
	rec := newTestReconciler(repo)

	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	_, err := rec.SweepOverdue(context.Background(), now)
	require.NoError(t, err)

	got, _ := rec.GetByID(context.Background(), 1)
	// balance 50.00 * 2% * 1 period
	assert.Equal(t, "1.00", got.LateFee.StringFixed(2))
}

func TestSweepOverdue_NotYetDueUntouched(t *testing.T) {
	repo := newFakeInvoiceRepo(testInvoice("100.00"))
	rec := newTestReconciler(repo)

	now := time.Date(2026, time.January, 9, 0, 0, 0, 0, time.UTC)
	swept, err := rec.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)

	got, _ := rec.GetByID(context.Background(), 1)
	assert.Equal(t, StatusPending, got.Status)
}

func TestSweepOverdue_SkipsFailedInvoices(t *testing.T) {
	first := testInvoice("100.00")
	second := testInvoice("100.00")
	second.ID = 2
	second.Number = "FAT-000002-202601"

	repo := newFakeInvoiceRepo(first, second)
	repo.markOverdueErr[1] = errors.New("deadlock")
	rec := newTestReconciler(repo)

	now := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	swept, err := rec.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	got, _ := rec.GetByID(context.Background(), 2)
	assert.Equal(t, StatusOverdue, got.Status)
}

func TestCancelInvoice_PaidStaysPaid(t *testing.T) {
	inv := testInvoice("100.00")
	inv.AmountPaid = inv.TotalAmount
	inv.Status = StatusPaid
	repo := newFakeInvoiceRepo(inv)
	rec := newTestReconciler(repo)

	_, err := rec.CancelInvoice(context.Background(), 1)
	assert.Error(t, err)

	got, _ := rec.GetByID(context.Background(), 1)
	assert.Equal(t, StatusPaid, got.Status)
}

func TestDeactivate_IsOrthogonalToStatus(t *testing.T) {
	inv := testInvoice("100.00")
	inv.AmountPaid = inv.TotalAmount
	inv.Status = StatusPaid
	repo := newFakeInvoiceRepo(inv)
	rec := newTestReconciler(repo)
	ctx := context.Background()

	require.NoError(t, rec.DeactivateInvoice(ctx, 1))

	got, _ := rec.GetByID(ctx, 1)
	assert.False(t, got.Active)
	assert.Equal(t, StatusPaid, got.Status)
}
