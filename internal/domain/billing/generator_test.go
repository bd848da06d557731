package billing

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ispcrm/internal/domain/contract"
	"ispcrm/internal/domain/invoice"
	"ispcrm/internal/domain/schedule"
)

// The fakes embed the repository interfaces so only the methods the
// generator touches need an implementation.

type fakeContractSource struct {
	contract.Repository
	contracts map[int64]*contract.Contract
}

func newFakeContractSource(cs ...*contract.Contract) *fakeContractSource {
	m := make(map[int64]*contract.Contract, len(cs))
	for _, c := range cs {
		m[c.ID] = c
	}
	return &fakeContractSource{contracts: m}
}

func (f *fakeContractSource) GetByID(ctx context.Context, id int64) (*contract.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return nil, contract.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContractSource) ListBillable(ctx context.Context, now time.Time) ([]*contract.Contract, error) {
	var out []*contract.Contract
	for _, c := range f.contracts {
		if c.IsBillable() && !c.NextPaymentDate.Time.After(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeContractSource) AdvancePaymentDate(ctx context.Context, id int64, from, to time.Time) (bool, error) {
	c, ok := f.contracts[id]
	if !ok {
		return false, nil
	}
	if !c.NextPaymentDate.Valid || !c.NextPaymentDate.Time.Equal(from) {
		return false, nil
	}
	c.NextPaymentDate = sql.NullTime{Time: to, Valid: true}
	return true, nil
}

func (f *fakeContractSource) WithTx(tx *gorm.DB) contract.Repository { return f }

type fakeInvoiceSink struct {
	invoice.Repository
	byNumber map[string]*invoice.Invoice
}

func newFakeInvoiceSink() *fakeInvoiceSink {
	return &fakeInvoiceSink{byNumber: map[string]*invoice.Invoice{}}
}

func (f *fakeInvoiceSink) Create(ctx context.Context, inv *invoice.Invoice) error {
	if _, exists := f.byNumber[inv.Number]; exists {
		return gorm.ErrDuplicatedKey
	}
	f.byNumber[inv.Number] = inv
	return nil
}

func (f *fakeInvoiceSink) WithTx(tx *gorm.DB) invoice.Repository { return f }

type fakeTxRunner struct{}

func (fakeTxRunner) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return fc(nil)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func billableContract() *contract.Contract {
	return &contract.Contract{
		ID:               1,
		ClientID:         7,
		Title:            "Link dedicado 100Mb",
		Type:             contract.TypeService,
		SignatureStatus:  contract.SignatureReleased,
		RenewalStatus:    contract.RenewalManual,
		Value:            decimal.RequireFromString("300.00"),
		TotalDiscount:    decimal.RequireFromString("50.00"),
		LateFeePercent:   decimal.RequireFromString("2.00"),
		Currency:         "BRL",
		PaymentDay:       10,
		PaymentFrequency: schedule.Monthly,
		FirstPaymentDate: sql.NullTime{Time: date(2026, time.January, 10), Valid: true},
		NextPaymentDate:  sql.NullTime{Time: date(2026, time.January, 10), Valid: true},
	}
}

func newTestGenerator(contracts *fakeContractSource, invoices *fakeInvoiceSink) *Generator {
	cfg := GeneratorConfig{DefaultCurrency: "BRL"}
	return NewGenerator(fakeTxRunner{}, contracts, invoices, cfg, nil)
}

func TestGenerateDue_EmitsDiscountedAmountAndAdvancesCursor(t *testing.T) {
	contracts := newFakeContractSource(billableContract())
	invoices := newFakeInvoiceSink()
	gen := newTestGenerator(contracts, invoices)

	created, err := gen.GenerateDue(context.Background(), date(2026, time.January, 15))
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	inv := invoices.byNumber["FAT-000001-202601"]
	require.NotNil(t, inv)
	assert.Equal(t, "250.00", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, invoice.StatusPending, inv.Status)
	assert.Equal(t, date(2026, time.January, 10), inv.DueDate)
	assert.Equal(t, "2.00", inv.LateFeePercent.StringFixed(2))

	c := contracts.contracts[1]
	assert.Equal(t, date(2026, time.February, 10), c.NextPaymentDate.Time)
}

func TestGenerateDue_SecondRunIsIdempotent(t *testing.T) {
	contracts := newFakeContractSource(billableContract())
	invoices := newFakeInvoiceSink()
	gen := newTestGenerator(contracts, invoices)
	now := date(2026, time.January, 15)

	created, err := gen.GenerateDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, created)

	created, err = gen.GenerateDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, invoices.byNumber, 1)
}

func TestGenerateDue_CatchesUpMissedPeriods(t *testing.T) {
	contracts := newFakeContractSource(billableContract())
	invoices := newFakeInvoiceSink()
	gen := newTestGenerator(contracts, invoices)

	// cursor still at January while three periods have elapsed
	created, err := gen.GenerateDue(context.Background(), date(2026, time.March, 15))
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	for _, number := range []string{"FAT-000001-202601", "FAT-000001-202602", "FAT-000001-202603"} {
		assert.Contains(t, invoices.byNumber, number)
	}
	assert.Equal(t, date(2026, time.April, 10), contracts.contracts[1].NextPaymentDate.Time)
}

func TestGenerate_RepairsCursorAfterCrash(t *testing.T) {
	contracts := newFakeContractSource(billableContract())
	invoices := newFakeInvoiceSink()
	// a previous run persisted the January invoice but died before
	// advancing the schedule cursor
	invoices.byNumber["FAT-000001-202601"] = &invoice.Invoice{Number: "FAT-000001-202601"}
	gen := newTestGenerator(contracts, invoices)

	created, err := gen.GenerateDue(context.Background(), date(2026, time.January, 15))
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, date(2026, time.February, 10), contracts.contracts[1].NextPaymentDate.Time)
}

func TestGenerateForContract_NotReleased(t *testing.T) {
	c := billableContract()
	c.SignatureStatus = contract.SignatureSigned
	gen := newTestGenerator(newFakeContractSource(c), newFakeInvoiceSink())

	_, err := gen.GenerateForContract(context.Background(), 1, date(2026, time.January, 15))
	assert.ErrorIs(t, err, ErrNotBillable)
}

func TestGenerateForContract_StopsAtValidityEnd(t *testing.T) {
	c := billableContract()
	c.VigenciaEnd = sql.NullTime{Time: date(2026, time.January, 31), Valid: true}
	contracts := newFakeContractSource(c)
	invoices := newFakeInvoiceSink()
	gen := newTestGenerator(contracts, invoices)

	created, err := gen.GenerateForContract(context.Background(), 1, date(2026, time.March, 15))
	assert.ErrorIs(t, err, ErrScheduleExhausted)
	assert.Equal(t, 1, created)
	assert.Len(t, invoices.byNumber, 1)
	assert.Contains(t, invoices.byNumber, "FAT-000001-202601")
}

func TestGenerateDue_DayOfMonthClampAcrossPeriods(t *testing.T) {
	c := billableContract()
	c.PaymentDay = 31
	c.FirstPaymentDate = sql.NullTime{Time: date(2026, time.January, 31), Valid: true}
	c.NextPaymentDate = sql.NullTime{Time: date(2026, time.January, 31), Valid: true}
	contracts := newFakeContractSource(c)
	invoices := newFakeInvoiceSink()
	gen := newTestGenerator(contracts, invoices)

	created, err := gen.GenerateDue(context.Background(), date(2026, time.March, 31))
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	feb := invoices.byNumber["FAT-000001-202602"]
	require.NotNil(t, feb)
	assert.Equal(t, date(2026, time.February, 28), feb.DueDate)

	mar := invoices.byNumber["FAT-000001-202603"]
	require.NotNil(t, mar)
	assert.Equal(t, date(2026, time.March, 31), mar.DueDate)
}

func TestGenerateDue_SkipsCancelledAndUnreleased(t *testing.T) {
	cancelled := billableContract()
	cancelled.ID = 2
	cancelled.RenewalStatus = contract.RenewalCancelled

	awaiting := billableContract()
	awaiting.ID = 3
	awaiting.SignatureStatus = contract.SignatureAwaiting

	contracts := newFakeContractSource(billableContract(), cancelled, awaiting)
	invoices := newFakeInvoiceSink()
	gen := newTestGenerator(contracts, invoices)

	created, err := gen.GenerateDue(context.Background(), date(2026, time.January, 15))
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Contains(t, invoices.byNumber, "FAT-000001-202601")
}
