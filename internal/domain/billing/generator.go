package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ispcrm/internal/domain/contract"
	"ispcrm/internal/domain/invoice"
	"ispcrm/internal/domain/schedule"
)

// maxPeriodsPerRun caps the catch-up loop for a single contract so a
// corrupted schedule cursor cannot flood the invoices table.
const maxPeriodsPerRun = 120

// GeneratorConfig is the invoice generation policy.
type GeneratorConfig struct {
	// DefaultCurrency is stamped on invoices whose contract carries none.
	DefaultCurrency string
}

// Generator emits one invoice per due billing period of every released
// contract and moves the contract's schedule cursor forward. The invoice
// number is unique per (contract, period), so a crashed or concurrent run
// can never bill the same period twice.
type Generator struct {
	db        TxRunner
	contracts ContractSource
	invoices  InvoiceSink
	cfg       GeneratorConfig
	loggerf   func(format string, args ...interface{})
}

func NewGenerator(db TxRunner, contracts ContractSource, invoices InvoiceSink, cfg GeneratorConfig, loggerf func(format string, args ...interface{})) *Generator {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Generator{db: db, contracts: contracts, invoices: invoices, cfg: cfg, loggerf: loggerf}
}

// GenerateDue bills every released contract whose next payment date has
// arrived. Failures on one contract are logged and do not stop the run.
// Returns the number of invoices created.
func (g *Generator) GenerateDue(ctx context.Context, now time.Time) (int, error) {
	contracts, err := g.contracts.ListBillable(ctx, now)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, c := range contracts {
		n, err := g.generate(ctx, c, now)
		created += n
		if errors.Is(err, ErrScheduleExhausted) {
			g.loggerf("level=info msg=contract validity window ended, billing stopped contract_id=%d", c.ID)
			continue
		}
		if err != nil {
			g.loggerf("level=error msg=invoice generation failed contract_id=%d err=%v", c.ID, err)
		}
	}
	return created, nil
}

// GenerateForContract bills all due periods of a single contract.
func (g *Generator) GenerateForContract(ctx context.Context, contractID int64, now time.Time) (int, error) {
	c, err := g.contracts.GetByID(ctx, contractID)
	if err != nil {
		return 0, err
	}
	if !c.IsBillable() {
		return 0, ErrNotBillable
	}
	return g.generate(ctx, c, now)
}

// generate walks the schedule cursor from the contract's next payment
// date up to now, emitting one invoice per period. Each step is its own
// transaction: insert the invoice, then advance next_payment_date with a
// compare-and-swap on the old value. A unique violation on the invoice
// number means the period was billed by a run that died before advancing
// the cursor, so only the cursor is repaired.
func (g *Generator) generate(ctx context.Context, c *contract.Contract, now time.Time) (int, error) {
	created := 0
	due := c.NextPaymentDate.Time

	for periods := 0; !due.After(now); periods++ {
		if periods >= maxPeriodsPerRun {
			return created, fmt.Errorf("contract %d: more than %d due periods in one run", c.ID, maxPeriodsPerRun)
		}
		if c.VigenciaEnd.Valid && due.After(c.VigenciaEnd.Time) {
			return created, ErrScheduleExhausted
		}

		next := schedule.NextDueDate(due, c.PaymentFrequency, c.PaymentDay)
		inv := g.buildInvoice(c, due, now)

		err := g.db.Transaction(func(tx *gorm.DB) error {
			if err := g.invoices.WithTx(tx).Create(ctx, inv); err != nil {
				return err
			}
			ok, err := g.contracts.WithTx(tx).AdvancePaymentDate(ctx, c.ID, due, next)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("contract %d: payment date moved concurrently", c.ID)
			}
			return nil
		})
		switch {
		case err == nil:
			created++
		case isUniqueViolation(err):
			// period already invoiced; move the cursor and keep walking
			if _, err := g.contracts.AdvancePaymentDate(ctx, c.ID, due, next); err != nil {
				return created, err
			}
		default:
			return created, err
		}

		due = next
	}
	return created, nil
}

func (g *Generator) buildInvoice(c *contract.Contract, due, now time.Time) *invoice.Invoice {
	currency := c.Currency
	if currency == "" {
		currency = g.cfg.DefaultCurrency
	}
	return &invoice.Invoice{
		Number:         InvoiceNumber(c.ID, due),
		ContractID:     c.ID,
		ClientID:       c.ClientID,
		IssueDate:      now,
		DueDate:        due,
		PeriodStart:    due,
		TotalAmount:    c.InvoiceAmount(),
		AmountPaid:     decimal.Zero,
		LateFee:        decimal.Zero,
		Currency:       currency,
		Status:         invoice.StatusPending,
		Active:         true,
		Frequency:      c.PaymentFrequency,
		LateFeePercent: c.LateFeePercent,
	}
}

// InvoiceNumber is the canonical invoice number for a contract's billing
// period, in the FAT-NNNNNN-AAAAMM fiscal numbering scheme.
func InvoiceNumber(contractID int64, period time.Time) string {
	return fmt.Sprintf("FAT-%06d-%s", contractID, period.Format("200601"))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
