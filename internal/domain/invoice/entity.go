package invoice

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"ispcrm/internal/domain/schedule"
)

// Status of an invoice. Paid holds if and only if the accumulated amount
// paid covers the total.
type Status string

const (
	StatusPending       Status = "pending"
	StatusPaid          Status = "paid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusOverdue       Status = "overdue"
	StatusCancelled     Status = "cancelled"
)

// Invoice is one billing period of a contract. Number doubles as the
// generation idempotency key: one number per (contract, period), enforced
// by the unique index.
type Invoice struct {
	ID         int64  `gorm:"column:id;primaryKey" json:"id"`
	Number     string `gorm:"column:number;size:64;not null;uniqueIndex" json:"number"`
	ContractID int64  `gorm:"column:contract_id;not null;index" json:"contract_id"`
	ClientID   int64  `gorm:"column:client_id;not null;index" json:"client_id"`

	IssueDate   time.Time `gorm:"column:issue_date;not null" json:"issue_date"`
	DueDate     time.Time `gorm:"column:due_date;not null;index" json:"due_date"`
	PeriodStart time.Time `gorm:"column:period_start;not null" json:"period_start"`

	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2)" json:"total_amount"`
	AmountPaid  decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2)" json:"amount_paid"`
	LateFee     decimal.Decimal `gorm:"column:late_fee;type:numeric(12,2)" json:"late_fee"`
	Currency    string          `gorm:"column:currency;size:3;not null;default:'BRL'" json:"currency"`

	Status Status `gorm:"column:status;size:32;not null;default:'pending';index" json:"status"`
	Active bool   `gorm:"column:active;not null;default:true;index" json:"active"`

	// Snapshots from the contract at generation time, so the overdue sweep
	// never depends on later contract edits.
	Frequency      schedule.Frequency `gorm:"column:frequency;size:16;not null;default:'monthly'" json:"frequency"`
	LateFeePercent decimal.Decimal    `gorm:"column:late_fee_percent;type:numeric(5,2)" json:"late_fee_percent"`

	OverdueAt sql.NullTime `gorm:"column:overdue_at" json:"overdue_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// Outstanding is the unpaid remainder, never negative.
func (i *Invoice) Outstanding() decimal.Decimal {
	out := i.TotalAmount.Sub(i.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// StatusFor derives the status implied by an accumulated paid amount.
func (i *Invoice) StatusFor(paid decimal.Decimal) Status {
	switch {
	case paid.GreaterThanOrEqual(i.TotalAmount):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return i.Status
	}
}

// Payment is one ledger entry against an invoice. Rows are never hard
// deleted; corrections are compensating entries and removal is a soft
// deactivation, preserving the financial audit trail.
type Payment struct {
	ID        string `gorm:"column:id;primaryKey;size:36" json:"id"`
	InvoiceID int64  `gorm:"column:invoice_id;not null;index" json:"invoice_id"`

	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2)" json:"amount"`
	PaidAt      time.Time       `gorm:"column:paid_at;not null" json:"paid_at"`
	Method      string          `gorm:"column:method;size:32" json:"method"`
	ExternalRef string          `gorm:"column:external_ref;size:128" json:"external_ref"`
	Notes       string          `gorm:"column:notes" json:"notes"`
	RecordedBy  string          `gorm:"column:recorded_by;size:128" json:"recorded_by"`

	Active bool `gorm:"column:active;not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
