package contract

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ispcrm/internal/domain/schedule"
)

// SignatureStatus tracks signature progression. Transitions are forward
// only: awaiting -> signed -> released. ResetToAwaiting is the single
// administrative escape hatch back to the start.
type SignatureStatus string

const (
	SignatureAwaiting SignatureStatus = "awaiting"
	SignatureSigned   SignatureStatus = "signed"
	SignatureReleased SignatureStatus = "released"
)

// Type classifies the commercial nature of a contract.
type Type string

const (
	TypeService      Type = "service"
	TypeSubscription Type = "subscription"
	TypeMaintenance  Type = "maintenance"
	TypeSupport      Type = "support"
	TypeOther        Type = "other"
)

// RenewalStatus tracks how a contract continues past its validity window.
type RenewalStatus string

const (
	RenewalManual    RenewalStatus = "manual_renewal"
	RenewalAuto      RenewalStatus = "auto_renewal"
	RenewalRenewed   RenewalStatus = "renewed"
	RenewalCancelled RenewalStatus = "cancelled"
)

// Contract is a client agreement with its payment configuration.
// NextContractID links to the successor, forming a forward-only renewal
// chain; a set link implies RenewalStatus == RenewalRenewed.
type Contract struct {
	ID       int64 `gorm:"column:id;primaryKey" json:"id"`
	ClientID int64 `gorm:"column:client_id;not null;index" json:"client_id"`

	Title       string `gorm:"column:title;size:255;not null" json:"title"`
	Description string `gorm:"column:description" json:"description"`
	Type        Type   `gorm:"column:contract_type;size:32;not null" json:"contract_type"`

	SignatureStatus  SignatureStatus `gorm:"column:signature_status;size:32;not null;default:'awaiting';index" json:"signature_status"`
	SignatureHash    sql.NullString  `gorm:"column:signature_hash;size:128" json:"signature_hash,omitempty"`
	DigitalSignature sql.NullString  `gorm:"column:digital_signature" json:"-"`
	SignedAt         sql.NullTime    `gorm:"column:signed_at" json:"signed_at,omitempty"`

	VigenciaStart sql.NullTime `gorm:"column:vigencia_start" json:"vigencia_start,omitempty"`
	VigenciaEnd   sql.NullTime `gorm:"column:vigencia_end;index" json:"vigencia_end,omitempty"`

	RenewalStatus   RenewalStatus  `gorm:"column:renewal_status;size:32;not null;default:'manual_renewal';index" json:"renewal_status"`
	RenewalNoticeAt sql.NullTime   `gorm:"column:renewal_notice_at" json:"renewal_notice_at,omitempty"`
	NextContractID  sql.NullInt64  `gorm:"column:next_contract_id;uniqueIndex" json:"next_contract_id,omitempty"`

	Value    decimal.Decimal `gorm:"column:value;type:numeric(12,2)" json:"value"`
	Currency string          `gorm:"column:currency;size:3;not null;default:'BRL'" json:"currency"`

	FirstPaymentDate sql.NullTime       `gorm:"column:first_payment_date" json:"first_payment_date,omitempty"`
	NextPaymentDate  sql.NullTime       `gorm:"column:next_payment_date;index" json:"next_payment_date,omitempty"`
	PaymentDay       int                `gorm:"column:payment_day;not null;default:1" json:"payment_day"`
	PaymentFrequency schedule.Frequency `gorm:"column:payment_frequency;size:16;not null;default:'monthly'" json:"payment_frequency"`
	TotalDiscount    decimal.Decimal    `gorm:"column:total_discount;type:numeric(12,2)" json:"total_discount"`
	LateFeePercent   decimal.Decimal    `gorm:"column:late_fee_percent;type:numeric(5,2)" json:"late_fee_percent"`

	CreatedBy string `gorm:"column:created_by;size:128" json:"created_by"`
	UpdatedBy string `gorm:"column:updated_by;size:128" json:"updated_by"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Contract) TableName() string { return "contracts" }

// IsBillable reports whether the billing generator may emit invoices.
func (c *Contract) IsBillable() bool {
	return c.SignatureStatus == SignatureReleased &&
		c.RenewalStatus != RenewalCancelled &&
		c.NextPaymentDate.Valid
}

// InvoiceAmount is the per-period amount: value minus discount, never
// below zero.
func (c *Contract) InvoiceAmount() decimal.Decimal {
	amount := c.Value.Sub(c.TotalDiscount)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// RenewalNoticeDate is the moment renewal evaluation should start:
// the explicit notice date if stored, otherwise leadDays before the end
// of the validity window.
func (c *Contract) RenewalNoticeDate(leadDays int) (time.Time, bool) {
	if c.RenewalNoticeAt.Valid {
		return c.RenewalNoticeAt.Time, true
	}
	if !c.VigenciaEnd.Valid {
		return time.Time{}, false
	}
	return c.VigenciaEnd.Time.AddDate(0, 0, -leadDays), true
}
