package notification

import (
	"database/sql"
	"time"
)

// Kind classifies what triggered a notification.
type Kind string

const (
	KindRenewalDue      Kind = "renewal_due"
	KindContractRenewed Kind = "contract_renewed"
	KindInvoiceOverdue  Kind = "invoice_overdue"
	KindOrderCompleted  Kind = "order_completed"
)

// Status of delivery. Rows are written before dispatch so a crashed
// process leaves a record of what should have gone out.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

type Notification struct {
	ID   int64 `gorm:"column:id;primaryKey" json:"id"`
	Kind Kind  `gorm:"column:kind;size:32;not null;index" json:"kind"`

	ClientID   int64         `gorm:"column:client_id;not null;index" json:"client_id"`
	ContractID sql.NullInt64 `gorm:"column:contract_id;index" json:"contract_id,omitempty"`

	Recipient string `gorm:"column:recipient;size:255;not null" json:"recipient"`
	Subject   string `gorm:"column:subject;size:255;not null" json:"subject"`
	Body      string `gorm:"column:body" json:"body"`

	Status Status       `gorm:"column:status;size:16;not null;default:'pending';index" json:"status"`
	SentAt sql.NullTime `gorm:"column:sent_at" json:"sent_at,omitempty"`
	ReadAt sql.NullTime `gorm:"column:read_at;index" json:"read_at,omitempty"`
	Error  string       `gorm:"column:error;size:512" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }
