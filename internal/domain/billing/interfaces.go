package billing

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"ispcrm/internal/domain/contract"
	"ispcrm/internal/domain/invoice"
)

// ContractSource is the slice of the contract repository the generator
// consumes.
type ContractSource interface {
	GetByID(ctx context.Context, id int64) (*contract.Contract, error)
	ListBillable(ctx context.Context, now time.Time) ([]*contract.Contract, error)
	AdvancePaymentDate(ctx context.Context, id int64, from, to time.Time) (bool, error)
	WithTx(tx *gorm.DB) contract.Repository
}

// InvoiceSink is where generated invoices land.
type InvoiceSink interface {
	Create(ctx context.Context, inv *invoice.Invoice) error
	WithTx(tx *gorm.DB) invoice.Repository
}

// TxRunner runs a function inside a database transaction. *gorm.DB
// satisfies it directly.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}
