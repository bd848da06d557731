package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists invoices and their payment ledger. Mutations are
// conditional updates so concurrent reconciliation on the same invoice
// serializes instead of losing writes.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, clientID int64, status Status, limit, offset int) ([]*Invoice, int64, error)
	ListForOverdueSweep(ctx context.Context, now time.Time) ([]*Invoice, error)

	// AppendPayment atomically inserts the ledger row and accumulates the
	// invoice's amount_paid, guarded by the expected prior amount. A false
	// return means another writer got there first and the caller should
	// re-read and retry.
	AppendPayment(ctx context.Context, invoiceID int64, p *Payment, expectedPaid, newPaid decimal.Decimal, newStatus Status) (bool, error)

	MarkOverdue(ctx context.Context, id int64, lateFee decimal.Decimal, overdueAt time.Time) (bool, error)
	CancelInvoice(ctx context.Context, id int64) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) error

	ListPayments(ctx context.Context, invoiceID int64) ([]*Payment, error)
	DeactivatePayment(ctx context.Context, paymentID string) error

	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, inv *Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	var inv Invoice
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	var inv Invoice
	err := r.db.WithContext(ctx).Where("number = ?", number).First(&inv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) List(ctx context.Context, clientID int64, status Status, limit, offset int) ([]*Invoice, int64, error) {
	q := r.db.WithContext(ctx).Model(&Invoice{}).Where("active = ?", true)
	if clientID > 0 {
		q = q.Where("client_id = ?", clientID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []*Invoice
	err := q.Order("due_date DESC").Limit(limit).Offset(offset).Find(&invoices).Error
	return invoices, total, err
}

func (r *repository) ListForOverdueSweep(ctx context.Context, now time.Time) ([]*Invoice, error) {
	var invoices []*Invoice
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("status IN ?", []Status{StatusPending, StatusPartiallyPaid, StatusOverdue}).
		Where("due_date < ?", now).
		Order("due_date ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *repository) AppendPayment(ctx context.Context, invoiceID int64, p *Payment, expectedPaid, newPaid decimal.Decimal, newStatus Status) (bool, error) {
	var applied bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", invoiceID).First(&inv).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}
		if !inv.AmountPaid.Equal(expectedPaid) {
			applied = false
			return nil
		}

		if err := tx.Create(p).Error; err != nil {
			return err
		}

		res := tx.Model(&Invoice{}).
			Where("id = ?", invoiceID).
			Updates(map[string]any{
				"amount_paid": newPaid,
				"status":      newStatus,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("invoice row not updated")
		}
		applied = true
		return nil
	})
	return applied, err
}

func (r *repository) MarkOverdue(ctx context.Context, id int64, lateFee decimal.Decimal, overdueAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Invoice{}).
		Where("id = ? AND active = ? AND status IN ?", id, true, []Status{StatusPending, StatusPartiallyPaid, StatusOverdue}).
		Updates(map[string]any{
			"status":     StatusOverdue,
			"late_fee":   lateFee,
			"overdue_at": overdueAt,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) CancelInvoice(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Invoice{}).
		Where("id = ? AND status NOT IN ?", id, []Status{StatusPaid, StatusCancelled}).
		Update("status", StatusCancelled)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&Invoice{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListPayments(ctx context.Context, invoiceID int64) ([]*Payment, error) {
	var payments []*Payment
	err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND active = ?", invoiceID, true).
		Order("paid_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *repository) DeactivatePayment(ctx context.Context, paymentID string) error {
	res := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ?", paymentID).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
