package contract

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository handles contract persistence. State transitions are
// conditional updates (current state in the WHERE clause) so concurrent
// requests against the same contract serialize at the row level.
type Repository interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id int64) (*Contract, error)
	List(ctx context.Context, clientID int64, limit, offset int) ([]*Contract, int64, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, c *Contract) error
	Delete(ctx context.Context, id int64) error

	TransitionSignature(ctx context.Context, id int64, from, to SignatureStatus, updates map[string]any) (bool, error)
	ResetSignature(ctx context.Context, id int64, actor string) error
	Cancel(ctx context.Context, id int64, actor string) (bool, error)
	LinkSuccessor(ctx context.Context, predecessorID, successorID int64, requireStatus RenewalStatus) (bool, error)

	ListBillable(ctx context.Context, now time.Time) ([]*Contract, error)
	AdvancePaymentDate(ctx context.Context, id int64, from, to time.Time) (bool, error)
	ListRenewalCandidates(ctx context.Context) ([]*Contract, error)

	// WithTx returns a repository bound to the given transaction, so
	// cross-entity operations can compose repositories atomically.
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

func (r *repository) Create(ctx context.Context, c *Contract) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Contract, error) {
	var c Contract
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, clientID int64, limit, offset int) ([]*Contract, int64, error) {
	q := r.db.WithContext(ctx).Model(&Contract{})
	if clientID > 0 {
		q = q.Where("client_id = ?", clientID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contracts []*Contract
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&contracts).Error
	return contracts, total, err
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&Contract{}).Count(&total).Error
	return total, err
}

func (r *repository) Update(ctx context.Context, c *Contract) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&Contract{}, id).Error
}

func (r *repository) TransitionSignature(ctx context.Context, id int64, from, to SignatureStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["signature_status"] = to

	res := r.db.WithContext(ctx).
		Model(&Contract{}).
		Where("id = ? AND signature_status = ?", id, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ResetSignature(ctx context.Context, id int64, actor string) error {
	res := r.db.WithContext(ctx).
		Model(&Contract{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"signature_status":  SignatureAwaiting,
			"signature_hash":    nil,
			"digital_signature": nil,
			"signed_at":         nil,
			"updated_by":        actor,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Cancel(ctx context.Context, id int64, actor string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Contract{}).
		Where("id = ? AND renewal_status <> ?", id, RenewalCancelled).
		Updates(map[string]any{
			"renewal_status": RenewalCancelled,
			"updated_by":     actor,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) LinkSuccessor(ctx context.Context, predecessorID, successorID int64, requireStatus RenewalStatus) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&Contract{}).
		Where("id = ? AND next_contract_id IS NULL", predecessorID)
	if requireStatus != "" {
		q = q.Where("renewal_status = ?", requireStatus)
	}
	res := q.Updates(map[string]any{
		"next_contract_id": successorID,
		"renewal_status":   RenewalRenewed,
	})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ListBillable(ctx context.Context, now time.Time) ([]*Contract, error) {
	var contracts []*Contract
	err := r.db.WithContext(ctx).
		Where("signature_status = ?", SignatureReleased).
		Where("renewal_status <> ?", RenewalCancelled).
		Where("next_payment_date IS NOT NULL AND next_payment_date <= ?", now).
		Order("next_payment_date ASC").
		Find(&contracts).Error
	return contracts, err
}

func (r *repository) AdvancePaymentDate(ctx context.Context, id int64, from, to time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Contract{}).
		Where("id = ? AND next_payment_date = ?", id, from).
		Update("next_payment_date", to)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ListRenewalCandidates(ctx context.Context) ([]*Contract, error) {
	var contracts []*Contract
	err := r.db.WithContext(ctx).
		Where("vigencia_end IS NOT NULL").
		Where("renewal_status IN ?", []RenewalStatus{RenewalAuto, RenewalManual}).
		Where("next_contract_id IS NULL").
		Order("vigencia_end ASC").
		Find(&contracts).Error
	return contracts, err
}
