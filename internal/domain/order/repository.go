package order

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, o *ServiceOrder) error
	GetByID(ctx context.Context, id int64) (*ServiceOrder, error)
	List(ctx context.Context, clientID int64, status Status, limit, offset int) ([]*ServiceOrder, int64, error)

	// Transition moves the order from -> to only if it is still in from,
	// applying updates in the same statement. A false return means the
	// order moved under the caller.
	Transition(ctx context.Context, id int64, from, to Status, updates map[string]any) (bool, error)

	CreateTemplate(ctx context.Context, item *ChecklistItem) error
	ListTemplates(ctx context.Context, t Type) ([]*ChecklistItem, error)
	SetTemplateActive(ctx context.Context, id int64, active bool) error

	CreateProgress(ctx context.Context, rows []*ChecklistProgress) error
	ListProgress(ctx context.Context, orderID int64) ([]*ChecklistProgress, error)
	GetProgress(ctx context.Context, orderID, entryID int64) (*ChecklistProgress, error)
	UpdateProgress(ctx context.Context, p *ChecklistProgress) error

	// SkipPendingMandatory settles every open mandatory line as skipped,
	// recording who forced it. Returns how many lines were affected.
	SkipPendingMandatory(ctx context.Context, orderID int64, actor string, at time.Time) (int64, error)

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

func (r *repository) Create(ctx context.Context, o *ServiceOrder) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*ServiceOrder, error) {
	var o ServiceOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) List(ctx context.Context, clientID int64, status Status, limit, offset int) ([]*ServiceOrder, int64, error) {
	q := r.db.WithContext(ctx).Model(&ServiceOrder{})
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

	var out []*ServiceOrder
	err := q.Order("opened_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, total, err
}

func (r *repository) Transition(ctx context.Context, id int64, from, to Status, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	res := r.db.WithContext(ctx).Model(&ServiceOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateTemplate(ctx context.Context, item *ChecklistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) ListTemplates(ctx context.Context, t Type) ([]*ChecklistItem, error) {
	var out []*ChecklistItem
	err := r.db.WithContext(ctx).
		Where("order_type = ? AND active = ?", t, true).
		Order("display_order ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *repository) SetTemplateActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).Model(&ChecklistItem{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *repository) CreateProgress(ctx context.Context, rows []*ChecklistProgress) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

func (r *repository) ListProgress(ctx context.Context, orderID int64) ([]*ChecklistProgress, error) {
	var out []*ChecklistProgress
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("display_order ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *repository) GetProgress(ctx context.Context, orderID, entryID int64) (*ChecklistProgress, error) {
	var p ChecklistProgress
	err := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", entryID, orderID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) UpdateProgress(ctx context.Context, p *ChecklistProgress) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *repository) SkipPendingMandatory(ctx context.Context, orderID int64, actor string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&ChecklistProgress{}).
		Where("order_id = ? AND mandatory = ? AND completed = ? AND skipped = ?", orderID, true, false, false).
		Updates(map[string]any{
			"skipped":      true,
			"completed_by": actor,
			"completed_at": at,
		})
	return res.RowsAffected, res.Error
}
