package notification

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	MarkRead(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, clientID int64, unreadOnly bool, limit, offset int) ([]*Notification, int64, error)

	// ExistsFor reports whether a notification of the given kind was
	// already recorded for the contract, so periodic jobs do not spam.
	ExistsFor(ctx context.Context, kind Kind, contractID int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, n *Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *repository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": StatusSent, "sent_at": at}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id int64, reason string) error {
	if len(reason) > 512 {
		reason = reason[:512]
	}
	return r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": StatusFailed, "error": reason}).Error
}

// MarkRead is idempotent; the first read timestamp wins.
func (r *repository) MarkRead(ctx context.Context, id int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", id).
		Update("read_at", gorm.Expr("COALESCE(read_at, ?)", at))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, clientID int64, unreadOnly bool, limit, offset int) ([]*Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&Notification{})
	if clientID > 0 {
		q = q.Where("client_id = ?", clientID)
	}
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*Notification
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, total, err
}

func (r *repository) ExistsFor(ctx context.Context, kind Kind, contractID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("kind = ? AND contract_id = ?", kind, contractID).
		Count(&count).Error
	return count > 0, err
}
