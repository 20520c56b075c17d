package repository

import (
	"context"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueRepository is the durable store behind the offline sync queue.
// Append must succeed with no network in sight; acknowledged entries are
// removed, everything else stays pending.
type QueueRepository interface {
	Append(ctx context.Context, entry *model.QueuedSaleEntry) error
	ListPending(ctx context.Context) ([]model.QueuedSaleEntry, error)
	// Ack marks the given sale ids synced and removes their entries.
	Ack(ctx context.Context, saleIDs []uuid.UUID) error
	CountPending(ctx context.Context) (int64, error)
}

type queueRepo struct{ db *gorm.DB }

func NewQueueRepository(db *gorm.DB) QueueRepository { return &queueRepo{db: db} }

func (r *queueRepo) Append(ctx context.Context, entry *model.QueuedSaleEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *queueRepo) ListPending(ctx context.Context) ([]model.QueuedSaleEntry, error) {
	var entries []model.QueuedSaleEntry
	err := r.db.WithContext(ctx).
		Preload("Sale.Items").
		Preload("Sale.Payments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("status = ?", model.QueuePending).
		Order("queued_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *queueRepo) Ack(ctx context.Context, saleIDs []uuid.UUID) error {
	if len(saleIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("sale_id IN ?", saleIDs).
		Delete(&model.QueuedSaleEntry{}).Error
}

func (r *queueRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.QueuedSaleEntry{}).
		Where("status = ?", model.QueuePending).
		Count(&n).Error
	return n, err
}
