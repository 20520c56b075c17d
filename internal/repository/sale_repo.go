package repository

import (
	"context"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleRepository persists immutable sale records. No update or delete —
// a sale that must be undone gets a compensating entry elsewhere.
type SaleRepository interface {
	Create(ctx context.Context, sale *model.SaleRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SaleRecord, error)
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]model.SaleRecord, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) Create(ctx context.Context, sale *model.SaleRecord) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SaleRecord, error) {
	var s model.SaleRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]model.SaleRecord, error) {
	var sales []model.SaleRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("shift_id = ?", shiftID).
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}
