package repository

import (
	"context"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShiftRepository is the append-only durable log behind the ledger.
// Shift rows are created at open and updated exactly once, at close;
// movements are only ever appended.
type ShiftRepository interface {
	// CreateShift persists the shift row together with any movements
	// already attached to it (the opening inflow) in a single
	// transaction, so a half-opened shift can never hit storage.
	CreateShift(ctx context.Context, s *model.CashShift) error
	FindOpenShift(ctx context.Context, registerID string) (*model.CashShift, error)
	FindShiftByID(ctx context.Context, id uuid.UUID) (*model.CashShift, error)
	AppendMovement(ctx context.Context, m *model.ShiftMovement) error
	// CloseShift persists the frozen shift with its reconciliation fields
	// and per-method totals in a single transaction.
	CloseShift(ctx context.Context, s *model.CashShift) error
	ListClosedShifts(ctx context.Context, registerID string, limit int) ([]model.CashShift, error)
}

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) CreateShift(ctx context.Context, s *model.CashShift) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Movements", "Sales", "PaymentTotals").Create(s).Error; err != nil {
			return err
		}
		for i := range s.Movements {
			s.Movements[i].ShiftID = s.ID
			if err := tx.Create(&s.Movements[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *shiftRepo) FindOpenShift(ctx context.Context, registerID string) (*model.CashShift, error) {
	var s model.CashShift
	err := r.db.WithContext(ctx).
		Preload("Movements", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Sales.Items").
		Preload("Sales.Payments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("register_id = ? AND status = ?", registerID, model.ShiftOpen).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *shiftRepo) FindShiftByID(ctx context.Context, id uuid.UUID) (*model.CashShift, error) {
	var s model.CashShift
	err := r.db.WithContext(ctx).
		Preload("Movements", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("PaymentTotals").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *shiftRepo) AppendMovement(ctx context.Context, m *model.ShiftMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *shiftRepo) CloseShift(ctx context.Context, s *model.CashShift) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Movements", "Sales", "PaymentTotals").Save(s).Error; err != nil {
			return err
		}
		for i := range s.PaymentTotals {
			s.PaymentTotals[i].ShiftID = s.ID
			if err := tx.Create(&s.PaymentTotals[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *shiftRepo) ListClosedShifts(ctx context.Context, registerID string, limit int) ([]model.CashShift, error) {
	var shifts []model.CashShift
	err := r.db.WithContext(ctx).
		Preload("PaymentTotals").
		Where("register_id = ? AND status = ?", registerID, model.ShiftClosed).
		Order("closed_at DESC").
		Limit(limit).
		Find(&shifts).Error
	return shifts, err
}
