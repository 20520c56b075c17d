package repository

import (
	"context"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OperatorRepository interface {
	Create(ctx context.Context, op *model.Operator) error
	FindByCode(ctx context.Context, code string) (*model.Operator, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Operator, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type operatorRepo struct{ db *gorm.DB }

func NewOperatorRepository(db *gorm.DB) OperatorRepository { return &operatorRepo{db: db} }

func (r *operatorRepo) Create(ctx context.Context, op *model.Operator) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *operatorRepo) FindByCode(ctx context.Context, code string) (*model.Operator, error) {
	var op model.Operator
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = true", code).
		First(&op).Error
	return &op, err
}

func (r *operatorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	var op model.Operator
	err := r.db.WithContext(ctx).First(&op, id).Error
	return &op, err
}

func (r *operatorRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Operator{}).Where("id = ?", id).Update("active", false).Error
}
