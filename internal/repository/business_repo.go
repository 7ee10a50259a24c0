package repository

import (
	"context"

	"github.com/edcadet10/tikes/internal/model"

	"gorm.io/gorm"
)

type BusinessRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Business, error)
	Create(ctx context.Context, b *model.Business) error
}

type businessRepo struct{ db *gorm.DB }

func NewBusinessRepository(db *gorm.DB) BusinessRepository { return &businessRepo{db: db} }

func (r *businessRepo) FindByID(ctx context.Context, id uint) (*model.Business, error) {
	var b model.Business
	err := r.db.WithContext(ctx).First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *businessRepo) Create(ctx context.Context, b *model.Business) error {
	return r.db.WithContext(ctx).Create(b).Error
}
