package repository

import (
	"context"
	"time"

	"github.com/edcadet10/tikes/internal/model"

	"gorm.io/gorm"
)

type SaleRepository interface {
	// Create inserts a sale with its nested items and payments in one
	// transaction — a sale is never materialized partially.
	Create(ctx context.Context, s *model.Sale) error
	// FindByLocalID is the idempotence guard: a sale already present under
	// the same localId must never be re-inserted.
	FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.Sale, error)
	// UpdateHeader applies the one mutation a stored sale permits: the
	// header status and notes (completed → voided). Items and payments
	// stay immutable.
	UpdateHeader(ctx context.Context, id uint, status string, notes *string, updatedAt time.Time) error
	ListSince(ctx context.Context, businessID uint, since time.Time) ([]model.Sale, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) Create(ctx context.Context, s *model.Sale) error {
	// GORM inserts associations with the parent inside one transaction.
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *saleRepo) FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND local_id = ?", businessID, localID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) UpdateHeader(ctx context.Context, id uint, status string, notes *string, updatedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"notes":      notes,
			"updated_at": updatedAt,
		}).Error
}

func (r *saleRepo) ListSince(ctx context.Context, businessID uint, since time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Payments").
		Where("business_id = ? AND updated_at >= ?", businessID, since).
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}
