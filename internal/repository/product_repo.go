package repository

import (
	"context"
	"time"

	"github.com/edcadet10/tikes/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	UpsertByLocalID(ctx context.Context, p *model.Product) error
	FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.Product, error)
	FindByID(ctx context.Context, businessID, id uint) (*model.Product, error)
	ListSince(ctx context.Context, businessID uint, since time.Time) ([]model.Product, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) UpsertByLocalID(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "business_id"}, {Name: "local_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "price", "cost", "barcode", "category_id", "category_local_id",
			"stock_quantity", "low_stock_alert", "unit_type", "image_url",
			"is_active", "updated_at",
		}),
	}).Create(p).Error
}

func (r *productRepo) FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND local_id = ?", businessID, localID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindByID(ctx context.Context, businessID, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ListSince(ctx context.Context, businessID uint, since time.Time) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND updated_at >= ?", businessID, since).
		Find(&products).Error
	return products, err
}
