package repository

import (
	"context"

	"github.com/edcadet10/tikes/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryRepository interface {
	// UpsertByLocalID is an atomic check-then-write on the (business_id,
	// local_id) unique index: create if absent, else update mutable fields
	// only (created_at never regresses).
	UpsertByLocalID(ctx context.Context, c *model.Category) error
	FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.Category, error)
	FindByID(ctx context.Context, businessID, id uint) (*model.Category, error)
	ListAll(ctx context.Context, businessID uint) ([]model.Category, error)
}

type categoryRepo struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository { return &categoryRepo{db: db} }

func (r *categoryRepo) UpsertByLocalID(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "business_id"}, {Name: "local_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "icon", "sort_order", "updated_at",
		}),
	}).Create(c).Error
}

func (r *categoryRepo) FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND local_id = ?", businessID, localID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) FindByID(ctx context.Context, businessID, id uint) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) ListAll(ctx context.Context, businessID uint) ([]model.Category, error) {
	var cats []model.Category
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("sort_order ASC").
		Find(&cats).Error
	return cats, err
}
