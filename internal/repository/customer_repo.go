package repository

import (
	"context"
	"time"

	"github.com/edcadet10/tikes/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	UpsertByLocalID(ctx context.Context, c *model.Customer) error
	FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.Customer, error)
	FindByID(ctx context.Context, businessID, id uint) (*model.Customer, error)
	ListSince(ctx context.Context, businessID uint, since time.Time) ([]model.Customer, error)
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepo{db: db} }

func (r *customerRepo) UpsertByLocalID(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "business_id"}, {Name: "local_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "phone", "notes", "total_purchases", "credit_balance", "updated_at",
		}),
	}).Create(c).Error
}

func (r *customerRepo) FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND local_id = ?", businessID, localID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) FindByID(ctx context.Context, businessID, id uint) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) ListSince(ctx context.Context, businessID uint, since time.Time) ([]model.Customer, error) {
	var customers []model.Customer
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND updated_at >= ?", businessID, since).
		Find(&customers).Error
	return customers, err
}
