package repository

import (
	"context"

	"github.com/edcadet10/tikes/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreditTransactionRepository interface {
	// CreateIfAbsent appends the transaction unless its localId is already
	// present (ON CONFLICT DO NOTHING). Returns true when a row was actually
	// inserted — a retried push reports the duplicate as already applied
	// without double-counting it.
	CreateIfAbsent(ctx context.Context, t *model.CreditTransaction) (bool, error)
	FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.CreditTransaction, error)
	ListByCustomer(ctx context.Context, businessID uint, customerLocalID string) ([]model.CreditTransaction, error)
}

type creditTransactionRepo struct{ db *gorm.DB }

func NewCreditTransactionRepository(db *gorm.DB) CreditTransactionRepository {
	return &creditTransactionRepo{db: db}
}

func (r *creditTransactionRepo) CreateIfAbsent(ctx context.Context, t *model.CreditTransaction) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}, {Name: "local_id"}},
		DoNothing: true,
	}).Create(t)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *creditTransactionRepo) FindByLocalID(ctx context.Context, businessID uint, localID string) (*model.CreditTransaction, error) {
	var t model.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND local_id = ?", businessID, localID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *creditTransactionRepo) ListByCustomer(ctx context.Context, businessID uint, customerLocalID string) ([]model.CreditTransaction, error) {
	var txs []model.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND customer_local_id = ?", businessID, customerLocalID).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}
