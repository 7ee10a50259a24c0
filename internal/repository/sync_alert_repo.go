package repository

import (
	"context"
	"time"

	"github.com/edcadet10/tikes/internal/model"

	"gorm.io/gorm"
)

type SyncAlertRepository interface {
	Create(ctx context.Context, a *model.SyncAlert) error
	FindByID(ctx context.Context, id uint) (*model.SyncAlert, error)
	Update(ctx context.Context, a *model.SyncAlert) error
	// ListPendingRetries returns alerts whose next attempt is due, for the
	// retry cron.
	ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.SyncAlert, error)
}

type syncAlertRepo struct{ db *gorm.DB }

func NewSyncAlertRepository(db *gorm.DB) SyncAlertRepository { return &syncAlertRepo{db: db} }

func (r *syncAlertRepo) Create(ctx context.Context, a *model.SyncAlert) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *syncAlertRepo) FindByID(ctx context.Context, id uint) (*model.SyncAlert, error) {
	var a model.SyncAlert
	err := r.db.WithContext(ctx).First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *syncAlertRepo) Update(ctx context.Context, a *model.SyncAlert) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *syncAlertRepo) ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.SyncAlert, error) {
	var alerts []model.SyncAlert
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", model.AlertPending, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}
