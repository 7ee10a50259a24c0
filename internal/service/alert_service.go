package service

import (
	"context"
	"time"

	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/model"
	"github.com/edcadet10/tikes/internal/repository"
	"github.com/edcadet10/tikes/internal/worker"

	"github.com/rs/zerolog/log"
)

// AlertService fans push-batch findings out to the owner notification
// pipeline: one SyncAlert row plus one queued delivery job per finding.
// Recording is best-effort — a full Redis or a slow insert must never fail
// the push that produced the finding.
type AlertService interface {
	RecordPushIssues(ctx context.Context, businessID uint, errs []dto.EntityError, warnings []dto.SyncWarning)
}

type alertService struct {
	alerts     repository.SyncAlertRepository
	dispatcher *worker.Dispatcher
}

func NewAlertService(alerts repository.SyncAlertRepository, dispatcher *worker.Dispatcher) AlertService {
	return &alertService{alerts: alerts, dispatcher: dispatcher}
}

func (s *alertService) RecordPushIssues(ctx context.Context, businessID uint, errs []dto.EntityError, warnings []dto.SyncWarning) {
	for _, e := range errs {
		// Internal errors are operator problems, not data-quality findings.
		if e.Code == dto.ErrCodeInternal {
			continue
		}
		kind := model.AlertEntityConflict
		if e.Code == dto.ErrCodeUnresolved {
			kind = model.AlertUnresolvedReference
		}
		s.record(ctx, &model.SyncAlert{
			BusinessID:    businessID,
			Kind:          kind,
			EntityType:    e.EntityType,
			EntityLocalID: e.LocalID,
			Detail:        e.Reason,
			Status:        model.AlertPending,
		})
	}
	for _, w := range warnings {
		s.record(ctx, &model.SyncAlert{
			BusinessID:    businessID,
			Kind:          model.AlertUnresolvedReference,
			EntityType:    w.EntityType,
			EntityLocalID: w.LocalID,
			Detail:        w.Field + ": " + w.Detail,
			Status:        model.AlertPending,
		})
	}
}

func (s *alertService) record(ctx context.Context, alert *model.SyncAlert) {
	if err := s.alerts.Create(ctx, alert); err != nil {
		log.Error().Err(err).Str("entity", alert.EntityLocalID).Msg("failed to record sync alert")
		return
	}
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueAlert(ctx, worker.AlertJobPayload{AlertID: alert.ID}); err != nil {
		// Hand the alert to the retry cron instead of losing it.
		now := time.Now()
		alert.NextRetryAt = &now
		errMsg := err.Error()
		alert.LastError = &errMsg
		_ = s.alerts.Update(ctx, alert)
		log.Error().Err(err).Uint("alert_id", alert.ID).Msg("failed to enqueue sync alert")
	}
}
