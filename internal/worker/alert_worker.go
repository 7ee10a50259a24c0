package worker

// alert_worker.go
// Processes sync alert jobs from QueueAlerts: mails the alert to the
// business owner. A failed send schedules the alert for the retry cron
// instead of blocking the queue.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edcadet10/tikes/internal/infra"
	"github.com/edcadet10/tikes/internal/model"
	"github.com/edcadet10/tikes/internal/repository"

	"github.com/rs/zerolog/log"
)

// AlertJobPayload is the job envelope sent to QueueAlerts.
type AlertJobPayload struct {
	AlertID uint `json:"alert_id"`
}

type AlertWorker struct {
	alerts     repository.SyncAlertRepository
	businesses repository.BusinessRepository
	mailer     *infra.Mailer
	cb         *infra.CircuitBreaker
}

func NewAlertWorker(alerts repository.SyncAlertRepository, businesses repository.BusinessRepository, mailer *infra.Mailer, cb *infra.CircuitBreaker) *AlertWorker {
	return &AlertWorker{alerts: alerts, businesses: businesses, mailer: mailer, cb: cb}
}

func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload AlertJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return
	}

	alert, err := w.alerts.FindByID(ctx, payload.AlertID)
	if err != nil {
		log.Error().Err(err).Uint("alert_id", payload.AlertID).Msg("alert_worker: alert not found")
		return
	}
	if alert.Status != model.AlertPending {
		return // already handled by a retry or another worker
	}

	if err := w.Send(ctx, alert); err != nil {
		// Hand off to the retry cron rather than retrying inline.
		alert.RetryCount++
		errMsg := err.Error()
		alert.LastError = &errMsg
		next := time.Now().Add(RetryBackoff(alert.RetryCount))
		alert.NextRetryAt = &next
		if updErr := w.alerts.Update(ctx, alert); updErr != nil {
			log.Error().Err(updErr).Uint("alert_id", alert.ID).Msg("alert_worker: failed to schedule retry")
		}
		log.Warn().Err(err).Uint("alert_id", alert.ID).Time("next_retry_at", next).Msg("alert_worker: send failed, scheduled retry")
		return
	}

	alert.Status = model.AlertSent
	alert.NextRetryAt = nil
	alert.LastError = nil
	if err := w.alerts.Update(ctx, alert); err != nil {
		log.Error().Err(err).Uint("alert_id", alert.ID).Msg("alert_worker: failed to mark sent")
		return
	}
	log.Info().Uint("alert_id", alert.ID).Msg("alert_worker: alert sent")
}

// Send mails one alert to its business owner through the SMTP circuit
// breaker. Shared with the retry cron.
func (w *AlertWorker) Send(ctx context.Context, alert *model.SyncAlert) error {
	biz, err := w.businesses.FindByID(ctx, alert.BusinessID)
	if err != nil {
		return fmt.Errorf("load business %d: %w", alert.BusinessID, err)
	}
	if biz.Email == nil || *biz.Email == "" {
		return fmt.Errorf("business %d has no owner email", alert.BusinessID)
	}

	subject := fmt.Sprintf("[%s] Sync issue: %s", biz.Name, alert.Kind)
	body := fmt.Sprintf(
		"A synchronization issue needs your attention.\n\n"+
			"Kind:    %s\nEntity:  %s (%s)\nDetail:  %s\nAt:      %s\n",
		alert.Kind, alert.EntityType, alert.EntityLocalID, alert.Detail,
		alert.CreatedAt.Format(time.RFC3339))

	return w.cb.Execute(func() error {
		return w.mailer.SendAlert(*biz.Email, subject, body)
	})
}
