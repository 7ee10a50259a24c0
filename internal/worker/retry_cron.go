package worker

// retry_cron.go
// Background goroutine that periodically re-attempts alert mail for alerts
// stuck in status='pending' with a next_retry_at in the past. Uses the SMTP
// circuit breaker to avoid hammering a downed mail server.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edcadet10/tikes/internal/infra"
	"github.com/edcadet10/tikes/internal/model"
	"github.com/edcadet10/tikes/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10

	// MaxAlertRetries caps delivery attempts before an alert is parked in
	// error status and moved to the DLQ.
	MaxAlertRetries = 5
)

// RetryBackoff returns the delay before attempt n+1: 1m, 2m, 4m... capped
// at 30 minutes. Out-of-range attempts clamp rather than shift negatively.
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Minute << (attempt - 1)
	if d <= 0 || d > 30*time.Minute {
		return 30 * time.Minute
	}
	return d
}

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	AlertRepo repository.SyncAlertRepository
	Worker    *AlertWorker
	CB        *infra.CircuitBreaker
	RDB       *redis.Client
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries overdue pending alerts, and re-attempts delivery through the CB.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed mail server
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	alerts, err := cfg.AlertRepo.ListPendingRetries(ctx, time.Now(), retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}
	if len(alerts) == 0 {
		return
	}

	log.Info().Int("count", len(alerts)).Msg("retry_cron: processing pending alerts")

	for i := range alerts {
		alert := &alerts[i]

		// Check CB state before each call — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		if err := cfg.Worker.Send(ctx, alert); err != nil {
			alert.RetryCount++
			errMsg := err.Error()
			alert.LastError = &errMsg

			if alert.RetryCount >= MaxAlertRetries {
				alert.Status = model.AlertError
				alert.NextRetryAt = nil
				log.Error().
					Uint("alert_id", alert.ID).
					Int("retries", alert.RetryCount).
					Msg("retry_cron: max retries exceeded, moving to error/DLQ")

				payload, _ := json.Marshal(AlertJobPayload{AlertID: alert.ID})
				SendToDLQ(ctx, cfg.RDB, QueueAlerts, "alert", payload,
					fmt.Sprintf("max retries (%d) exceeded: %s", MaxAlertRetries, errMsg),
					alert.RetryCount)
			} else {
				next := time.Now().Add(RetryBackoff(alert.RetryCount))
				alert.NextRetryAt = &next
				log.Warn().
					Uint("alert_id", alert.ID).
					Int("retry_count", alert.RetryCount).
					Time("next_retry_at", next).
					Msg("retry_cron: alert retry failed, scheduled next attempt")
			}

			_ = cfg.AlertRepo.Update(ctx, alert)
			continue
		}

		alert.Status = model.AlertSent
		alert.NextRetryAt = nil
		alert.LastError = nil
		_ = cfg.AlertRepo.Update(ctx, alert)

		log.Info().
			Uint("alert_id", alert.ID).
			Int("total_retries", alert.RetryCount).
			Msg("retry_cron: alert delivered after retry")
	}
}
