package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edcadet10/tikes/internal/config"
	"github.com/edcadet10/tikes/internal/engine"
	"github.com/edcadet10/tikes/internal/identity"
	"github.com/edcadet10/tikes/internal/infra"
	"github.com/edcadet10/tikes/internal/ledger"
	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/pos"
	"github.com/edcadet10/tikes/internal/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// syncd is the device-side daemon. It serves the register's point of sale
// on the loopback interface and keeps the local SQLite store reconciled
// with the server, cycling every SYNC_INTERVAL_SEC and once immediately at
// startup. SIGHUP or POST /sync triggers an extra cycle on demand.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewLocalDB(cfg.LocalDBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.LocalDBPath).Msg("failed to open local database")
	}

	store, err := localstore.New(db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare local store")
	}

	tokens := infra.NewPinTokenSource(cfg.APIBaseURL, cfg.DevicePhone, cfg.DevicePIN)
	client := infra.NewSyncClient(cfg.APIBaseURL, tokens)

	ids := identity.NewResolver()
	orch := engine.NewOrchestrator(store, ids, client, cfg.SyncTimeout())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.WarmUp(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to warm identity resolver")
	}

	// The register's local surface: sales, catalog, credit ledger, and a
	// manual sync trigger, all against the local store.
	books := ledger.New(store)
	register := pos.NewService(store, books, decimal.NewFromFloat(cfg.DeviceTaxRate))
	posSrv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.PosPort),
		Handler: router.Device(register, books, store, orch),
	}
	go func() {
		log.Info().Str("addr", posSrv.Addr).Msg("pos surface listening")
		if err := posSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("pos surface failed")
		}
	}()

	runCycle := func() {
		outcome, err := orch.Sync(ctx)
		switch {
		case errors.Is(err, engine.ErrSyncInProgress):
			log.Debug().Msg("cycle skipped, previous one still running")
		case err != nil && engine.IsAuth(err):
			log.Error().Err(err).Msg("authentication failed, check DEVICE_PHONE / DEVICE_PIN")
		case err != nil:
			log.Warn().Str("status", outcome.Message()).Msg("cycle incomplete")
		default:
			log.Info().Str("status", outcome.Message()).Msg("cycle done")
		}
	}

	log.Info().
		Str("server", cfg.APIBaseURL).
		Dur("interval", cfg.SyncInterval()).
		Msg("syncd started")

	runCycle()

	ticker := time.NewTicker(cfg.SyncInterval())
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	kick := make(chan os.Signal, 1)
	signal.Notify(kick, syscall.SIGHUP)

	for {
		select {
		case <-ticker.C:
			runCycle()
		case <-kick:
			log.Info().Msg("manual sync requested")
			runCycle()
		case <-quit:
			log.Info().Msg("syncd shutting down")
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			_ = posSrv.Shutdown(shutdownCtx)
			done()
			cancel()
			return
		}
	}
}
