package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/identity"
	"github.com/edcadet10/tikes/internal/localstore"

	"github.com/rs/zerolog/log"
)

// Orchestrator runs complete sync cycles: push first (local work out), then
// pull (server changes in). A mutex guarantees single-flight — the manual
// "sync now" button and the background ticker can fire together without
// interleaving two cycles. Lock acquisition never blocks: a second caller
// gets ErrSyncInProgress immediately.
type Orchestrator struct {
	mu      sync.Mutex
	store   localstore.Store
	ids     *identity.Resolver
	api     API
	timeout time.Duration

	pusher *Pusher
	puller *Puller
}

func NewOrchestrator(store localstore.Store, ids *identity.Resolver, api API, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		store:   store,
		ids:     ids,
		api:     api,
		timeout: timeout,
		pusher:  NewPusher(store, ids),
		puller:  NewPuller(store, ids),
	}
}

// Outcome reports one finished cycle. A cycle that pushed some entities and
// then lost the network is Partial, not failed: confirmed work stays
// confirmed.
type Outcome struct {
	Attempted int
	Applied   int
	Conflicts int
	Pulled    int
	Warnings  []dto.SyncWarning
	Partial   bool
	Err       error
	Duration  time.Duration
}

// Message renders the outcome for the status line on the register.
func (o *Outcome) Message() string {
	switch {
	case o.Err != nil && o.Applied == 0:
		return fmt.Sprintf("sync failed: %v", o.Err)
	case o.Partial:
		return fmt.Sprintf("synced %d of %d — will retry the rest", o.Applied, o.Attempted)
	case o.Attempted == 0:
		return "up to date"
	default:
		return fmt.Sprintf("synced %d of %d", o.Applied, o.Attempted)
	}
}

// WarmUp loads all persisted id mappings into the resolver. Call once at
// startup, before the first cycle.
func (o *Orchestrator) WarmUp(ctx context.Context) error {
	kinds := []string{
		identity.KindCategory, identity.KindProduct, identity.KindCustomer,
		identity.KindSale, identity.KindCreditTransaction,
	}
	for _, kind := range kinds {
		pairs, err := o.store.IdentityPairs(ctx, kind)
		if err != nil {
			return fmt.Errorf("load %s mappings: %w", kind, err)
		}
		if err := o.ids.Load(kind, pairs); err != nil {
			return err
		}
	}
	return nil
}

// Sync runs one push-then-pull cycle under the single-flight lock and a
// deadline covering the whole cycle. AuthError aborts and surfaces as the
// outcome error; NetworkError downgrades the cycle to partial — everything
// unconfirmed is still pending and the next cycle retries it.
func (o *Orchestrator) Sync(ctx context.Context) (*Outcome, error) {
	if !o.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer o.mu.Unlock()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	outcome := &Outcome{}

	pushRes, err := o.pusher.Run(ctx, o.api)
	if pushRes != nil {
		outcome.Attempted = pushRes.Attempted
		outcome.Applied = pushRes.Applied
		outcome.Conflicts = pushRes.Conflicts
		outcome.Warnings = append(outcome.Warnings, pushRes.Warnings...)
	}
	if err != nil {
		outcome.Err = err
		outcome.Duration = time.Since(start)
		if IsAuth(err) {
			log.Error().Err(err).Msg("sync cycle aborted: authentication")
			return outcome, err
		}
		// Transient: skip the pull, keep what was confirmed.
		outcome.Partial = outcome.Applied > 0
		log.Warn().Err(err).Msg("push direction failed, cycle ends early")
		return outcome, err
	}

	pullRes, err := o.puller.Run(ctx, o.api)
	if pullRes != nil {
		outcome.Pulled = pullRes.Merged
		outcome.Warnings = append(outcome.Warnings, pullRes.Warnings...)
	}
	if err != nil {
		outcome.Err = err
		outcome.Partial = true
		outcome.Duration = time.Since(start)
		if IsAuth(err) {
			log.Error().Err(err).Msg("sync cycle aborted: authentication")
			return outcome, err
		}
		log.Warn().Err(err).Msg("pull direction failed, watermark unchanged")
		return outcome, err
	}

	outcome.Duration = time.Since(start)
	log.Info().
		Int("applied", outcome.Applied).
		Int("attempted", outcome.Attempted).
		Int("pulled", outcome.Pulled).
		Dur("took", outcome.Duration).
		Msg("sync cycle complete")

	return outcome, nil
}
