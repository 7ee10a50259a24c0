package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/identity"
	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI scripts the server side of a cycle.
type fakeAPI struct {
	pushFn    func(ctx context.Context, req dto.PushRequest) (*dto.PushResponse, error)
	pullFn    func(ctx context.Context, since time.Time) (*dto.PullResponse, error)
	pushCalls int
	pullCalls int
	lastPush  dto.PushRequest
}

func (f *fakeAPI) Push(ctx context.Context, req dto.PushRequest) (*dto.PushResponse, error) {
	f.pushCalls++
	f.lastPush = req
	if f.pushFn == nil {
		return &dto.PushResponse{SyncedAt: time.Now().UTC()}, nil
	}
	return f.pushFn(ctx, req)
}

func (f *fakeAPI) Pull(ctx context.Context, since time.Time) (*dto.PullResponse, error) {
	f.pullCalls++
	if f.pullFn == nil {
		return &dto.PullResponse{SyncedAt: time.Now().UTC()}, nil
	}
	return f.pullFn(ctx, since)
}

func pendingCustomer(t *testing.T, store localstore.Store, localID string) *model.Customer {
	t.Helper()
	c := &model.Customer{
		BusinessID: 1,
		SyncMeta:   model.SyncMeta{LocalID: localID, SyncStatus: model.SyncPending},
		Name:       "Jean",
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.SaveCustomer(context.Background(), c))
	return c
}

// ── Push ────────────────────────────────────────────────────────────────────

func TestPushMarksSyncedAndRecordsMapping(t *testing.T) {
	store := localstore.NewMemory()
	ids := identity.NewResolver()
	pusher := NewPusher(store, ids)
	pendingCustomer(t, store, "c-1")

	api := &fakeAPI{pushFn: func(_ context.Context, req dto.PushRequest) (*dto.PushResponse, error) {
		require.Len(t, req.Customers, 1)
		return &dto.PushResponse{
			Synced:   dto.PushCounts{Customers: 1},
			Mappings: dto.PushMappings{Customers: []dto.IDMapping{{LocalID: "c-1", ServerID: 42}}},
			SyncedAt: time.Now().UTC(),
		}, nil
	}}

	res, err := pusher.Run(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, 1, res.Applied)

	row, err := store.CustomerByLocalID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, model.SyncSynced, row.SyncStatus)
	require.NotNil(t, row.ServerID)
	assert.Equal(t, uint(42), *row.ServerID)

	sid, ok := ids.ServerID(identity.KindCustomer, "c-1")
	assert.True(t, ok)
	assert.Equal(t, uint(42), sid)
}

func TestPushEmptyBatchSkipsNetwork(t *testing.T) {
	store := localstore.NewMemory()
	pusher := NewPusher(store, identity.NewResolver())
	api := &fakeAPI{}

	res, err := pusher.Run(context.Background(), api)
	require.NoError(t, err)
	assert.Zero(t, res.Attempted)
	assert.Zero(t, api.pushCalls, "no pending rows means no HTTP round trip")
}

func TestPushValidationErrorParksConflict(t *testing.T) {
	store := localstore.NewMemory()
	pusher := NewPusher(store, identity.NewResolver())
	pendingCustomer(t, store, "c-bad")

	api := &fakeAPI{pushFn: func(context.Context, dto.PushRequest) (*dto.PushResponse, error) {
		return &dto.PushResponse{
			Errors: []dto.EntityError{{
				EntityType: identity.KindCustomer, LocalID: "c-bad",
				Code: dto.ErrCodeValidation, Reason: "name is required",
			}},
			SyncedAt: time.Now().UTC(),
		}, nil
	}}

	res, err := pusher.Run(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Conflicts)

	row, _ := store.CustomerByLocalID(context.Background(), "c-bad")
	assert.Equal(t, model.SyncConflict, row.SyncStatus)
}

func TestPushUnresolvedReferenceStaysPending(t *testing.T) {
	store := localstore.NewMemory()
	pusher := NewPusher(store, identity.NewResolver())

	tx := &model.CreditTransaction{
		BusinessID:      1,
		SyncMeta:        model.SyncMeta{LocalID: "ct-1", SyncStatus: model.SyncPending},
		CustomerLocalID: "c-elsewhere",
		Amount:          decimal.NewFromInt(100),
		Type:            model.CreditGiven,
		BalanceAfter:    decimal.NewFromInt(100),
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.SaveCreditTransaction(context.Background(), tx))

	api := &fakeAPI{pushFn: func(context.Context, dto.PushRequest) (*dto.PushResponse, error) {
		return &dto.PushResponse{
			Errors: []dto.EntityError{{
				EntityType: identity.KindCreditTransaction, LocalID: "ct-1",
				Code: dto.ErrCodeUnresolved, Reason: "customer reference could not be resolved",
			}},
			SyncedAt: time.Now().UTC(),
		}, nil
	}}

	res, err := pusher.Run(context.Background(), api)
	require.NoError(t, err)
	assert.Zero(t, res.Conflicts)

	row, _ := store.CreditTransactionByLocalID(context.Background(), "ct-1")
	assert.Equal(t, model.SyncPending, row.SyncStatus, "unresolved entities must wait for the next cycle")
}

func TestPushRetryAfterLostResponse(t *testing.T) {
	store := localstore.NewMemory()
	ids := identity.NewResolver()
	pusher := NewPusher(store, ids)
	pendingCustomer(t, store, "c-1")

	// First attempt: the server applies the row but the response is lost.
	fail := &fakeAPI{pushFn: func(context.Context, dto.PushRequest) (*dto.PushResponse, error) {
		return nil, &NetworkError{Op: "push", Err: errors.New("connection reset")}
	}}
	_, err := pusher.Run(context.Background(), fail)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))

	row, _ := store.CustomerByLocalID(context.Background(), "c-1")
	assert.Equal(t, model.SyncPending, row.SyncStatus)

	// Retry: the server reports the already-present row via its mapping and
	// the device converges without a duplicate.
	retry := &fakeAPI{pushFn: func(_ context.Context, req dto.PushRequest) (*dto.PushResponse, error) {
		require.Len(t, req.Customers, 1, "pending row must be retried")
		return &dto.PushResponse{
			Mappings: dto.PushMappings{Customers: []dto.IDMapping{{LocalID: "c-1", ServerID: 42}}},
			SyncedAt: time.Now().UTC(),
		}, nil
	}}
	res, err := pusher.Run(context.Background(), retry)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	row, _ = store.CustomerByLocalID(context.Background(), "c-1")
	assert.Equal(t, model.SyncSynced, row.SyncStatus)
}

func TestPushSendsReferencesInBothIDSpaces(t *testing.T) {
	store := localstore.NewMemory()
	ids := identity.NewResolver()
	pusher := NewPusher(store, ids)
	require.NoError(t, ids.Record(identity.KindCustomer, "c-1", 42))

	saleCustomer := "c-1"
	sale := &model.Sale{
		BusinessID:      1,
		SyncMeta:        model.SyncMeta{LocalID: "s-1", SyncStatus: model.SyncPending},
		CustomerLocalID: &saleCustomer,
		Subtotal:        decimal.NewFromInt(100),
		Total:           decimal.NewFromInt(100),
		Status:          model.SaleCompleted,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
		Items: []model.SaleItem{{
			ProductRef: "p-unsynced", ProductName: "Diri", Quantity: 2,
			UnitPrice: decimal.NewFromInt(50), Subtotal: decimal.NewFromInt(100),
		}},
	}
	require.NoError(t, store.SaveSale(context.Background(), sale))

	api := &fakeAPI{}
	_, err := pusher.Run(context.Background(), api)
	require.NoError(t, err)

	require.Len(t, api.lastPush.Sales, 1)
	wire := api.lastPush.Sales[0]
	require.NotNil(t, wire.CustomerID)
	assert.Equal(t, uint(42), *wire.CustomerID, "known server id travels alongside the localId")
	require.NotNil(t, wire.CustomerLocalID)
	assert.Equal(t, "c-1", *wire.CustomerLocalID)

	require.Len(t, wire.Items, 1)
	assert.Nil(t, wire.Items[0].ProductID, "unmapped product travels by localId only")
	assert.Equal(t, "p-unsynced", wire.Items[0].ProductLocalID)
}

// ── Pull ────────────────────────────────────────────────────────────────────

func TestPullInsertsFreshRowsAndAdvancesWatermark(t *testing.T) {
	store := localstore.NewMemory()
	ids := identity.NewResolver()
	puller := NewPuller(store, ids)

	serverClock := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	catID, custID := uint(3), uint(42)
	api := &fakeAPI{pullFn: func(_ context.Context, since time.Time) (*dto.PullResponse, error) {
		assert.True(t, since.IsZero(), "first pull is a full bootstrap")
		return &dto.PullResponse{
			Categories: []dto.CategoryPayload{{
				LocalID: "cat-1", ServerID: &catID, Name: "Drinks",
				CreatedAt: serverClock, UpdatedAt: serverClock,
			}},
			Customers: []dto.CustomerPayload{{
				LocalID: "c-1", ServerID: &custID, Name: "Jean",
				CreatedAt: serverClock, UpdatedAt: serverClock,
			}},
			SyncedAt: serverClock,
		}, nil
	}}

	res, err := puller.Run(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Merged)

	cat, err := store.CategoryByLocalID(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Equal(t, model.SyncSynced, cat.SyncStatus)

	wm, err := store.Watermark(context.Background())
	require.NoError(t, err)
	assert.True(t, wm.Equal(serverClock), "watermark must be the server clock")

	sid, ok := ids.ServerID(identity.KindCustomer, "c-1")
	assert.True(t, ok)
	assert.Equal(t, uint(42), sid)
}

func TestPullLastWriterWins(t *testing.T) {
	store := localstore.NewMemory()
	puller := NewPuller(store, identity.NewResolver())
	ctx := context.Background()

	newer := time.Now().UTC()
	older := newer.Add(-time.Hour)

	local := &model.Customer{
		BusinessID: 1,
		SyncMeta:   model.SyncMeta{LocalID: "c-1", SyncStatus: model.SyncSynced},
		Name:       "Jean (edited here)",
		CreatedAt:  older,
		UpdatedAt:  newer,
	}
	require.NoError(t, store.SaveCustomer(ctx, local))

	custID := uint(42)
	api := &fakeAPI{pullFn: func(context.Context, time.Time) (*dto.PullResponse, error) {
		return &dto.PullResponse{
			Customers: []dto.CustomerPayload{{
				LocalID: "c-1", ServerID: &custID, Name: "Jean (stale)",
				CreatedAt: older, UpdatedAt: older,
			}},
			SyncedAt: time.Now().UTC(),
		}, nil
	}}

	res, err := puller.Run(ctx, api)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)

	kept, _ := store.CustomerByLocalID(ctx, "c-1")
	assert.Equal(t, "Jean (edited here)", kept.Name, "older server copy must not clobber a newer local one")
}

func TestPullResolvesSaleReferencesLocally(t *testing.T) {
	store := localstore.NewMemory()
	puller := NewPuller(store, identity.NewResolver())
	ctx := context.Background()

	now := time.Now().UTC()
	prodSrv, custSrv, saleSrv := uint(7), uint(42), uint(99)
	custLocal := "c-1"

	api := &fakeAPI{pullFn: func(context.Context, time.Time) (*dto.PullResponse, error) {
		return &dto.PullResponse{
			Products: []dto.ProductPayload{{
				LocalID: "p-1", ServerID: &prodSrv, Name: "Diri",
				Price: decimal.NewFromInt(50), IsActive: true,
				CreatedAt: now, UpdatedAt: now,
			}},
			Customers: []dto.CustomerPayload{{
				LocalID: "c-1", ServerID: &custSrv, Name: "Jean",
				CreatedAt: now, UpdatedAt: now,
			}},
			Sales: []dto.SalePayload{{
				LocalID: "s-other-device", ServerID: &saleSrv,
				CustomerID: &custSrv, CustomerLocalID: &custLocal,
				Subtotal: decimal.NewFromInt(100), Total: decimal.NewFromInt(100),
				Status: model.SaleCompleted, CreatedAt: now, UpdatedAt: now,
				Items: []dto.SaleItemPayload{{
					ProductID: &prodSrv, ProductLocalID: "p-1", ProductName: "Diri",
					Quantity: 2, UnitPrice: decimal.NewFromInt(50), Subtotal: decimal.NewFromInt(100),
				}},
			}},
			SyncedAt: now,
		}, nil
	}}

	_, err := puller.Run(ctx, api)
	require.NoError(t, err)

	sale, err := store.SaleByLocalID(ctx, "s-other-device")
	require.NoError(t, err)
	require.NotNil(t, sale.CustomerID, "customer reference must resolve via exact localId lookup")
	require.Len(t, sale.Items, 1)
	assert.NotNil(t, sale.Items[0].ProductID)
	assert.Equal(t, "p-1", sale.Items[0].ProductRef)
}

func TestPullKeepsRawReferenceWhenUnresolvable(t *testing.T) {
	store := localstore.NewMemory()
	puller := NewPuller(store, identity.NewResolver())
	ctx := context.Background()
	now := time.Now().UTC()
	saleSrv := uint(99)

	api := &fakeAPI{pullFn: func(context.Context, time.Time) (*dto.PullResponse, error) {
		return &dto.PullResponse{
			Sales: []dto.SalePayload{{
				LocalID: "s-1", ServerID: &saleSrv,
				Subtotal: decimal.NewFromInt(10), Total: decimal.NewFromInt(10),
				Status: model.SaleCompleted, CreatedAt: now, UpdatedAt: now,
				Items: []dto.SaleItemPayload{{
					ProductLocalID: "p-missing", ProductName: "Unknown",
					Quantity: 1, UnitPrice: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(10),
				}},
			}},
			SyncedAt: now,
		}, nil
	}}

	_, err := puller.Run(ctx, api)
	require.NoError(t, err)

	sale, err := store.SaleByLocalID(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	assert.Nil(t, sale.Items[0].ProductID)
	assert.Equal(t, "p-missing", sale.Items[0].ProductRef, "raw reference kept for later repair")
}

func TestPullReplayedWindowChangesNothing(t *testing.T) {
	store := localstore.NewMemory()
	puller := NewPuller(store, identity.NewResolver())
	ctx := context.Background()

	serverClock := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	catSrv, prodSrv, custSrv, saleSrv := uint(3), uint(7), uint(42), uint(99)
	custLocal := "c-1"
	api := &fakeAPI{pullFn: func(context.Context, time.Time) (*dto.PullResponse, error) {
		return &dto.PullResponse{
			Categories: []dto.CategoryPayload{{
				LocalID: "cat-1", ServerID: &catSrv, Name: "Drinks",
				CreatedAt: serverClock, UpdatedAt: serverClock,
			}},
			Products: []dto.ProductPayload{{
				LocalID: "p-1", ServerID: &prodSrv, Name: "Diri",
				Price: decimal.NewFromInt(50), IsActive: true,
				CreatedAt: serverClock, UpdatedAt: serverClock,
			}},
			Customers: []dto.CustomerPayload{{
				LocalID: "c-1", ServerID: &custSrv, Name: "Jean",
				CreditBalance: decimal.NewFromInt(200),
				CreatedAt:     serverClock, UpdatedAt: serverClock,
			}},
			Sales: []dto.SalePayload{{
				LocalID: "s-1", ServerID: &saleSrv,
				CustomerID: &custSrv, CustomerLocalID: &custLocal,
				Subtotal: decimal.NewFromInt(100), Total: decimal.NewFromInt(100),
				Status: model.SaleCompleted, CreatedAt: serverClock, UpdatedAt: serverClock,
				Items: []dto.SaleItemPayload{{
					ProductID: &prodSrv, ProductLocalID: "p-1", ProductName: "Diri",
					Quantity: 2, UnitPrice: decimal.NewFromInt(50), Subtotal: decimal.NewFromInt(100),
				}},
			}},
			SyncedAt: serverClock,
		}, nil
	}}

	first, err := puller.Run(ctx, api)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Merged)

	cat, err := store.CategoryByLocalID(ctx, "cat-1")
	require.NoError(t, err)
	prod, err := store.ProductByLocalID(ctx, "p-1")
	require.NoError(t, err)
	cust, err := store.CustomerByLocalID(ctx, "c-1")
	require.NoError(t, err)
	sale, err := store.SaleByLocalID(ctx, "s-1")
	require.NoError(t, err)

	// Same window again, as after a crash between merge and acknowledgement.
	second, err := puller.Run(ctx, api)
	require.NoError(t, err)
	assert.Zero(t, second.Merged, "a replayed window must merge nothing")
	assert.Equal(t, 4, second.Skipped)

	cat2, _ := store.CategoryByLocalID(ctx, "cat-1")
	prod2, _ := store.ProductByLocalID(ctx, "p-1")
	cust2, _ := store.CustomerByLocalID(ctx, "c-1")
	sale2, _ := store.SaleByLocalID(ctx, "s-1")
	assert.Equal(t, cat, cat2)
	assert.Equal(t, prod, prod2)
	assert.Equal(t, cust, cust2)
	assert.Equal(t, sale, sale2)

	wm, err := store.Watermark(ctx)
	require.NoError(t, err)
	assert.True(t, wm.Equal(serverClock))
}

// categoryRejectingStore aborts any merge that writes a category.
type categoryRejectingStore struct {
	localstore.Store
}

func (s *categoryRejectingStore) RunInTx(_ context.Context, fn func(tx localstore.Store) error) error {
	return fn(s)
}

func (s *categoryRejectingStore) SaveCategory(context.Context, *model.Category) error {
	return errors.New("disk full")
}

func TestPullFailedMergeLeavesResolverEmpty(t *testing.T) {
	ids := identity.NewResolver()
	puller := NewPuller(&categoryRejectingStore{Store: localstore.NewMemory()}, ids)

	now := time.Now().UTC()
	catSrv := uint(3)
	api := &fakeAPI{pullFn: func(context.Context, time.Time) (*dto.PullResponse, error) {
		return &dto.PullResponse{
			Categories: []dto.CategoryPayload{{
				LocalID: "cat-1", ServerID: &catSrv, Name: "Drinks",
				CreatedAt: now, UpdatedAt: now,
			}},
			SyncedAt: now,
		}, nil
	}}

	_, err := puller.Run(context.Background(), api)
	require.Error(t, err)

	// The store rejected the row, so no localId↔serverId pair may survive
	// in memory for it.
	_, ok := ids.ServerID(identity.KindCategory, "cat-1")
	assert.False(t, ok, "rows the store never accepted must not be mapped")
}

// ── Orchestrator ────────────────────────────────────────────────────────────

func TestSyncSingleFlight(t *testing.T) {
	store := localstore.NewMemory()
	release := make(chan struct{})
	entered := make(chan struct{})
	var enteredOnce sync.Once

	api := &fakeAPI{pullFn: func(ctx context.Context, _ time.Time) (*dto.PullResponse, error) {
		enteredOnce.Do(func() {
			close(entered)
			select {
			case <-release:
			case <-ctx.Done():
			}
		})
		return &dto.PullResponse{SyncedAt: time.Now().UTC()}, nil
	}}

	orch := NewOrchestrator(store, identity.NewResolver(), api, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orch.Sync(context.Background())
	}()

	<-entered
	_, err := orch.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	<-done

	// Lock released: a new cycle may start.
	_, err = orch.Sync(context.Background())
	assert.NoError(t, err)
}

func TestSyncAuthErrorIsFatal(t *testing.T) {
	store := localstore.NewMemory()
	pendingCustomer(t, store, "c-1")

	api := &fakeAPI{pushFn: func(context.Context, dto.PushRequest) (*dto.PushResponse, error) {
		return nil, &AuthError{Reason: "token revoked"}
	}}
	orch := NewOrchestrator(store, identity.NewResolver(), api, 0)

	outcome, err := orch.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.Zero(t, api.pullCalls, "auth failure must abort before the pull")
	assert.Zero(t, outcome.Applied)

	row, _ := store.CustomerByLocalID(context.Background(), "c-1")
	assert.Equal(t, model.SyncPending, row.SyncStatus)
}

func TestSyncTimeoutLeavesRowsPending(t *testing.T) {
	store := localstore.NewMemory()
	pendingCustomer(t, store, "c-1")

	api := &fakeAPI{pushFn: func(ctx context.Context, _ dto.PushRequest) (*dto.PushResponse, error) {
		<-ctx.Done()
		return nil, &NetworkError{Op: "push", Err: ctx.Err()}
	}}
	orch := NewOrchestrator(store, identity.NewResolver(), api, 20*time.Millisecond)

	outcome, err := orch.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.NotNil(t, outcome)

	row, _ := store.CustomerByLocalID(context.Background(), "c-1")
	assert.Equal(t, model.SyncPending, row.SyncStatus, "timed-out work must be retried next cycle")
}

func TestSyncOutcomeMessage(t *testing.T) {
	assert.Equal(t, "up to date", (&Outcome{}).Message())
	assert.Equal(t, "synced 3 of 3", (&Outcome{Attempted: 3, Applied: 3}).Message())
	assert.Equal(t, "synced 2 of 5 — will retry the rest",
		(&Outcome{Attempted: 5, Applied: 2, Partial: true}).Message())
}

func TestSyncFullCycle(t *testing.T) {
	store := localstore.NewMemory()
	ids := identity.NewResolver()
	pendingCustomer(t, store, "c-1")

	serverClock := time.Now().UTC()
	prodSrv := uint(7)
	api := &fakeAPI{
		pushFn: func(_ context.Context, req dto.PushRequest) (*dto.PushResponse, error) {
			return &dto.PushResponse{
				Synced:   dto.PushCounts{Customers: len(req.Customers)},
				Mappings: dto.PushMappings{Customers: []dto.IDMapping{{LocalID: "c-1", ServerID: 42}}},
				SyncedAt: serverClock,
			}, nil
		},
		pullFn: func(context.Context, time.Time) (*dto.PullResponse, error) {
			return &dto.PullResponse{
				Products: []dto.ProductPayload{{
					LocalID: "p-1", ServerID: &prodSrv, Name: "Diri",
					Price: decimal.NewFromInt(50), IsActive: true,
					CreatedAt: serverClock, UpdatedAt: serverClock,
				}},
				SyncedAt: serverClock,
			}, nil
		},
	}

	orch := NewOrchestrator(store, ids, api, time.Minute)
	outcome, err := orch.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Applied)
	assert.Equal(t, 1, outcome.Pulled)
	assert.False(t, outcome.Partial)
	assert.Equal(t, "synced 1 of 1", outcome.Message())

	wm, _ := store.Watermark(context.Background())
	assert.True(t, wm.Equal(serverClock))
}
