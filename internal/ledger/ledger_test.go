package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCustomer(t *testing.T, store localstore.Store, balance decimal.Decimal) *model.Customer {
	t.Helper()
	c := &model.Customer{
		BusinessID:    1,
		SyncMeta:      model.SyncMeta{LocalID: model.NewLocalID(), SyncStatus: model.SyncSynced},
		Name:          "Ti Mari",
		CreditBalance: balance,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.SaveCustomer(context.Background(), c))
	return c
}

func TestGiveCredit(t *testing.T) {
	store := localstore.NewMemory()
	l := New(store)
	cust := seedCustomer(t, store, decimal.Zero)

	entry, err := l.GiveCredit(context.Background(), cust.LocalID, decimal.NewFromInt(700), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, model.CreditGiven, entry.Type)
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, model.SyncPending, entry.SyncStatus)
	assert.NotEmpty(t, entry.LocalID)

	updated, err := store.CustomerByLocalID(context.Background(), cust.LocalID)
	require.NoError(t, err)
	assert.True(t, updated.CreditBalance.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, model.SyncPending, updated.SyncStatus)
}

func TestReceivePayment(t *testing.T) {
	store := localstore.NewMemory()
	l := New(store)
	cust := seedCustomer(t, store, decimal.NewFromInt(700))

	entry, err := l.ReceivePayment(context.Background(), cust.LocalID, decimal.NewFromInt(500), nil)
	require.NoError(t, err)
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(200)))

	updated, _ := store.CustomerByLocalID(context.Background(), cust.LocalID)
	assert.True(t, updated.CreditBalance.Equal(decimal.NewFromInt(200)))
}

func TestOverpaymentClampsToZero(t *testing.T) {
	store := localstore.NewMemory()
	l := New(store)
	cust := seedCustomer(t, store, decimal.NewFromInt(300))

	entry, err := l.ReceivePayment(context.Background(), cust.LocalID, decimal.NewFromInt(1000), nil)
	require.NoError(t, err)
	assert.True(t, entry.BalanceAfter.IsZero(), "overpayment must clamp to zero, got %s", entry.BalanceAfter)

	// The surplus is forgiven for good: the next credit starts from zero.
	entry, err = l.GiveCredit(context.Background(), cust.LocalID, decimal.NewFromInt(100), nil, nil)
	require.NoError(t, err)
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(100)))
}

func TestBalanceReplaysLedgerWithStepwiseClamp(t *testing.T) {
	store := localstore.NewMemory()
	l := New(store)
	cust := seedCustomer(t, store, decimal.Zero)
	ctx := context.Background()

	_, err := l.GiveCredit(ctx, cust.LocalID, decimal.NewFromInt(700), nil, nil)
	require.NoError(t, err)
	_, err = l.ReceivePayment(ctx, cust.LocalID, decimal.NewFromInt(1000), nil)
	require.NoError(t, err)
	_, err = l.GiveCredit(ctx, cust.LocalID, decimal.NewFromInt(250), nil, nil)
	require.NoError(t, err)

	balance, err := l.Balance(ctx, cust.LocalID)
	require.NoError(t, err)
	// Final-sum arithmetic would give 700-1000+250 = -50 → 0; stepwise
	// clamping gives max(0, 700-1000)+250 = 250.
	assert.True(t, balance.Equal(decimal.NewFromInt(250)), "got %s", balance)
}

func TestRepairRewritesDriftedBalance(t *testing.T) {
	store := localstore.NewMemory()
	l := New(store)
	cust := seedCustomer(t, store, decimal.Zero)
	ctx := context.Background()

	_, err := l.GiveCredit(ctx, cust.LocalID, decimal.NewFromInt(400), nil, nil)
	require.NoError(t, err)

	// Simulate drift: another device's pull overwrote the balance.
	drifted, _ := store.CustomerByLocalID(ctx, cust.LocalID)
	drifted.CreditBalance = decimal.NewFromInt(999)
	require.NoError(t, store.SaveCustomer(ctx, drifted))

	canonical, err := l.Repair(ctx, cust.LocalID)
	require.NoError(t, err)
	assert.True(t, canonical.Equal(decimal.NewFromInt(400)))

	repaired, _ := store.CustomerByLocalID(ctx, cust.LocalID)
	assert.True(t, repaired.CreditBalance.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, model.SyncPending, repaired.SyncStatus)
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	store := localstore.NewMemory()
	l := New(store)
	cust := seedCustomer(t, store, decimal.Zero)

	_, err := l.GiveCredit(context.Background(), cust.LocalID, decimal.Zero, nil, nil)
	assert.ErrorIs(t, err, ErrAmountNotPositive)

	_, err = l.ReceivePayment(context.Background(), cust.LocalID, decimal.NewFromInt(-5), nil)
	assert.ErrorIs(t, err, ErrAmountNotPositive)
}

func TestUnknownCustomer(t *testing.T) {
	store := localstore.NewMemory()
	l := New(store)

	_, err := l.GiveCredit(context.Background(), "nope", decimal.NewFromInt(10), nil, nil)
	assert.ErrorIs(t, err, ErrCustomerUnknown)
}
