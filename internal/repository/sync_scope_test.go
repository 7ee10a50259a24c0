package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/edcadet10/tikes/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Category{}, &model.Product{}, &model.Customer{}, &model.CreditTransaction{},
	))
	return db
}

// Two businesses pushing the same localId must land in two separate rows:
// the upsert conflicts on (business_id, local_id), never on local_id alone.
func TestUpsertByLocalIDScopedToBusiness(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	require.NoError(t, repo.UpsertByLocalID(ctx, &model.Product{
		BusinessID: 1,
		SyncMeta:   model.SyncMeta{LocalID: "p-shared", SyncStatus: model.SyncSynced},
		Name:       "Diri",
		Price:      decimal.NewFromInt(50),
	}))
	require.NoError(t, repo.UpsertByLocalID(ctx, &model.Product{
		BusinessID: 2,
		SyncMeta:   model.SyncMeta{LocalID: "p-shared", SyncStatus: model.SyncSynced},
		Name:       "Mayi",
		Price:      decimal.NewFromInt(999),
	}))

	mine, err := repo.FindByLocalID(ctx, 1, "p-shared")
	require.NoError(t, err)
	assert.Equal(t, "Diri", mine.Name)
	assert.True(t, mine.Price.Equal(decimal.NewFromInt(50)))

	theirs, err := repo.FindByLocalID(ctx, 2, "p-shared")
	require.NoError(t, err)
	assert.Equal(t, "Mayi", theirs.Name)
	assert.NotEqual(t, mine.ID, theirs.ID)
}

func TestUpsertByLocalIDUpdatesOwnRowInPlace(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewProductRepository(db)

	require.NoError(t, repo.UpsertByLocalID(ctx, &model.Product{
		BusinessID: 1,
		SyncMeta:   model.SyncMeta{LocalID: "p-1", SyncStatus: model.SyncSynced},
		Name:       "Diri",
		Price:      decimal.NewFromInt(50),
	}))
	require.NoError(t, repo.UpsertByLocalID(ctx, &model.Product{
		BusinessID: 1,
		SyncMeta:   model.SyncMeta{LocalID: "p-1", SyncStatus: model.SyncSynced},
		Name:       "Diri blan",
		Price:      decimal.NewFromInt(60),
	}))

	got, err := repo.FindByLocalID(ctx, 1, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Diri blan", got.Name)

	var count int64
	require.NoError(t, db.Model(&model.Product{}).Where("business_id = ?", 1).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// Customer balances are the highest-stakes column: a foreign business reusing
// a localId must not touch them.
func TestCustomerUpsertKeepsForeignBalanceIntact(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository(newTestDB(t))

	require.NoError(t, repo.UpsertByLocalID(ctx, &model.Customer{
		BusinessID:    1,
		SyncMeta:      model.SyncMeta{LocalID: "c-shared", SyncStatus: model.SyncSynced},
		Name:          "Jean",
		CreditBalance: decimal.NewFromInt(700),
	}))
	require.NoError(t, repo.UpsertByLocalID(ctx, &model.Customer{
		BusinessID:    2,
		SyncMeta:      model.SyncMeta{LocalID: "c-shared", SyncStatus: model.SyncSynced},
		Name:          "Someone Else",
		CreditBalance: decimal.Zero,
	}))

	got, err := repo.FindByLocalID(ctx, 1, "c-shared")
	require.NoError(t, err)
	assert.Equal(t, "Jean", got.Name)
	assert.True(t, got.CreditBalance.Equal(decimal.NewFromInt(700)))
}

func TestCreateIfAbsentScopedToBusiness(t *testing.T) {
	ctx := context.Background()
	repo := NewCreditTransactionRepository(newTestDB(t))

	one := uint(1)
	inserted, err := repo.CreateIfAbsent(ctx, &model.CreditTransaction{
		BusinessID:      1,
		SyncMeta:        model.SyncMeta{LocalID: "ct-1", SyncStatus: model.SyncSynced},
		CustomerID:      &one,
		CustomerLocalID: "c-x",
		Type:            model.CreditGiven,
		Amount:          decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same business, same localId: duplicate from a retried push.
	inserted, err = repo.CreateIfAbsent(ctx, &model.CreditTransaction{
		BusinessID:      1,
		SyncMeta:        model.SyncMeta{LocalID: "ct-1", SyncStatus: model.SyncSynced},
		CustomerID:      &one,
		CustomerLocalID: "c-x",
		Type:            model.CreditGiven,
		Amount:          decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	// Another business with the same localId is a distinct ledger entry.
	inserted, err = repo.CreateIfAbsent(ctx, &model.CreditTransaction{
		BusinessID:      2,
		SyncMeta:        model.SyncMeta{LocalID: "ct-1", SyncStatus: model.SyncSynced},
		CustomerID:      &one,
		CustomerLocalID: "c-x",
		Type:            model.CreditGiven,
		Amount:          decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.True(t, inserted)
}
