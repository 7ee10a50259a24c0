package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edcadet10/tikes/internal/identity"
	"github.com/edcadet10/tikes/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// syncState is the single-row watermark table. Row 1 always exists after
// migration; LastSyncedAt zero means "never pulled".
type syncState struct {
	ID           uint `gorm:"primaryKey"`
	LastSyncedAt time.Time
}

func (syncState) TableName() string { return "sync_state" }

type gormStore struct{ db *gorm.DB }

// New opens a Store over the device SQLite handle and migrates the schema.
func New(db *gorm.DB) (Store, error) {
	err := db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.Customer{},
		&model.Sale{},
		&model.SaleItem{},
		&model.Payment{},
		&model.CreditTransaction{},
		&model.User{},
		&syncState{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate local schema: %w", err)
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&syncState{ID: 1}).Error; err != nil {
		return nil, fmt.Errorf("seed sync state: %w", err)
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// ── Pending rows ────────────────────────────────────────────────────────────

func (s *gormStore) PendingCategories(ctx context.Context) ([]model.Category, error) {
	var rows []model.Category
	err := s.db.WithContext(ctx).
		Where("sync_status = ?", model.SyncPending).
		Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (s *gormStore) PendingProducts(ctx context.Context) ([]model.Product, error) {
	var rows []model.Product
	err := s.db.WithContext(ctx).
		Where("sync_status = ?", model.SyncPending).
		Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (s *gormStore) PendingCustomers(ctx context.Context) ([]model.Customer, error) {
	var rows []model.Customer
	err := s.db.WithContext(ctx).
		Where("sync_status = ?", model.SyncPending).
		Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (s *gormStore) PendingSales(ctx context.Context) ([]model.Sale, error) {
	var rows []model.Sale
	err := s.db.WithContext(ctx).
		Where("sync_status = ?", model.SyncPending).
		Preload("Items").Preload("Payments").
		Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (s *gormStore) PendingCreditTransactions(ctx context.Context) ([]model.CreditTransaction, error) {
	var rows []model.CreditTransaction
	err := s.db.WithContext(ctx).
		Where("sync_status = ?", model.SyncPending).
		Order("created_at ASC").Find(&rows).Error
	return rows, err
}

// ── Lookups ─────────────────────────────────────────────────────────────────

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *gormStore) CategoryByLocalID(ctx context.Context, localID string) (*model.Category, error) {
	var row model.Category
	if err := s.db.WithContext(ctx).Where("local_id = ?", localID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *gormStore) ProductByLocalID(ctx context.Context, localID string) (*model.Product, error) {
	var row model.Product
	if err := s.db.WithContext(ctx).Where("local_id = ?", localID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *gormStore) CustomerByLocalID(ctx context.Context, localID string) (*model.Customer, error) {
	var row model.Customer
	if err := s.db.WithContext(ctx).Where("local_id = ?", localID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *gormStore) SaleByLocalID(ctx context.Context, localID string) (*model.Sale, error) {
	var row model.Sale
	err := s.db.WithContext(ctx).Where("local_id = ?", localID).
		Preload("Items").Preload("Payments").First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *gormStore) CreditTransactionByLocalID(ctx context.Context, localID string) (*model.CreditTransaction, error) {
	var row model.CreditTransaction
	if err := s.db.WithContext(ctx).Where("local_id = ?", localID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *gormStore) CategoryByServerID(ctx context.Context, serverID uint) (*model.Category, error) {
	var row model.Category
	if err := s.db.WithContext(ctx).Where("server_id = ?", serverID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *gormStore) ProductByServerID(ctx context.Context, serverID uint) (*model.Product, error) {
	var row model.Product
	if err := s.db.WithContext(ctx).Where("server_id = ?", serverID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *gormStore) CustomerByServerID(ctx context.Context, serverID uint) (*model.Customer, error) {
	var row model.Customer
	if err := s.db.WithContext(ctx).Where("server_id = ?", serverID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

// ── Upserts ─────────────────────────────────────────────────────────────────

// upsertByLocalID inserts the row or updates the mutable columns of the one
// already holding its localId. The local database is single-writer (one open
// connection), so the lookup-then-write pair cannot race. A pulled copy never
// carries a business id — the localId alone addresses the row here, while the
// table's unique index on (business_id, local_id) is shared with the server
// schema.
func upsertByLocalID(db *gorm.DB, table, localID string, value interface{}, mutable []string) error {
	var row struct{ ID uint }
	err := db.Table(table).Select("id").Where("local_id = ?", localID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(value).Error
	}
	if err != nil {
		return err
	}
	return db.Table(table).Where("id = ?", row.ID).Select(mutable).Updates(value).Error
}

func (s *gormStore) SaveCategory(ctx context.Context, c *model.Category) error {
	return upsertByLocalID(s.db.WithContext(ctx), "categories", c.LocalID, c, []string{
		"server_id", "sync_status", "name", "icon", "sort_order", "updated_at",
	})
}

func (s *gormStore) SaveProduct(ctx context.Context, p *model.Product) error {
	return upsertByLocalID(s.db.WithContext(ctx), "products", p.LocalID, p, []string{
		"server_id", "sync_status", "name", "price", "cost", "barcode",
		"category_id", "category_local_id", "stock_quantity", "low_stock_alert",
		"unit_type", "image_url", "is_active", "updated_at",
	})
}

func (s *gormStore) SaveCustomer(ctx context.Context, c *model.Customer) error {
	return upsertByLocalID(s.db.WithContext(ctx), "customers", c.LocalID, c, []string{
		"server_id", "sync_status", "name", "phone", "notes",
		"total_purchases", "credit_balance", "updated_at",
	})
}

// SaveSale inserts a new sale with its nested items and payments, or updates
// the header row of an existing one. Items and payments are immutable after
// creation — only the header (status, sync fields) ever changes.
func (s *gormStore) SaveSale(ctx context.Context, sale *model.Sale) error {
	existing, err := s.SaleByLocalID(ctx, sale.LocalID)
	if errors.Is(err, ErrNotFound) {
		return s.db.WithContext(ctx).Create(sale).Error
	}
	if err != nil {
		return err
	}
	sale.ID = existing.ID
	return s.db.WithContext(ctx).Model(&model.Sale{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"server_id":   sale.ServerID,
			"sync_status": sale.SyncStatus,
			"status":      sale.Status,
			"notes":       sale.Notes,
			"updated_at":  sale.UpdatedAt,
		}).Error
}

func (s *gormStore) SaveCreditTransaction(ctx context.Context, t *model.CreditTransaction) error {
	// Append-only: an existing localId is never rewritten, only its sync
	// fields move.
	return upsertByLocalID(s.db.WithContext(ctx), "credit_transactions", t.LocalID, t, []string{
		"server_id", "sync_status",
	})
}

// ── Sync status transitions ─────────────────────────────────────────────────

func tableFor(kind string) (string, error) {
	switch kind {
	case identity.KindCategory:
		return "categories", nil
	case identity.KindProduct:
		return "products", nil
	case identity.KindCustomer:
		return "customers", nil
	case identity.KindSale:
		return "sales", nil
	case identity.KindCreditTransaction:
		return "credit_transactions", nil
	default:
		return "", fmt.Errorf("localstore: unknown entity kind %q", kind)
	}
}

func (s *gormStore) MarkSynced(ctx context.Context, kind, localID string, serverID uint) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Table(table).
		Where("local_id = ?", localID).
		Updates(map[string]interface{}{
			"server_id":   serverID,
			"sync_status": model.SyncSynced,
		}).Error
}

func (s *gormStore) MarkConflict(ctx context.Context, kind, localID string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Table(table).
		Where("local_id = ?", localID).
		Update("sync_status", model.SyncConflict).Error
}

// ── Users ───────────────────────────────────────────────────────────────────

func (s *gormStore) UserByServerID(ctx context.Context, serverID uint) (*model.User, error) {
	var row model.User
	if err := s.db.WithContext(ctx).Where("id = ?", serverID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *gormStore) SaveUser(ctx context.Context, u *model.User) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "phone", "role", "is_active", "updated_at",
		}),
	}).Create(u).Error
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var rows []model.User
	err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// ── Identity and watermark ──────────────────────────────────────────────────

func (s *gormStore) IdentityPairs(ctx context.Context, kind string) ([]identity.Pair, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	var pairs []identity.Pair
	err = s.db.WithContext(ctx).Table(table).
		Select("local_id AS local_id, server_id AS server_id").
		Where("server_id IS NOT NULL").
		Scan(&pairs).Error
	return pairs, err
}

func (s *gormStore) Watermark(ctx context.Context) (time.Time, error) {
	var state syncState
	if err := s.db.WithContext(ctx).First(&state, 1).Error; err != nil {
		return time.Time{}, err
	}
	return state.LastSyncedAt, nil
}

func (s *gormStore) SetWatermark(ctx context.Context, t time.Time) error {
	return s.db.WithContext(ctx).Model(&syncState{}).
		Where("id = ?", 1).
		Update("last_synced_at", t).Error
}

// ── POS listings ────────────────────────────────────────────────────────────

func (s *gormStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var rows []model.Customer
	err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (s *gormStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	var rows []model.Product
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (s *gormStore) CreditTransactionsForCustomer(ctx context.Context, customerLocalID string) ([]model.CreditTransaction, error) {
	var rows []model.CreditTransaction
	err := s.db.WithContext(ctx).
		Where("customer_local_id = ?", customerLocalID).
		Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}
