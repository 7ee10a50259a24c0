// Package localstore is the device-side persistence layer: the offline
// source of truth a register keeps operating from when the network is gone.
// It owns the sync watermark and the per-row sync status alongside the
// business data itself.
package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/edcadet10/tikes/internal/identity"
	"github.com/edcadet10/tikes/internal/model"
)

// ErrNotFound is returned by all *ByLocalID / *ByServerID lookups when no
// row matches. Implementations translate their driver's sentinel to it.
var ErrNotFound = errors.New("localstore: not found")

// Store is the full device persistence surface. The POS layer writes
// pending rows through it; the sync engine drains them and merges pulls
// back in. RunInTx scopes a group of writes to one transaction — the pull
// merge and every ledger write go through it.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Store) error) error

	// Pending rows awaiting push, oldest first.
	PendingCategories(ctx context.Context) ([]model.Category, error)
	PendingProducts(ctx context.Context) ([]model.Product, error)
	PendingCustomers(ctx context.Context) ([]model.Customer, error)
	PendingSales(ctx context.Context) ([]model.Sale, error)
	PendingCreditTransactions(ctx context.Context) ([]model.CreditTransaction, error)

	// Lookups by logical key.
	CategoryByLocalID(ctx context.Context, localID string) (*model.Category, error)
	ProductByLocalID(ctx context.Context, localID string) (*model.Product, error)
	CustomerByLocalID(ctx context.Context, localID string) (*model.Customer, error)
	SaleByLocalID(ctx context.Context, localID string) (*model.Sale, error)
	CreditTransactionByLocalID(ctx context.Context, localID string) (*model.CreditTransaction, error)

	// Lookups by server surrogate id (the id space pull payloads speak).
	CategoryByServerID(ctx context.Context, serverID uint) (*model.Category, error)
	ProductByServerID(ctx context.Context, serverID uint) (*model.Product, error)
	CustomerByServerID(ctx context.Context, serverID uint) (*model.Customer, error)

	// Upserts keyed by localId. Sales insert nested items and payments.
	SaveCategory(ctx context.Context, c *model.Category) error
	SaveProduct(ctx context.Context, p *model.Product) error
	SaveCustomer(ctx context.Context, c *model.Customer) error
	SaveSale(ctx context.Context, s *model.Sale) error
	SaveCreditTransaction(ctx context.Context, t *model.CreditTransaction) error

	// Sync status transitions, keyed by entity kind + localId.
	MarkSynced(ctx context.Context, kind, localID string, serverID uint) error
	MarkConflict(ctx context.Context, kind, localID string) error

	// Users are pull-only mirrors keyed by server id.
	UserByServerID(ctx context.Context, serverID uint) (*model.User, error)
	SaveUser(ctx context.Context, u *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)

	// IdentityPairs returns every known localId↔serverId pair of a kind,
	// for warming the identity resolver at startup.
	IdentityPairs(ctx context.Context, kind string) ([]identity.Pair, error)

	// Watermark is the server clock of the last completed pull; zero time
	// means the device has never pulled.
	Watermark(ctx context.Context) (time.Time, error)
	SetWatermark(ctx context.Context, t time.Time) error

	// Customer listings for the POS screens.
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreditTransactionsForCustomer(ctx context.Context, customerLocalID string) ([]model.CreditTransaction, error)
}
