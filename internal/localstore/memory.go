package localstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edcadet10/tikes/internal/identity"
	"github.com/edcadet10/tikes/internal/model"
)

// memoryStore keeps everything in maps keyed by localId. It backs unit tests
// and ephemeral devices (kiosk mode, nothing worth persisting between runs).
// Writes under one mutex; values are copied on the way in and out so callers
// can never alias store state.
type memoryStore struct {
	mu sync.Mutex

	nextID     uint
	categories map[string]model.Category
	products   map[string]model.Product
	customers  map[string]model.Customer
	sales      map[string]model.Sale
	creditTxs  map[string]model.CreditTransaction
	users      map[uint]model.User
	watermark  time.Time
}

// NewMemory returns an empty in-memory Store.
func NewMemory() Store {
	return &memoryStore{
		categories: make(map[string]model.Category),
		products:   make(map[string]model.Product),
		customers:  make(map[string]model.Customer),
		sales:      make(map[string]model.Sale),
		creditTxs:  make(map[string]model.CreditTransaction),
		users:      make(map[uint]model.User),
	}
}

// RunInTx runs fn against the same store. There is no rollback: memory
// stores are for tests and throwaway state, where partial writes on a
// mid-transaction error are acceptable.
func (m *memoryStore) RunInTx(_ context.Context, fn func(tx Store) error) error {
	return fn(m)
}

func (m *memoryStore) allocID() uint {
	m.nextID++
	return m.nextID
}

// ── Pending rows ────────────────────────────────────────────────────────────

func (m *memoryStore) PendingCategories(context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Category
	for _, v := range m.categories {
		if v.SyncStatus == model.SyncPending {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) PendingProducts(context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Product
	for _, v := range m.products {
		if v.SyncStatus == model.SyncPending {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) PendingCustomers(context.Context) ([]model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Customer
	for _, v := range m.customers {
		if v.SyncStatus == model.SyncPending {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) PendingSales(context.Context) ([]model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Sale
	for _, v := range m.sales {
		if v.SyncStatus == model.SyncPending {
			out = append(out, cloneSale(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) PendingCreditTransactions(context.Context) ([]model.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CreditTransaction
	for _, v := range m.creditTxs {
		if v.SyncStatus == model.SyncPending {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ── Lookups ─────────────────────────────────────────────────────────────────

func (m *memoryStore) CategoryByLocalID(_ context.Context, localID string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.categories[localID]; ok {
		return &v, nil
	}
	return nil, ErrNotFound
}

func (m *memoryStore) ProductByLocalID(_ context.Context, localID string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.products[localID]; ok {
		return &v, nil
	}
	return nil, ErrNotFound
}

func (m *memoryStore) CustomerByLocalID(_ context.Context, localID string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.customers[localID]; ok {
		return &v, nil
	}
	return nil, ErrNotFound
}

func (m *memoryStore) SaleByLocalID(_ context.Context, localID string) (*model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.sales[localID]; ok {
		s := cloneSale(v)
		return &s, nil
	}
	return nil, ErrNotFound
}

func (m *memoryStore) CreditTransactionByLocalID(_ context.Context, localID string) (*model.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.creditTxs[localID]; ok {
		return &v, nil
	}
	return nil, ErrNotFound
}

func (m *memoryStore) CategoryByServerID(_ context.Context, serverID uint) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.categories {
		if v.ServerID != nil && *v.ServerID == serverID {
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryStore) ProductByServerID(_ context.Context, serverID uint) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.products {
		if v.ServerID != nil && *v.ServerID == serverID {
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryStore) CustomerByServerID(_ context.Context, serverID uint) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.customers {
		if v.ServerID != nil && *v.ServerID == serverID {
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

// ── Upserts ─────────────────────────────────────────────────────────────────

func (m *memoryStore) SaveCategory(_ context.Context, c *model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.categories[c.LocalID]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else if c.ID == 0 {
		c.ID = m.allocID()
	}
	m.categories[c.LocalID] = *c
	return nil
}

func (m *memoryStore) SaveProduct(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.products[p.LocalID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else if p.ID == 0 {
		p.ID = m.allocID()
	}
	m.products[p.LocalID] = *p
	return nil
}

func (m *memoryStore) SaveCustomer(_ context.Context, c *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.customers[c.LocalID]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else if c.ID == 0 {
		c.ID = m.allocID()
	}
	m.customers[c.LocalID] = *c
	return nil
}

func (m *memoryStore) SaveSale(_ context.Context, s *model.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sales[s.LocalID]; ok {
		// Items and payments are immutable after creation.
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
		s.Items = existing.Items
		s.Payments = existing.Payments
	} else if s.ID == 0 {
		s.ID = m.allocID()
	}
	m.sales[s.LocalID] = cloneSale(*s)
	return nil
}

func (m *memoryStore) SaveCreditTransaction(_ context.Context, t *model.CreditTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.creditTxs[t.LocalID]; ok {
		// Append-only ledger: only the sync fields may move.
		existing.ServerID = t.ServerID
		existing.SyncStatus = t.SyncStatus
		m.creditTxs[t.LocalID] = existing
		*t = existing
		return nil
	}
	if t.ID == 0 {
		t.ID = m.allocID()
	}
	m.creditTxs[t.LocalID] = *t
	return nil
}

// ── Sync status transitions ─────────────────────────────────────────────────

func (m *memoryStore) MarkSynced(_ context.Context, kind, localID string, serverID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case identity.KindCategory:
		if v, ok := m.categories[localID]; ok {
			v.ServerID, v.SyncStatus = &serverID, model.SyncSynced
			m.categories[localID] = v
		}
	case identity.KindProduct:
		if v, ok := m.products[localID]; ok {
			v.ServerID, v.SyncStatus = &serverID, model.SyncSynced
			m.products[localID] = v
		}
	case identity.KindCustomer:
		if v, ok := m.customers[localID]; ok {
			v.ServerID, v.SyncStatus = &serverID, model.SyncSynced
			m.customers[localID] = v
		}
	case identity.KindSale:
		if v, ok := m.sales[localID]; ok {
			v.ServerID, v.SyncStatus = &serverID, model.SyncSynced
			m.sales[localID] = v
		}
	case identity.KindCreditTransaction:
		if v, ok := m.creditTxs[localID]; ok {
			v.ServerID, v.SyncStatus = &serverID, model.SyncSynced
			m.creditTxs[localID] = v
		}
	}
	return nil
}

func (m *memoryStore) MarkConflict(_ context.Context, kind, localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case identity.KindCategory:
		if v, ok := m.categories[localID]; ok {
			v.SyncStatus = model.SyncConflict
			m.categories[localID] = v
		}
	case identity.KindProduct:
		if v, ok := m.products[localID]; ok {
			v.SyncStatus = model.SyncConflict
			m.products[localID] = v
		}
	case identity.KindCustomer:
		if v, ok := m.customers[localID]; ok {
			v.SyncStatus = model.SyncConflict
			m.customers[localID] = v
		}
	case identity.KindSale:
		if v, ok := m.sales[localID]; ok {
			v.SyncStatus = model.SyncConflict
			m.sales[localID] = v
		}
	case identity.KindCreditTransaction:
		if v, ok := m.creditTxs[localID]; ok {
			v.SyncStatus = model.SyncConflict
			m.creditTxs[localID] = v
		}
	}
	return nil
}

// ── Users ───────────────────────────────────────────────────────────────────

func (m *memoryStore) UserByServerID(_ context.Context, serverID uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.users[serverID]; ok {
		return &v, nil
	}
	return nil, ErrNotFound
}

func (m *memoryStore) SaveUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

func (m *memoryStore) ListUsers(context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, v := range m.users {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ── Identity and watermark ──────────────────────────────────────────────────

func (m *memoryStore) IdentityPairs(_ context.Context, kind string) ([]identity.Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pairs []identity.Pair
	appendPair := func(localID string, serverID *uint) {
		if serverID != nil {
			pairs = append(pairs, identity.Pair{LocalID: localID, ServerID: *serverID})
		}
	}
	switch kind {
	case identity.KindCategory:
		for k, v := range m.categories {
			appendPair(k, v.ServerID)
		}
	case identity.KindProduct:
		for k, v := range m.products {
			appendPair(k, v.ServerID)
		}
	case identity.KindCustomer:
		for k, v := range m.customers {
			appendPair(k, v.ServerID)
		}
	case identity.KindSale:
		for k, v := range m.sales {
			appendPair(k, v.ServerID)
		}
	case identity.KindCreditTransaction:
		for k, v := range m.creditTxs {
			appendPair(k, v.ServerID)
		}
	}
	return pairs, nil
}

func (m *memoryStore) Watermark(context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watermark, nil
}

func (m *memoryStore) SetWatermark(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermark = t
	return nil
}

// ── POS listings ────────────────────────────────────────────────────────────

func (m *memoryStore) ListCustomers(context.Context) ([]model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Customer, 0, len(m.customers))
	for _, v := range m.customers {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) ListProducts(context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Product, 0, len(m.products))
	for _, v := range m.products {
		if v.IsActive {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) CreditTransactionsForCustomer(_ context.Context, customerLocalID string) ([]model.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CreditTransaction
	for _, v := range m.creditTxs {
		if v.CustomerLocalID == customerLocalID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func cloneSale(s model.Sale) model.Sale {
	s.Items = append([]model.SaleItem(nil), s.Items...)
	s.Payments = append([]model.Payment(nil), s.Payments...)
	return s
}
