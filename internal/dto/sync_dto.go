package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Wire payloads ───────────────────────────────────────────────────────────
// Entity payloads are the device↔server wire format. Every syncable payload
// carries the logical key (localId) and, once known, the server surrogate id.
// Cross-entity references travel in both id spaces: the numeric id of the
// originating store plus the referenced entity's own localId, so the receiver
// can resolve by direct id match first and exact localId lookup second.

type CategoryPayload struct {
	LocalID   string    `json:"localId" validate:"required"`
	ServerID  *uint     `json:"serverId,omitempty"`
	Name      string    `json:"name" validate:"required"`
	Icon      *string   `json:"icon,omitempty"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProductPayload struct {
	LocalID         string          `json:"localId" validate:"required"`
	ServerID        *uint           `json:"serverId,omitempty"`
	Name            string          `json:"name" validate:"required"`
	Price           decimal.Decimal `json:"price" validate:"min=0"`
	Cost            decimal.Decimal `json:"cost" validate:"min=0"`
	Barcode         *string         `json:"barcode,omitempty"`
	CategoryID      *uint           `json:"categoryId,omitempty"`
	CategoryLocalID *string         `json:"categoryLocalId,omitempty"`
	StockQuantity   int             `json:"stockQuantity"`
	LowStockAlert   int             `json:"lowStockThreshold"`
	UnitType        string          `json:"unitType"`
	ImageURL        *string         `json:"imageUrl,omitempty"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type CustomerPayload struct {
	LocalID        string          `json:"localId" validate:"required"`
	ServerID       *uint           `json:"serverId,omitempty"`
	Name           string          `json:"name" validate:"required"`
	Phone          *string         `json:"phone,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	TotalPurchases decimal.Decimal `json:"totalPurchases"`
	CreditBalance  decimal.Decimal `json:"creditBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type SaleItemPayload struct {
	ProductID      *uint           `json:"productId,omitempty"`
	ProductLocalID string          `json:"productLocalId"`
	ProductName    string          `json:"productName"`
	Quantity       int             `json:"quantity" validate:"min=1"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Discount       decimal.Decimal `json:"discount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PaymentPayload struct {
	Method    string          `json:"method" validate:"required,oneof=cash moncash natcash card credit"`
	Amount    decimal.Decimal `json:"amount"`
	Reference *string         `json:"reference,omitempty"`
	Status    string          `json:"status"`
}

// SalePayload always travels with its nested items and payments so a sale is
// never materialized partially on either side.
type SalePayload struct {
	LocalID         string            `json:"localId" validate:"required"`
	ServerID        *uint             `json:"serverId,omitempty"`
	UserID          *uint             `json:"userId,omitempty"`
	CustomerID      *uint             `json:"customerId,omitempty"`
	CustomerLocalID *string           `json:"customerLocalId,omitempty"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Discount        decimal.Decimal   `json:"discount"`
	DiscountType    string            `json:"discountType"`
	Tax             decimal.Decimal   `json:"tax"`
	Total           decimal.Decimal   `json:"total"`
	Status          string            `json:"status"`
	Notes           *string           `json:"notes,omitempty"`
	Items           []SaleItemPayload `json:"items" validate:"dive"`
	Payments        []PaymentPayload  `json:"payments" validate:"dive"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type CreditTransactionPayload struct {
	LocalID         string          `json:"localId" validate:"required"`
	ServerID        *uint           `json:"serverId,omitempty"`
	CustomerID      *uint           `json:"customerId,omitempty"`
	CustomerLocalID string          `json:"customerLocalId" validate:"required"`
	SaleLocalID     *string         `json:"saleLocalId,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type" validate:"required,oneof=credit_given payment_received"`
	BalanceAfter    decimal.Decimal `json:"balanceAfter"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// UserPayload is pull-only: the server never accepts users from devices.
// PIN hashes never travel.
type UserPayload struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ─── Push ────────────────────────────────────────────────────────────────────

// PushRequest is the batch a device submits, scoped server-side to the
// caller's business. Order of the slices is irrelevant: the server applies
// types in fixed dependency order.
type PushRequest struct {
	Categories         []CategoryPayload          `json:"categories" validate:"dive"`
	Products           []ProductPayload           `json:"products" validate:"dive"`
	Customers          []CustomerPayload          `json:"customers" validate:"dive"`
	Sales              []SalePayload              `json:"sales" validate:"dive"`
	CreditTransactions []CreditTransactionPayload `json:"creditTransactions" validate:"dive"`
}

func (r *PushRequest) Empty() bool {
	return len(r.Categories) == 0 && len(r.Products) == 0 && len(r.Customers) == 0 &&
		len(r.Sales) == 0 && len(r.CreditTransactions) == 0
}

// PushCounts reports per-type entities actually applied.
type PushCounts struct {
	Categories         int `json:"categories"`
	Products           int `json:"products"`
	Customers          int `json:"customers"`
	Sales              int `json:"sales"`
	CreditTransactions int `json:"creditTransactions"`
}

func (c PushCounts) Total() int {
	return c.Categories + c.Products + c.Customers + c.Sales + c.CreditTransactions
}

// IDMapping ties a device-minted localId to the server surrogate id assigned
// (or previously known) for it. The device records these through its identity
// resolver and marks the rows synced.
type IDMapping struct {
	LocalID  string `json:"localId"`
	ServerID uint   `json:"serverId"`
}

type PushMappings struct {
	Categories         []IDMapping `json:"categories,omitempty"`
	Products           []IDMapping `json:"products,omitempty"`
	Customers          []IDMapping `json:"customers,omitempty"`
	Sales              []IDMapping `json:"sales,omitempty"`
	CreditTransactions []IDMapping `json:"creditTransactions,omitempty"`
}

// Entity error codes. Validation errors park the entity in conflict;
// unresolved references keep it pending for the next cycle.
const (
	ErrCodeValidation = "validation"
	ErrCodeUnresolved = "unresolved"
	ErrCodeInternal   = "internal"
)

// EntityError reports a single entity the server could not apply. Entity
// errors never escalate to batch failure.
type EntityError struct {
	EntityType string `json:"entityType"`
	LocalID    string `json:"localId"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

// SyncWarning reports a degraded-but-applied record, e.g. a sale item whose
// product reference could not be mapped.
type SyncWarning struct {
	EntityType string `json:"entityType"`
	LocalID    string `json:"localId"`
	Field      string `json:"field"`
	Detail     string `json:"detail"`
}

type PushResponse struct {
	Synced   PushCounts    `json:"synced"`
	Mappings PushMappings  `json:"mappings"`
	Errors   []EntityError `json:"errors,omitempty"`
	Warnings []SyncWarning `json:"warnings,omitempty"`
	SyncedAt time.Time     `json:"syncedAt"`
}

// ─── Pull ────────────────────────────────────────────────────────────────────

// PullResponse returns every server-side change since the requested
// watermark. Categories and users are always full snapshots. SyncedAt is the
// server clock at response time and becomes the device's next watermark —
// never the device's own clock, to tolerate skew.
type PullResponse struct {
	Products   []ProductPayload  `json:"products"`
	Customers  []CustomerPayload `json:"customers"`
	Sales      []SalePayload     `json:"sales"`
	Categories []CategoryPayload `json:"categories"`
	Users      []UserPayload     `json:"users"`
	SyncedAt   time.Time         `json:"syncedAt"`
}
