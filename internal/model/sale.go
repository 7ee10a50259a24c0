package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale statuses.
const (
	SaleCompleted = "completed"
	SaleVoided    = "voided"
	SalePending   = "pending"
)

// Payment methods and statuses.
const (
	PayCash    = "cash"
	PayMonCash = "moncash"
	PayNatCash = "natcash"
	PayCard    = "card"
	PayCredit  = "credit"

	PaymentCompleted = "completed"
	PaymentPending   = "pending"
	PaymentFailed    = "failed"
)

// Sale is the financially significant record: write-once on the wire, its
// LocalID is the idempotence key. A sale already present server-side under the
// same LocalID must never be re-inserted. The only mutation allowed after
// creation is the status transition completed → voided.
//
// CustomerLocalID is the logical reference (optional — absence means a
// walk-in sale); CustomerID mirrors it in the server id space once resolved.
// UserID is a server-space user id (users carry no local ids).
type Sale struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	BusinessID uint `gorm:"index:,unique,composite:business_local;not null" json:"businessId"`
	SyncMeta
	UserID          *uint           `gorm:"index" json:"userId,omitempty"`
	CustomerID      *uint           `gorm:"index" json:"customerId,omitempty"`
	CustomerLocalID *string         `gorm:"index" json:"customerLocalId,omitempty"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	Discount        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"discount"`
	DiscountType    string          `gorm:"type:varchar(10);not null;default:'fixed'" json:"discountType"`
	Tax             decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"tax"`
	Total           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	Status          string          `gorm:"type:varchar(10);not null;default:'completed';index" json:"status"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	Items    []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
	Payments []Payment  `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"payments"`
}

// SaleItem is one line of a sale. ProductRef always keeps the product's
// localId as given by the originating device; ProductID is filled in when the
// reference resolves in the destination store's id space. An item whose
// reference never resolved keeps ProductID nil and is flagged for later
// repair — the sale itself is still accepted.
type SaleItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SaleID      uint            `gorm:"index;not null" json:"saleId"`
	ProductID   *uint           `gorm:"index" json:"productId,omitempty"`
	ProductRef  string          `gorm:"index" json:"productLocalId"`
	ProductName string          `gorm:"not null" json:"productName"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
}

// Payment records one tender against a sale, created verbatim during sync.
type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	SaleID    uint            `gorm:"index;not null" json:"saleId"`
	Method    string          `gorm:"type:varchar(10);not null" json:"method"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Reference *string         `json:"reference,omitempty"`
	Status    string          `gorm:"type:varchar(10);not null;default:'completed'" json:"status"`
}
