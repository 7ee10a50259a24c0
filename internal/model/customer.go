package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer buys on credit. CreditBalance is derived: it always equals the
// clamped running sum of the customer's CreditTransactions in creation order
// (credit_given positive, payment_received negative, floored at zero). The
// balance travels with the Customer record during sync; the server never
// recomputes it.
type Customer struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	BusinessID uint `gorm:"index:,unique,composite:business_local;not null" json:"businessId"`
	SyncMeta
	Name           string          `gorm:"index;not null" json:"name"`
	Phone          *string         `json:"phone,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	TotalPurchases decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"totalPurchases"`
	CreditBalance  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"creditBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
