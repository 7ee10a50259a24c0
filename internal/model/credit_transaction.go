package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credit transaction types.
const (
	CreditGiven     = "credit_given"
	PaymentReceived = "payment_received"
)

// CreditTransaction is one entry in the append-only credit ledger: never
// mutated or deleted. BalanceAfter is the snapshot computed on the
// originating device at creation time; it travels unmodified — the server
// does not recompute it, because recomputation across concurrently-syncing
// devices would need a global lock.
//
// The LocalID doubles as the idempotence key: a retried push cannot append
// the same transaction twice.
type CreditTransaction struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	BusinessID uint `gorm:"index:,unique,composite:business_local;not null" json:"businessId"`
	SyncMeta
	CustomerID      *uint           `gorm:"index" json:"customerId,omitempty"`
	CustomerLocalID string          `gorm:"index;not null" json:"customerLocalId"`
	SaleLocalID     *string         `gorm:"index" json:"saleLocalId,omitempty"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Type            string          `gorm:"type:varchar(20);not null" json:"type"`
	BalanceAfter    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"balanceAfter"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// SignedAmount returns the amount with the ledger sign convention applied:
// credit_given raises the balance, payment_received lowers it.
func (t *CreditTransaction) SignedAmount() decimal.Decimal {
	if t.Type == PaymentReceived {
		return t.Amount.Neg()
	}
	return t.Amount
}
