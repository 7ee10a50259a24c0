package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product unit types.
const (
	UnitEach  = "each"
	UnitKg    = "kg"
	UnitLb    = "lb"
	UnitDozen = "dozen"
	UnitLiter = "liter"
)

// Product is a sellable item. StockQuantity is mutated only at sale creation
// time on the originating device — never during sync. CategoryLocalID is the
// logical reference to the owning category; CategoryID mirrors it in the
// server id space once resolved.
type Product struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	BusinessID uint `gorm:"index:,unique,composite:business_local;not null;uniqueIndex:idx_products_business_barcode" json:"businessId"`
	SyncMeta
	Name            string          `gorm:"index;not null" json:"name"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Cost            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	Barcode         *string         `gorm:"uniqueIndex:idx_products_business_barcode" json:"barcode,omitempty"`
	CategoryID      *uint           `gorm:"index" json:"categoryId,omitempty"`
	CategoryLocalID *string         `gorm:"index" json:"categoryLocalId,omitempty"`
	StockQuantity   int             `gorm:"not null;default:0" json:"stockQuantity"`
	LowStockAlert   int             `gorm:"not null;default:5" json:"lowStockThreshold"`
	UnitType        string          `gorm:"type:varchar(10);not null;default:'each'" json:"unitType"`
	ImageURL        *string         `json:"imageUrl,omitempty"`
	IsActive        bool            `gorm:"not null;default:true" json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
