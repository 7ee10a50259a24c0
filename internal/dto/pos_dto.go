package dto

import "github.com/shopspring/decimal"

// ─── Device-side POS requests ────────────────────────────────────────────────
// These are consumed by the local sale service on the device, not by the
// server: the entities they create reach the server later through a push.

type SaleItemRequest struct {
	ProductLocalID string          `json:"productLocalId" validate:"required"`
	Quantity       int             `json:"quantity" validate:"required,min=1"`
	Discount       decimal.Decimal `json:"discount" validate:"min=0"`
}

type SalePaymentRequest struct {
	Method    string          `json:"method" validate:"required,oneof=cash moncash natcash card credit"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Reference *string         `json:"reference,omitempty"`
}

type CreateSaleRequest struct {
	CustomerLocalID *string              `json:"customerLocalId,omitempty"`
	UserID          *uint                `json:"userId,omitempty"`
	Items           []SaleItemRequest    `json:"items" validate:"required,min=1,dive"`
	Payments        []SalePaymentRequest `json:"payments" validate:"required,min=1,dive"`
	Discount        decimal.Decimal      `json:"discount" validate:"min=0"`
	DiscountType    string               `json:"discountType" validate:"omitempty,oneof=percentage fixed"`
	Notes           *string              `json:"notes,omitempty"`
}

type CreditRequest struct {
	CustomerLocalID string          `json:"customerLocalId" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Notes           *string         `json:"notes,omitempty"`
}

// LedgerEntryRequest is CreditRequest without the customer reference, for
// endpoints that carry the customer in the URL path.
type LedgerEntryRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Notes  *string         `json:"notes,omitempty"`
}

type VoidSaleRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type CreateCategoryRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=100"`
	Icon      *string `json:"icon,omitempty"`
	SortOrder int     `json:"sortOrder" validate:"min=0"`
}

type CreateProductRequest struct {
	Name            string          `json:"name" validate:"required,min=1,max=200"`
	Price           decimal.Decimal `json:"price" validate:"required,min=0"`
	Cost            decimal.Decimal `json:"cost" validate:"min=0"`
	Barcode         *string         `json:"barcode,omitempty"`
	CategoryLocalID *string         `json:"categoryLocalId,omitempty"`
	StockQuantity   int             `json:"stockQuantity" validate:"min=0"`
	LowStockAlert   int             `json:"lowStockThreshold" validate:"min=0"`
	UnitType        string          `json:"unitType" validate:"omitempty,oneof=each kg lb dozen liter"`
	ImageURL        *string         `json:"imageUrl,omitempty"`
}

type CreateCustomerRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=200"`
	Phone *string `json:"phone,omitempty"`
	Notes *string `json:"notes,omitempty"`
}
