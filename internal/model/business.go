package model

import "time"

// Business is the root tenant. Every syncable entity belongs to exactly one
// Business; the business id on the JWT is the isolation boundary for all
// queries.
type Business struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"not null" json:"name"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
	Address  *string `json:"address,omitempty"`
	Currency string  `gorm:"type:varchar(3);not null;default:'HTG'" json:"currency"`
	Language string  `gorm:"type:varchar(2);not null;default:'ht'" json:"language"`
	// TaxRate is a percentage applied at sale time on the device.
	TaxRate   float64   `gorm:"not null;default:0" json:"taxRate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
