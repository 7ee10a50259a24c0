package model

import "time"

// User roles.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// User is an employee of a Business. Users are created server-side and pulled
// down to devices in full (no watermark filter); they are never part of a push
// batch, so they carry no sync metadata — devices key them by server id.
// Soft-deleted via IsActive, never physically deleted once synced.
type User struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	BusinessID uint   `gorm:"index;not null" json:"businessId"`
	Name       string `gorm:"not null" json:"name"`
	Phone      string `gorm:"uniqueIndex;not null" json:"phone"`
	// PinHash is the bcrypt hash of the login PIN. Never serialized.
	PinHash   string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"type:varchar(10);not null;default:'cashier'" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
