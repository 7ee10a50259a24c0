package model

import "time"

// Category classifies products. Cheapest entity in the sync protocol: no
// cross-entity references, pulled in full on every cycle.
type Category struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	BusinessID uint `gorm:"index:,unique,composite:business_local;not null" json:"businessId"`
	SyncMeta
	Name      string    `gorm:"not null" json:"name"`
	Icon      *string   `json:"icon,omitempty"`
	SortOrder int       `gorm:"not null;default:0" json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
