package model

import "time"

// Sync alert kinds and statuses.
const (
	AlertUnresolvedReference = "unresolved_reference"
	AlertEntityConflict      = "entity_conflict"

	AlertPending = "pending"
	AlertSent    = "sent"
	AlertError   = "error"
)

// SyncAlert records a data-quality finding produced while applying a push
// batch (an unresolved foreign key, an entity parked in conflict). Alerts are
// mailed to the business owner by the worker pool; Retry fields drive the
// retry cron when SMTP is down.
type SyncAlert struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	BusinessID    uint    `gorm:"index;not null" json:"businessId"`
	Kind          string  `gorm:"type:varchar(30);not null" json:"kind"`
	EntityType    string  `gorm:"type:varchar(20);not null" json:"entityType"`
	EntityLocalID string  `gorm:"index;not null" json:"entityLocalId"`
	Detail        string  `gorm:"not null" json:"detail"`
	Status        string  `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	RetryCount    int     `gorm:"not null;default:0" json:"retryCount"`
	NextRetryAt   *time.Time `gorm:"index" json:"nextRetryAt,omitempty"`
	LastError     *string `json:"lastError,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
