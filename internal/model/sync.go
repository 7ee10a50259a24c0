package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// SyncStatus tracks whether a local copy of an entity matches the server's
// last-known state.
type SyncStatus string

const (
	// SyncPending marks an entity mutated locally and not yet confirmed by
	// the server.
	SyncPending SyncStatus = "pending"
	// SyncSynced marks an entity whose local copy matches the server.
	SyncSynced SyncStatus = "synced"
	// SyncConflict marks an irreconcilable entity. Never auto-resolved;
	// surfaced for manual repair.
	SyncConflict SyncStatus = "conflict"
)

// SyncMeta is embedded by every syncable entity. LocalID is the logical key
// for reconciliation: minted once on the originating device, globally unique,
// immutable. ServerID is populated only on device-resident copies — it holds
// the server-assigned surrogate id once the first push lands. On the server
// the surrogate id is the row ID and ServerID stays empty.
//
// The unique index is composite with business_id (the embedding model tags
// its BusinessID into the same `business_local` index): a device can only
// ever collide with localIds of its own business, so one tenant's push can
// never rewrite another tenant's rows.
type SyncMeta struct {
	LocalID    string     `gorm:"index:,unique,composite:business_local;not null" json:"localId"`
	ServerID   *uint      `gorm:"index" json:"serverId,omitempty"`
	SyncStatus SyncStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"syncStatus"`
}

// NewLocalID mints a globally unique local identifier: millisecond timestamp
// plus a random suffix. Sortable by creation time, collision-safe across
// devices.
func NewLocalID() string {
	buf := make([]byte, 5)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}
