// Package identity maintains the bidirectional correspondence between
// device-minted local ids and server-assigned surrogate ids, one mapping
// table per entity kind. The correspondence must stay injective: one localId
// never maps to two server ids, and vice versa.
package identity

import (
	"fmt"
	"sync"
)

// Entity kinds with their own id spaces.
const (
	KindCategory          = "category"
	KindProduct           = "product"
	KindCustomer          = "customer"
	KindSale              = "sale"
	KindCreditTransaction = "creditTransaction"
)

// Pair is one localId↔serverId correspondence.
type Pair struct {
	LocalID  string
	ServerID uint
}

// Resolver answers id-space translation queries. Safe for concurrent use;
// the sync engine records mappings while the POS layer reads them.
type Resolver struct {
	mu       sync.RWMutex
	toServer map[string]map[string]uint // kind → localId → serverId
	toLocal  map[string]map[uint]string // kind → serverId → localId
}

func NewResolver() *Resolver {
	return &Resolver{
		toServer: make(map[string]map[string]uint),
		toLocal:  make(map[string]map[uint]string),
	}
}

// Record registers a mapping. Re-recording an identical pair is a no-op;
// contradicting an existing mapping is corruption and is rejected.
func (r *Resolver) Record(kind, localID string, serverID uint) error {
	if localID == "" || serverID == 0 {
		return fmt.Errorf("identity: invalid mapping %q↔%d", localID, serverID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fwd := r.toServer[kind]
	if fwd == nil {
		fwd = make(map[string]uint)
		r.toServer[kind] = fwd
	}
	rev := r.toLocal[kind]
	if rev == nil {
		rev = make(map[uint]string)
		r.toLocal[kind] = rev
	}

	if existing, ok := fwd[localID]; ok && existing != serverID {
		return fmt.Errorf("identity: %s %q already mapped to server id %d, refusing %d", kind, localID, existing, serverID)
	}
	if existing, ok := rev[serverID]; ok && existing != localID {
		return fmt.Errorf("identity: %s server id %d already mapped to %q, refusing %q", kind, serverID, existing, localID)
	}

	fwd[localID] = serverID
	rev[serverID] = localID
	return nil
}

// ServerID translates a localId into the server id space.
func (r *Resolver) ServerID(kind, localID string) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.toServer[kind][localID]
	return id, ok
}

// LocalID translates a server id into the local id space.
func (r *Resolver) LocalID(kind string, serverID uint) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	localID, ok := r.toLocal[kind][serverID]
	return localID, ok
}

// Load bulk-registers persisted pairs, typically at startup from the local
// store. Stops at the first contradictory pair.
func (r *Resolver) Load(kind string, pairs []Pair) error {
	for _, p := range pairs {
		if err := r.Record(kind, p.LocalID, p.ServerID); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of known mappings for a kind.
func (r *Resolver) Len(kind string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.toServer[kind])
}
