package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy for a sync cycle. Entity-level problems never escalate to
// batch failure; batch-level problems abort the remainder of the current
// direction but never corrupt already-applied work.

// ErrSyncInProgress is returned when a sync cycle is invoked while another
// one holds the single-flight lock.
var ErrSyncInProgress = errors.New("sync cycle already in progress")

// AuthError is fatal to the cycle: not authenticated or not authorized.
// No retry — the device must re-login first.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "auth: " + e.Reason }

// NetworkError is transient: the current direction aborts without rolling
// back already-confirmed entities, and the remaining batch is retried on the
// next cycle.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network: %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError marks a single malformed entity: it is skipped, parked in
// conflict, and the rest of the batch continues.
type ValidationError struct {
	EntityType string
	LocalID    string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s: %s", e.EntityType, e.LocalID, e.Reason)
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
