package engine

import (
	"context"
	"time"

	"github.com/edcadet10/tikes/internal/dto"
)

// API is the device's view of the server sync endpoints. Both calls are
// idempotent under retry: resubmitting a push batch cannot create duplicates
// (localId uniqueness server-side) and re-requesting a pull window cannot
// corrupt local state (merge idempotence).
//
// Implementations map transport failures to *NetworkError and 401/403 to
// *AuthError, and must fail closed before any network call when no valid
// credential is available.
type API interface {
	Push(ctx context.Context, req dto.PushRequest) (*dto.PushResponse, error)
	Pull(ctx context.Context, since time.Time) (*dto.PullResponse, error)
}
