package approval

import (
	"context"
	"time"
)

// Repository defines the interface for approval request storage
type Repository interface {
	Create(ctx context.Context, request *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)

	// Resolve atomically transitions a PENDING request to the given terminal
	// status. The update is conditional on the current status still being
	// PENDING; when another approver won the race the implementation returns
	// ErrAlreadyResolved rather than overwriting.
	Resolve(ctx context.Context, id string, status Status, resolvedBy string, resolvedAt time.Time) error

	ListByTenant(ctx context.Context, tenantID string, status *Status, limit, offset int) ([]*Request, error)

	// ExpireOlderThan rejects every PENDING request created before the
	// cutoff and returns how many rows transitioned.
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
