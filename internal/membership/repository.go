package membership

import (
	"context"
	"errors"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMembershipExists   = errors.New("membership already exists")
	ErrEmptyRoleSet       = errors.New("membership role set must not be empty")
	ErrUnknownRole        = errors.New("unknown tenant role")
)

// Repository defines the interface for membership storage
type Repository interface {
	// Create inserts a new membership; fails with ErrMembershipExists when a
	// row for the (principal, tenant) pair already exists.
	Create(ctx context.Context, m *Membership) error

	// SetRoles replaces the role set of an existing membership.
	SetRoles(ctx context.Context, principalID, tenantID string, roles []string) error

	// Delete removes a membership entirely.
	Delete(ctx context.Context, principalID, tenantID string) error

	// Get retrieves the membership for a (principal, tenant) pair.
	Get(ctx context.Context, principalID, tenantID string) (*Membership, error)

	// ListForPrincipal retrieves a bounded page of a principal's memberships.
	ListForPrincipal(ctx context.Context, principalID string, limit, offset int) ([]*Membership, error)

	// CountForPrincipal counts a principal's memberships without loading them.
	CountForPrincipal(ctx context.Context, principalID string) (int64, error)

	// ListForTenant retrieves all members of a tenant.
	ListForTenant(ctx context.Context, tenantID string) ([]*Membership, error)
}
