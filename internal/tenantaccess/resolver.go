// Copyright 2026 The WaveFleet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tenantaccess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wavefleet/wavefleet/internal/identity"
	"github.com/wavefleet/wavefleet/internal/membership"
)

// Resolver determines which tenants a principal may touch. Unrestricted
// principals are recognized from their global roles before the membership
// store is consulted, so resolution stays O(1) no matter how many tenants
// exist.
type Resolver struct {
	memberships membership.Repository
	cache       *accessCache
}

// NewResolver creates a tenant access resolver. cacheTTL <= 0 disables the
// membership-check cache.
func NewResolver(memberships membership.Repository, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		memberships: memberships,
		cache:       newAccessCache(cacheTTL),
	}
}

// CountAccessibleTenants returns the number of tenants the principal can
// access, or UnrestrictedCount (-1) when the principal holds a global role
// with blanket access. The unbounded set is never materialized or counted.
func (r *Resolver) CountAccessibleTenants(ctx context.Context, p identity.Principal) (int64, error) {
	if p.Unrestricted {
		return UnrestrictedCount, nil
	}
	count, err := r.memberships.CountForPrincipal(ctx, p.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

// ListAccessibleTenants returns one bounded page of the principal's
// memberships. It must never be called for unrestricted principals; callers
// check the unrestricted flag first and short-circuit to the unrestricted
// response shape.
func (r *Resolver) ListAccessibleTenants(ctx context.Context, p identity.Principal, limit, offset int) ([]*membership.Membership, error) {
	if p.Unrestricted {
		return nil, errors.New("membership listing is undefined for unrestricted principals")
	}
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	page, err := r.memberships.ListForPrincipal(ctx, p.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return page, nil
}

// Summarize resolves the full tenant-access shape for a principal: either
// Unrestricted (reason only, count sentinel) or Limited (independent count
// plus one bounded page). A principal with no memberships and no global role
// yields Limited{0, []}, not an error.
func (r *Resolver) Summarize(ctx context.Context, p identity.Principal, limit, offset int) (Summary, error) {
	if p.Unrestricted {
		return Summary{
			Type:   AccessUnrestricted,
			Reason: unrestrictedReason(p),
			Total:  UnrestrictedCount,
		}, nil
	}

	total, err := r.CountAccessibleTenants(ctx, p)
	if err != nil {
		return Summary{}, err
	}
	page, err := r.ListAccessibleTenants(ctx, p, limit, offset)
	if err != nil {
		return Summary{}, err
	}
	if page == nil {
		page = []*membership.Membership{}
	}
	return Summary{
		Type:        AccessLimited,
		Total:       total,
		Memberships: page,
	}, nil
}

// CanAccess reports whether the principal may touch the target tenant. This
// is the cheap pre-policy gate check: unrestricted principals pass
// immediately, everyone else needs a membership row.
func (r *Resolver) CanAccess(ctx context.Context, p identity.Principal, tenantID string) (bool, error) {
	if p.Unrestricted {
		return true, nil
	}

	key := cacheKey(p.ID, tenantID)
	if allowed, ok := r.cache.get(key); ok {
		return allowed, nil
	}

	_, err := r.memberships.Get(ctx, p.ID, tenantID)
	switch {
	case err == nil:
		r.cache.put(key, true)
		return true, nil
	case errors.Is(err, membership.ErrMembershipNotFound):
		r.cache.put(key, false)
		return false, nil
	default:
		return false, fmt.Errorf("failed to resolve membership: %w", err)
	}
}

// RolesIn returns the principal's roles within a tenant, empty when no
// membership exists. Used by the approval workflow to validate approvers.
func (r *Resolver) RolesIn(ctx context.Context, principalID, tenantID string) ([]string, error) {
	m, err := r.memberships.Get(ctx, principalID, tenantID)
	if errors.Is(err, membership.ErrMembershipNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve membership roles: %w", err)
	}
	return m.Roles, nil
}

// Invalidate drops cached access results for a principal. Call after
// membership mutations.
func (r *Resolver) Invalidate(principalID string) {
	r.cache.invalidate(principalID + "\x00")
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func cacheKey(principalID, tenantID string) string {
	return principalID + "\x00" + tenantID
}

func unrestrictedReason(p identity.Principal) string {
	if len(p.GlobalRoles) == 0 {
		return "global unrestricted access"
	}
	return "global role " + strings.Join(p.GlobalRoles, ",") + " grants access to all tenants"
}
