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

package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/wavefleet/wavefleet/internal/audit"
	"github.com/wavefleet/wavefleet/internal/tenant"
)

// Service provides membership management business logic
type Service struct {
	repo        Repository
	tenantRepo  tenant.Repository
	auditLogger audit.Logger
}

// NewService creates a new membership service
func NewService(repo Repository, tenantRepo tenant.Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		tenantRepo:  tenantRepo,
		auditLogger: auditLogger,
	}
}

// Grant adds a principal to a tenant with the given role set.
func (s *Service) Grant(ctx context.Context, principalID, tenantID string, roles []string, grantedBy string) (*Membership, error) {
	if principalID == "" {
		return nil, fmt.Errorf("principal id is required")
	}
	if err := validateRoles(roles); err != nil {
		return nil, err
	}

	// The tenant must exist; membership rows never reference phantom tenants.
	if _, err := s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}

	m := &Membership{
		PrincipalID: principalID,
		TenantID:    tenantID,
		Roles:       roles,
		GrantedAt:   time.Now(),
		GrantedBy:   grantedBy,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMembershipGranted,
		TenantID: tenantID,
		ActorID:  grantedBy,
		Metadata: map[string]any{"principal_id": principalID, "roles": roles},
	})

	return m, nil
}

// UpdateRoles replaces the role set of an existing membership. An empty role
// set is rejected; revoking the last role means deleting the membership.
func (s *Service) UpdateRoles(ctx context.Context, principalID, tenantID string, roles []string, updatedBy string) error {
	if err := validateRoles(roles); err != nil {
		return err
	}

	if err := s.repo.SetRoles(ctx, principalID, tenantID, roles); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMembershipUpdated,
		TenantID: tenantID,
		ActorID:  updatedBy,
		Metadata: map[string]any{"principal_id": principalID, "roles": roles},
	})

	return nil
}

// Revoke removes a principal from a tenant.
func (s *Service) Revoke(ctx context.Context, principalID, tenantID, revokedBy string) error {
	if err := s.repo.Delete(ctx, principalID, tenantID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMembershipRevoked,
		TenantID: tenantID,
		ActorID:  revokedBy,
		Metadata: map[string]any{"principal_id": principalID},
	})

	return nil
}

// Get retrieves a single membership
func (s *Service) Get(ctx context.Context, principalID, tenantID string) (*Membership, error) {
	return s.repo.Get(ctx, principalID, tenantID)
}

// ListForTenant retrieves all members of a tenant
func (s *Service) ListForTenant(ctx context.Context, tenantID string) ([]*Membership, error) {
	return s.repo.ListForTenant(ctx, tenantID)
}

func validateRoles(roles []string) error {
	if len(roles) == 0 {
		return ErrEmptyRoleSet
	}
	for _, role := range roles {
		known := false
		for _, k := range KnownRoles {
			if role == k {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownRole, role)
		}
	}
	return nil
}
