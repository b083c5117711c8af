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

package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/wavefleet/wavefleet/internal/audit"
)

// Service resolves principals and manages global role grants
type Service struct {
	globalRoles GlobalRoleRepository
	auditLogger audit.Logger
}

// NewService creates a new identity service
func NewService(globalRoles GlobalRoleRepository, auditLogger audit.Logger) *Service {
	return &Service{
		globalRoles: globalRoles,
		auditLogger: auditLogger,
	}
}

// ResolvePrincipal builds the request Principal from gateway token claims.
// This is a single bounded lookup against the global-roles table; membership
// data is never touched here.
func (s *Service) ResolvePrincipal(ctx context.Context, claims Claims) (Principal, error) {
	roles, err := s.globalRoles.ListForPrincipal(ctx, claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("failed to resolve global roles: %w", err)
	}

	p := Principal{
		ID:          claims.Subject,
		Email:       claims.Email,
		TenantClaim: claims.TenantClaim,
	}
	for _, role := range roles {
		p.GlobalRoles = append(p.GlobalRoles, role.Role)
		if role.UnrestrictedAccess {
			p.Unrestricted = true
		}
	}
	return p, nil
}

// GrantGlobalRole assigns a platform-wide role to a principal
func (s *Service) GrantGlobalRole(ctx context.Context, principalID, roleName string, unrestricted bool, grantedBy string) error {
	if principalID == "" {
		return fmt.Errorf("principal id is required")
	}
	if roleName == "" {
		return fmt.Errorf("role name is required")
	}

	role := &GlobalRole{
		PrincipalID:        principalID,
		Role:               roleName,
		UnrestrictedAccess: unrestricted,
		GrantedAt:          time.Now(),
		GrantedBy:          grantedBy,
	}
	if err := s.globalRoles.Grant(ctx, role); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeGlobalRoleGranted,
		ActorID:  grantedBy,
		Resource: roleName,
		Metadata: map[string]any{"principal_id": principalID, "unrestricted": unrestricted},
	})

	return nil
}

// RevokeGlobalRole removes a platform-wide role from a principal
func (s *Service) RevokeGlobalRole(ctx context.Context, principalID, roleName, revokedBy string) error {
	if err := s.globalRoles.Revoke(ctx, principalID, roleName); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeGlobalRoleRevoked,
		ActorID:  revokedBy,
		Resource: roleName,
		Metadata: map[string]any{"principal_id": principalID},
	})

	return nil
}
