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

package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wavefleet/wavefleet/internal/audit"
	"github.com/wavefleet/wavefleet/internal/identity"
)

// RoleSource resolves a principal's roles within a tenant. Satisfied by the
// tenant access resolver.
type RoleSource interface {
	RolesIn(ctx context.Context, principalID, tenantID string) ([]string, error)
}

// Service manages the approval request lifecycle
type Service struct {
	repo        Repository
	roles       RoleSource
	auditLogger audit.Logger
}

// NewService creates a new approval service
func NewService(repo Repository, roles RoleSource, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		roles:       roles,
		auditLogger: auditLogger,
	}
}

// Create records a new PENDING approval request for an action the policy
// conditionally allowed.
func (s *Service) Create(ctx context.Context, principalID, tenantID, action, approverRole string) (*Request, error) {
	if approverRole == "" {
		return nil, fmt.Errorf("approver role is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}

	request := &Request{
		ID:                   id.String(),
		PrincipalID:          principalID,
		TenantID:             tenantID,
		Action:               action,
		RequiredApproverRole: approverRole,
		Status:               StatusPending,
		CreatedAt:            time.Now(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create approval request: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeApprovalRequired,
		TenantID: tenantID,
		ActorID:  principalID,
		Resource: action,
		Metadata: map[string]any{"approval_id": request.ID, "approver_role": approverRole},
	})

	return request, nil
}

// Get retrieves an approval request by ID
func (s *Service) Get(ctx context.Context, id string) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByTenant lists approval requests for a tenant, optionally filtered by
// status.
func (s *Service) ListByTenant(ctx context.Context, tenantID string, status *Status, limit, offset int) ([]*Request, error) {
	return s.repo.ListByTenant(ctx, tenantID, status, limit, offset)
}

// Resolve transitions a PENDING request to APPROVED or REJECTED. The
// resolving principal must hold the request's required approver role within
// the request's tenant. Approval never re-executes the original action; the
// requester re-invokes it after observing APPROVED.
func (s *Service) Resolve(ctx context.Context, id string, resolver identity.Principal, outcome Status) (*Request, error) {
	if outcome != StatusApproved && outcome != StatusRejected {
		return nil, ErrInvalidOutcome
	}

	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Resolved() {
		return nil, ErrAlreadyResolved
	}

	roles, err := s.roles.RolesIn(ctx, resolver.ID, request.TenantID)
	if err != nil {
		return nil, err
	}
	if !hasRole(roles, request.RequiredApproverRole) {
		return nil, ErrForbiddenApprover
	}

	resolvedAt := time.Now()
	if err := s.repo.Resolve(ctx, id, outcome, resolver.ID, resolvedAt); err != nil {
		// A concurrent approver may have won between the read above and the
		// conditional update; the repository reports ErrAlreadyResolved.
		return nil, err
	}

	request.Status = outcome
	request.ResolvedAt = &resolvedAt
	resolverID := resolver.ID
	request.ResolvedBy = &resolverID

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeApprovalResolved,
		TenantID: request.TenantID,
		ActorID:  resolver.ID,
		Resource: request.Action,
		Metadata: map[string]any{"approval_id": id, "outcome": string(outcome)},
	})

	return request, nil
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
