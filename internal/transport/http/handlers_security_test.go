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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavefleet/wavefleet/internal/approval"
	"github.com/wavefleet/wavefleet/internal/audit"
	"github.com/wavefleet/wavefleet/internal/authorize"
	"github.com/wavefleet/wavefleet/internal/identity"
	"github.com/wavefleet/wavefleet/internal/membership"
	"github.com/wavefleet/wavefleet/internal/policy"
	"github.com/wavefleet/wavefleet/internal/tenantaccess"
)

// In-memory fakes; the handler tests exercise HTTP behavior, not storage.

type fakeMembershipRepo struct {
	rows map[string]*membership.Membership // key principal+"/"+tenant
}

func membershipKey(principalID, tenantID string) string {
	return principalID + "/" + tenantID
}

func (f *fakeMembershipRepo) Create(ctx context.Context, m *membership.Membership) error {
	f.rows[membershipKey(m.PrincipalID, m.TenantID)] = m
	return nil
}

func (f *fakeMembershipRepo) SetRoles(ctx context.Context, principalID, tenantID string, roles []string) error {
	m, ok := f.rows[membershipKey(principalID, tenantID)]
	if !ok {
		return membership.ErrMembershipNotFound
	}
	m.Roles = roles
	return nil
}

func (f *fakeMembershipRepo) Delete(ctx context.Context, principalID, tenantID string) error {
	delete(f.rows, membershipKey(principalID, tenantID))
	return nil
}

func (f *fakeMembershipRepo) Get(ctx context.Context, principalID, tenantID string) (*membership.Membership, error) {
	m, ok := f.rows[membershipKey(principalID, tenantID)]
	if !ok {
		return nil, membership.ErrMembershipNotFound
	}
	return m, nil
}

func (f *fakeMembershipRepo) ListForPrincipal(ctx context.Context, principalID string, limit, offset int) ([]*membership.Membership, error) {
	var out []*membership.Membership
	for _, m := range f.rows {
		if m.PrincipalID == principalID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) CountForPrincipal(ctx context.Context, principalID string) (int64, error) {
	var n int64
	for _, m := range f.rows {
		if m.PrincipalID == principalID {
			n++
		}
	}
	return n, nil
}

func (f *fakeMembershipRepo) ListForTenant(ctx context.Context, tenantID string) ([]*membership.Membership, error) {
	var out []*membership.Membership
	for _, m := range f.rows {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeApprovalRepo struct {
	rows map[string]*approval.Request
}

func (f *fakeApprovalRepo) Create(ctx context.Context, r *approval.Request) error {
	f.rows[r.ID] = r
	return nil
}

func (f *fakeApprovalRepo) GetByID(ctx context.Context, id string) (*approval.Request, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, approval.ErrRequestNotFound
	}
	return r, nil
}

func (f *fakeApprovalRepo) Resolve(ctx context.Context, id string, status approval.Status, resolvedBy string, resolvedAt time.Time) error {
	r, ok := f.rows[id]
	if !ok {
		return approval.ErrRequestNotFound
	}
	if r.Status != approval.StatusPending {
		return approval.ErrAlreadyResolved
	}
	r.Status = status
	r.ResolvedBy = &resolvedBy
	r.ResolvedAt = &resolvedAt
	return nil
}

func (f *fakeApprovalRepo) ListByTenant(ctx context.Context, tenantID string, status *approval.Status, limit, offset int) ([]*approval.Request, error) {
	var out []*approval.Request
	for _, r := range f.rows {
		if r.TenantID == tenantID && (status == nil || r.Status == *status) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubPolicyClient struct {
	decision policy.Decision
	err      error
}

func (s *stubPolicyClient) Evaluate(ctx context.Context, q policy.Query) (policy.Decision, error) {
	if s.err != nil {
		return policy.Decision{}, s.err
	}
	d := s.decision
	d.Normalize()
	return d, nil
}

type nopAudit struct{}

func (nopAudit) Log(ctx context.Context, event audit.Event) {}

func newTestHandler(memberships *fakeMembershipRepo, policyClient policy.Client) *Handler {
	resolver := tenantaccess.NewResolver(memberships, 0)
	approvalService := approval.NewService(&fakeApprovalRepo{rows: map[string]*approval.Request{}}, resolver, nopAudit{})
	gate := authorize.NewGate(resolver, policyClient, approvalService, nopAudit{}, nil)
	return NewHandler(nil, nil, nil, resolver, gate, approvalService, nopAudit{})
}

func withPrincipal(r *http.Request, p identity.Principal) *http.Request {
	return r.WithContext(WithPrincipal(r.Context(), p))
}

// TestPurpose: Validates the LIMITED response shape of the tenant listing.
// Scope: Unit Test
// Expected: A principal with two memberships gets accessType LIMITED, a real count and per-tenant role sets.
// Test Case ID: HTP-01
func TestHTTP_ListMyTenants_LimitedShape(t *testing.T) {
	memberships := &fakeMembershipRepo{rows: map[string]*membership.Membership{}}
	memberships.Create(context.Background(), &membership.Membership{
		PrincipalID: "op-1", TenantID: "t-1", Roles: []string{membership.RoleOperator},
	})
	memberships.Create(context.Background(), &membership.Membership{
		PrincipalID: "op-1", TenantID: "t-2", Roles: []string{membership.RoleSeller, membership.RoleMechanic},
	})
	h := newTestHandler(memberships, &stubPolicyClient{})

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/me/tenants", nil), identity.Principal{ID: "op-1"})
	w := httptest.NewRecorder()

	h.ListMyTenants(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp TenantAccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, tenantaccess.AccessLimited, resp.AccessType)
	assert.Equal(t, int64(2), resp.TotalTenants)
	assert.Len(t, resp.Tenants, 2)
	assert.Empty(t, resp.Message)
}

// TestPurpose: Validates the UNRESTRICTED response shape of the tenant listing.
// Scope: Unit Test
// Security: The unbounded tenant set must never be materialized into a response
// Expected: totalTenants is the -1 sentinel, the tenant list is an empty array and a message explains why.
// Test Case ID: HTP-02
func TestHTTP_ListMyTenants_UnrestrictedShape(t *testing.T) {
	h := newTestHandler(&fakeMembershipRepo{rows: map[string]*membership.Membership{}}, &stubPolicyClient{})

	p := identity.Principal{ID: "admin-1", GlobalRoles: []string{identity.RolePlatformAdmin}, Unrestricted: true}
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/me/tenants", nil), p)
	w := httptest.NewRecorder()

	h.ListMyTenants(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp TenantAccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, tenantaccess.AccessUnrestricted, resp.AccessType)
	assert.Equal(t, int64(-1), resp.TotalTenants)
	assert.NotEmpty(t, resp.Message)
	assert.NotNil(t, resp.Tenants)
	assert.Len(t, resp.Tenants, 0)

	// The raw body must carry an empty array, not null.
	assert.Contains(t, w.Body.String(), `"tenants":[]`)
}

// TestPurpose: Validates that deny responses expose only the generic category.
// Scope: Unit Test
// Security: Internal reason codes would leak policy structure to untrusted callers
// Expected: A denied authorization returns 403 with error "not_authorized" and no internal reason code in the body.
// Test Case ID: HTP-03
func TestHTTP_Authorize_DenyHidesReason(t *testing.T) {
	// No membership rows: the gate denies on tenant scope.
	h := newTestHandler(&fakeMembershipRepo{rows: map[string]*membership.Membership{}}, &stubPolicyClient{
		decision: policy.Decision{Allow: true},
	})

	body, _ := json.Marshal(AuthorizeRequest{TenantID: "t-1", Action: "rental:create"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/authorize", bytes.NewReader(body)), identity.Principal{ID: "op-1"})
	w := httptest.NewRecorder()

	h.Authorize(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	var resp AuthorizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, authorize.OutcomeDeny, resp.Outcome)
	assert.Equal(t, "not_authorized", resp.Error)
	assert.NotContains(t, w.Body.String(), "tenant_not_accessible")
}

// TestPurpose: Validates the pending-approval response of the authorize endpoint.
// Scope: Unit Test
// Expected: A conditionally allowed action returns 202 Accepted with the approval request ID.
// Test Case ID: HTP-04
func TestHTTP_Authorize_PendingApproval(t *testing.T) {
	memberships := &fakeMembershipRepo{rows: map[string]*membership.Membership{}}
	memberships.Create(context.Background(), &membership.Membership{
		PrincipalID: "seller-1", TenantID: "t-1", Roles: []string{membership.RoleSeller},
	})
	h := newTestHandler(memberships, &stubPolicyClient{decision: policy.Decision{
		Allow:                true,
		RequiresApproval:     true,
		RequiredApproverRole: membership.RoleAdminTenant,
	}})

	body, _ := json.Marshal(AuthorizeRequest{TenantID: "t-1", Action: "commission:override"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/authorize", bytes.NewReader(body)), identity.Principal{ID: "seller-1"})
	w := httptest.NewRecorder()

	h.Authorize(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp AuthorizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, authorize.OutcomePendingApproval, resp.Outcome)
	assert.NotEmpty(t, resp.ApprovalID)
}

// TestPurpose: Validates input validation on the authorize endpoint.
// Scope: Unit Test
// Security: JSON parsing safety and mandatory field enforcement
// Expected: Malformed JSON and missing tenant_id/action return 400 Bad Request.
// Test Case ID: HTP-05
func TestHTTP_Authorize_BadRequest(t *testing.T) {
	h := newTestHandler(&fakeMembershipRepo{rows: map[string]*membership.Membership{}}, &stubPolicyClient{})
	p := identity.Principal{ID: "op-1"}

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/authorize", strings.NewReader(`{invalid`)), p)
	w := httptest.NewRecorder()
	h.Authorize(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, _ := json.Marshal(AuthorizeRequest{Action: "rental:create"})
	req = withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/authorize", bytes.NewReader(body)), p)
	w = httptest.NewRecorder()
	h.Authorize(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestPurpose: Validates that unauthenticated requests never reach the gate.
// Scope: Unit Test
// Expected: Without a resolved principal in context the endpoint returns 401.
// Test Case ID: HTP-06
func TestHTTP_Authorize_Unauthenticated(t *testing.T) {
	h := newTestHandler(&fakeMembershipRepo{rows: map[string]*membership.Membership{}}, &stubPolicyClient{})

	body, _ := json.Marshal(AuthorizeRequest{TenantID: "t-1", Action: "rental:create"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authorize", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Authorize(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
