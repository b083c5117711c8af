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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavefleet/wavefleet/internal/identity"
	"github.com/wavefleet/wavefleet/internal/membership"
)

type fakeGlobalRoleRepo struct {
	roles map[string][]*identity.GlobalRole
}

func (f *fakeGlobalRoleRepo) Grant(ctx context.Context, role *identity.GlobalRole) error {
	f.roles[role.PrincipalID] = append(f.roles[role.PrincipalID], role)
	return nil
}

func (f *fakeGlobalRoleRepo) Revoke(ctx context.Context, principalID, roleName string) error {
	return nil
}

func (f *fakeGlobalRoleRepo) ListForPrincipal(ctx context.Context, principalID string) ([]*identity.GlobalRole, error) {
	return f.roles[principalID], nil
}

func newAuthTestHandler() *Handler {
	identityService := identity.NewService(&fakeGlobalRoleRepo{roles: map[string][]*identity.GlobalRole{}}, nopAudit{})
	h := newTestHandler(&fakeMembershipRepo{rows: map[string]*membership.Membership{}}, &stubPolicyClient{})
	h.identityService = identityService
	return h
}

func gatewayToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := token.SignedString([]byte("gateway-secret"))
	require.NoError(t, err)
	return signed
}

func protectedProbe(h *Handler) (http.Handler, *identity.Principal) {
	captured := &identity.Principal{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := GetPrincipal(r.Context()); ok {
			*captured = p
		}
		w.WriteHeader(http.StatusOK)
	})
	return h.AuthMiddleware(next), captured
}

// TestPurpose: Validates bearer token handling on protected routes.
// Scope: Unit Test
// Security: Requests without a usable identity must never reach handlers
// Expected: A valid bearer token resolves the principal into context; missing or garbage tokens return 401.
// Test Case ID: MID-01
func TestMiddleware_Auth_BearerToken(t *testing.T) {
	h := newAuthTestHandler()
	protected, captured := protectedProbe(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/tenants", nil)
	req.Header.Set("Authorization", "Bearer "+gatewayToken(t, "op-1"))
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "op-1", captured.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me/tenants", nil)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me/tenants", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestPurpose: Validates that client-supplied tenant headers are rejected outright.
// Scope: Unit Test
// Security: Tenant context spoofing attempt (CWE-290)
// Expected: An authenticated request carrying X-Tenant-ID gets 400 Bad Request and the handler never runs.
// Test Case ID: MID-02
func TestMiddleware_Auth_RejectsTenantHeader(t *testing.T) {
	h := newAuthTestHandler()
	protected, captured := protectedProbe(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/tenants", nil)
	req.Header.Set("Authorization", "Bearer "+gatewayToken(t, "op-1"))
	req.Header.Set("X-Tenant-ID", "t-spoofed")
	w := httptest.NewRecorder()

	protected.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, captured.ID)
}

// TestPurpose: Validates platform-role gating of platform-level endpoints.
// Scope: Unit Test
// Expected: A principal without PLATFORM_ADMIN gets 403; with it the request passes through.
// Test Case ID: MID-03
func TestMiddleware_RequirePlatformAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequirePlatformAdmin(next)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", nil)
	req = withPrincipal(req, identity.Principal{ID: "op-1"})
	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/tenants", nil)
	req = withPrincipal(req, identity.Principal{
		ID:          "admin-1",
		GlobalRoles: []string{identity.RolePlatformAdmin},
	})
	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
