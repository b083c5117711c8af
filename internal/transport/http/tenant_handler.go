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
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wavefleet/wavefleet/internal/tenant"
)

// CreateTenantRequest is the tenant creation payload.
type CreateTenantRequest struct {
	Name string `json:"name"`
}

// CreateTenant provisions a new tenant. Platform-level operation.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := h.tenantService.CreateTenant(r.Context(), req.Name, principal.ID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantAlreadyExists) {
			respondError(w, http.StatusConflict, "tenant name already in use")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// GetTenant returns one tenant. Visible to principals with access to it.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	canSee, err := h.accessResolver.CanAccess(r.Context(), principal, tenantID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve tenant access")
		return
	}
	if !canSee {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}

	tn, err := h.tenantService.GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load tenant")
		return
	}

	respondJSON(w, http.StatusOK, tn)
}

// ListTenants lists all tenants. Platform-level operation.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	tenants, err := h.tenantService.ListTenants(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}
	if tenants == nil {
		tenants = []*tenant.Tenant{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenants": tenants,
	})
}

// DeactivateTenant marks a tenant inactive. Platform-level operation;
// the policy engine treats inactive tenants as invalid targets.
func (h *Handler) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	tn, err := h.tenantService.DeactivateTenant(r.Context(), tenantID, principal.ID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to deactivate tenant")
		return
	}

	respondJSON(w, http.StatusOK, tn)
}
