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

	"github.com/go-chi/chi/v5"
	"github.com/wavefleet/wavefleet/internal/membership"
	"github.com/wavefleet/wavefleet/internal/tenant"
)

// Membership administration actions evaluated through the gate. The gate
// consumes the same policy engine as every other protected operation, so
// membership changes are subject to approval workflows like anything else.
const (
	actionMembershipGrant  = "membership:grant"
	actionMembershipUpdate = "membership:update"
	actionMembershipRevoke = "membership:revoke"
	actionMembershipList   = "membership:list"
)

// authorizeOrReject runs the gate for an admin action and writes the
// rejection response itself. It returns true when the caller may proceed.
func (h *Handler) authorizeOrReject(w http.ResponseWriter, r *http.Request, tenantID, action string) bool {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return false
	}

	verdict, err := h.gate.Authorize(r.Context(), principal, tenantID, action, nil)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "authorization failed")
		return false
	}
	if verdict.Pending() {
		respondJSON(w, http.StatusAccepted, AuthorizeResponse{
			Outcome:    verdict.Outcome,
			ApprovalID: verdict.ApprovalID,
		})
		return false
	}
	if !verdict.Permitted() {
		respondJSON(w, http.StatusForbidden, AuthorizeResponse{
			Outcome: verdict.Outcome,
			Error:   "not_authorized",
		})
		return false
	}
	return true
}

// ListMembers lists the memberships of one tenant.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.authorizeOrReject(w, r, tenantID, actionMembershipList) {
		return
	}

	members, err := h.membershipService.ListForTenant(r.Context(), tenantID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []*membership.Membership{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"members": members,
	})
}

// GrantMembershipRequest is the membership creation payload.
type GrantMembershipRequest struct {
	PrincipalID string   `json:"principal_id"`
	Roles       []string `json:"roles"`
}

// GrantMembership creates a membership with an initial role set.
func (h *Handler) GrantMembership(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.authorizeOrReject(w, r, tenantID, actionMembershipGrant) {
		return
	}
	principal, _ := GetPrincipal(r.Context())

	var req GrantMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PrincipalID == "" {
		respondError(w, http.StatusBadRequest, "principal_id is required")
		return
	}

	member, err := h.membershipService.Grant(r.Context(), req.PrincipalID, tenantID, req.Roles, principal.ID)
	if err != nil {
		switch {
		case errors.Is(err, membership.ErrEmptyRoleSet), errors.Is(err, membership.ErrUnknownRole):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, membership.ErrMembershipExists):
			respondError(w, http.StatusConflict, "membership already exists")
		case errors.Is(err, tenant.ErrTenantNotFound):
			respondError(w, http.StatusNotFound, "tenant not found")
		default:
			respondError(w, http.StatusInternalServerError, "failed to grant membership")
		}
		return
	}

	h.accessResolver.Invalidate(req.PrincipalID)

	respondJSON(w, http.StatusCreated, member)
}

// UpdateMemberRolesRequest is the role replacement payload.
type UpdateMemberRolesRequest struct {
	Roles []string `json:"roles"`
}

// UpdateMemberRoles replaces the role set of an existing membership.
func (h *Handler) UpdateMemberRoles(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	memberID := chi.URLParam(r, "principalID")
	if !h.authorizeOrReject(w, r, tenantID, actionMembershipUpdate) {
		return
	}
	principal, _ := GetPrincipal(r.Context())

	var req UpdateMemberRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.membershipService.UpdateRoles(r.Context(), memberID, tenantID, req.Roles, principal.ID)
	if err != nil {
		switch {
		case errors.Is(err, membership.ErrEmptyRoleSet), errors.Is(err, membership.ErrUnknownRole):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, membership.ErrMembershipNotFound):
			respondError(w, http.StatusNotFound, "membership not found")
		default:
			respondError(w, http.StatusInternalServerError, "failed to update roles")
		}
		return
	}

	h.accessResolver.Invalidate(memberID)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "roles updated",
	})
}

// RevokeMembership removes a principal's membership in a tenant.
func (h *Handler) RevokeMembership(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	memberID := chi.URLParam(r, "principalID")
	if !h.authorizeOrReject(w, r, tenantID, actionMembershipRevoke) {
		return
	}
	principal, _ := GetPrincipal(r.Context())

	err := h.membershipService.Revoke(r.Context(), memberID, tenantID, principal.ID)
	if err != nil {
		if errors.Is(err, membership.ErrMembershipNotFound) {
			respondError(w, http.StatusNotFound, "membership not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to revoke membership")
		return
	}

	h.accessResolver.Invalidate(memberID)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "membership revoked",
	})
}
