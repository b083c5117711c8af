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
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wavefleet/wavefleet/internal/approval"
	"github.com/wavefleet/wavefleet/internal/observability/logger"
)

// GetApproval returns one approval request. Visibility requires either
// tenant access to the request's tenant or an unrestricted principal.
func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	request, err := h.approvalService.Get(r.Context(), chi.URLParam(r, "approvalID"))
	if err != nil {
		if errors.Is(err, approval.ErrRequestNotFound) {
			respondError(w, http.StatusNotFound, "approval request not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load approval request")
		return
	}

	canSee, err := h.accessResolver.CanAccess(r.Context(), principal, request.TenantID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve tenant access")
		return
	}
	if !canSee {
		// Hide existence from principals outside the tenant.
		respondError(w, http.StatusNotFound, "approval request not found")
		return
	}

	respondJSON(w, http.StatusOK, request)
}

// ResolveApprovalRequest is the resolution payload.
type ResolveApprovalRequest struct {
	Outcome approval.Status `json:"outcome"`
}

// ResolveApproval applies an approver's decision to a pending request.
func (h *Handler) ResolveApproval(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req ResolveApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	approvalID := chi.URLParam(r, "approvalID")
	resolved, err := h.approvalService.Resolve(r.Context(), approvalID, principal, req.Outcome)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrInvalidOutcome):
			respondError(w, http.StatusBadRequest, "outcome must be APPROVED or REJECTED")
		case errors.Is(err, approval.ErrRequestNotFound):
			respondError(w, http.StatusNotFound, "approval request not found")
		case errors.Is(err, approval.ErrAlreadyResolved):
			respondError(w, http.StatusConflict, "approval request already resolved")
		case errors.Is(err, approval.ErrForbiddenApprover):
			respondError(w, http.StatusForbidden, "approver role required to resolve this request")
		default:
			slog.ErrorContext(r.Context(), "failed to resolve approval request",
				logger.Error(err),
				logger.ApprovalID(approvalID),
				logger.PrincipalID(principal.ID),
			)
			respondError(w, http.StatusInternalServerError, "failed to resolve approval request")
		}
		return
	}

	respondJSON(w, http.StatusOK, resolved)
}

// ListTenantApprovals lists approval requests for one tenant, optionally
// filtered by ?status=, newest first.
func (h *Handler) ListTenantApprovals(w http.ResponseWriter, r *http.Request) {
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
		respondError(w, http.StatusForbidden, "no access to this tenant")
		return
	}

	var status *approval.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := approval.Status(raw)
		if s != approval.StatusPending && s != approval.StatusApproved && s != approval.StatusRejected {
			respondError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		status = &s
	}

	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	requests, err := h.approvalService.ListByTenant(r.Context(), tenantID, status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list approval requests")
		return
	}
	if requests == nil {
		requests = []*approval.Request{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"approvals": requests,
	})
}
