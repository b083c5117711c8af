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

	"github.com/wavefleet/wavefleet/internal/authorize"
	"github.com/wavefleet/wavefleet/internal/observability/logger"
)

// AuthorizeRequest is the gate invocation payload. Domain services call
// this before applying any tenant-scoped mutation.
type AuthorizeRequest struct {
	TenantID string         `json:"tenant_id"`
	Action   string         `json:"action"`
	Resource map[string]any `json:"resource,omitempty"`
}

// AuthorizeResponse echoes the verdict. Deny responses carry only the
// generic category; the internal reason code is logged and audited but
// never returned to callers.
type AuthorizeResponse struct {
	Outcome    authorize.Outcome `json:"outcome"`
	Error      string            `json:"error,omitempty"`
	ApprovalID string            `json:"approval_id,omitempty"`
}

// Authorize evaluates one protected operation through the authorization gate.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req AuthorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" || req.Action == "" {
		respondError(w, http.StatusBadRequest, "tenant_id and action are required")
		return
	}

	verdict, err := h.gate.Authorize(r.Context(), principal, req.TenantID, req.Action, req.Resource)
	if err != nil {
		if errors.Is(err, authorize.ErrMissingApproverRole) {
			// Policy configuration defect, not a caller mistake.
			respondError(w, http.StatusInternalServerError, "authorization policy misconfigured")
			return
		}
		slog.ErrorContext(r.Context(), "authorization gate failed",
			logger.Error(err),
			logger.PrincipalID(principal.ID),
			logger.TenantID(req.TenantID),
			logger.Action(req.Action),
		)
		respondError(w, http.StatusInternalServerError, "authorization failed")
		return
	}

	switch verdict.Outcome {
	case authorize.OutcomePermit:
		respondJSON(w, http.StatusOK, AuthorizeResponse{Outcome: verdict.Outcome})
	case authorize.OutcomePendingApproval:
		respondJSON(w, http.StatusAccepted, AuthorizeResponse{
			Outcome:    verdict.Outcome,
			ApprovalID: verdict.ApprovalID,
		})
	default:
		respondJSON(w, http.StatusForbidden, AuthorizeResponse{
			Outcome: verdict.Outcome,
			Error:   "not_authorized",
		})
	}
}
