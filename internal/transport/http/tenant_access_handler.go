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
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wavefleet/wavefleet/internal/observability/logger"
	"github.com/wavefleet/wavefleet/internal/tenantaccess"
)

// TenantAccessEntry is one row of the LIMITED tenant listing.
type TenantAccessEntry struct {
	TenantID string   `json:"tenantId"`
	Roles    []string `json:"roles"`
}

// TenantAccessResponse is the payload for GET /me/tenants. Exactly one of
// the two shapes is produced: unrestricted principals get the sentinel total
// and an explanatory message, limited principals get a real count plus one
// page of memberships.
type TenantAccessResponse struct {
	AccessType   tenantaccess.AccessType `json:"accessType"`
	TotalTenants int64                   `json:"totalTenants"`
	Message      string                  `json:"message,omitempty"`
	Tenants      []TenantAccessEntry     `json:"tenants"`
}

// ListMyTenants returns the caller's tenant-access summary.
func (h *Handler) ListMyTenants(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit := queryInt(r, "limit", tenantaccess.DefaultPageSize)
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	summary, err := h.accessResolver.Summarize(r.Context(), principal, limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to summarize tenant access",
			logger.Error(err),
			logger.PrincipalID(principal.ID),
		)
		respondError(w, http.StatusInternalServerError, "failed to resolve tenant access")
		return
	}

	resp := TenantAccessResponse{
		AccessType:   summary.Type,
		TotalTenants: summary.Total,
		Message:      summary.Reason,
		Tenants:      make([]TenantAccessEntry, 0, len(summary.Memberships)),
	}
	for _, m := range summary.Memberships {
		resp.Tenants = append(resp.Tenants, TenantAccessEntry{
			TenantID: m.TenantID,
			Roles:    m.Roles,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
