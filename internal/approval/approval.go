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
	"errors"
	"time"
)

var (
	ErrRequestNotFound    = errors.New("approval request not found")
	ErrAlreadyResolved    = errors.New("approval request already resolved")
	ErrForbiddenApprover  = errors.New("principal is not authorized to resolve this request")
	ErrInvalidOutcome     = errors.New("resolution outcome must be APPROVED or REJECTED")
)

// Status of an approval request. PENDING transitions exactly once to
// APPROVED or REJECTED; both are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Request tracks an action that policy conditionally allowed pending a
// higher-privileged approver's sign-off.
type Request struct {
	ID                   string     `json:"id"`
	PrincipalID          string     `json:"principal_id"`
	TenantID             string     `json:"tenant_id"`
	Action               string     `json:"action"`
	RequiredApproverRole string     `json:"required_approver_role"`
	Status               Status     `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	ResolvedAt           *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy           *string    `json:"resolved_by,omitempty"`
}

// Resolved reports whether the request reached a terminal status.
func (r *Request) Resolved() bool {
	return r.Status != StatusPending
}
