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

package authorize

// Outcome is the final authorization result for one protected operation.
type Outcome string

const (
	OutcomePermit          Outcome = "PERMIT"
	OutcomeDeny            Outcome = "DENY"
	OutcomePendingApproval Outcome = "PENDING_APPROVAL"
)

// DenyReason is the internal reason code for a deny verdict. Reason codes
// are logged and audited but only a generic category is ever shown to end
// users, so policy internals never leak.
type DenyReason string

const (
	ReasonTenantNotAccessible DenyReason = "tenant_not_accessible"
	ReasonPolicyUnavailable   DenyReason = "policy_unavailable"
	ReasonTenantInvalid       DenyReason = "tenant_invalid"
	ReasonPolicyDenied        DenyReason = "policy_denied"
)

// Verdict is returned by value so callers must handle every case explicitly;
// authorization failure is data, not a thrown error.
type Verdict struct {
	Outcome    Outcome
	Reason     DenyReason // set only for Deny
	ApprovalID string     // set only for PendingApproval
}

// Permitted reports whether the operation may proceed now.
func (v Verdict) Permitted() bool {
	return v.Outcome == OutcomePermit
}

// Pending reports whether the operation awaits an approver. Callers must not
// apply side effects until they later observe an APPROVED resolution.
func (v Verdict) Pending() bool {
	return v.Outcome == OutcomePendingApproval
}

func permit() Verdict {
	return Verdict{Outcome: OutcomePermit}
}

func deny(reason DenyReason) Verdict {
	return Verdict{Outcome: OutcomeDeny, Reason: reason}
}

func pendingApproval(id string) Verdict {
	return Verdict{Outcome: OutcomePendingApproval, ApprovalID: id}
}
