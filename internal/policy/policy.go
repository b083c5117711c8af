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

package policy

import (
	"context"
	"errors"
)

// ErrPolicyUnavailable marks any transport or parse failure talking to the
// policy engine. The authorization gate treats it as deny, never as allow.
var ErrPolicyUnavailable = errors.New("policy engine unavailable")

// Query is the input sent to the policy engine for one authorization check.
// Built fresh per check, never persisted.
type Query struct {
	PrincipalRoles []string       `json:"principal_roles"`
	TenantClaim    string         `json:"tenant_claim"`
	TargetTenant   string         `json:"target_tenant"`
	Action         string         `json:"action"`
	Resource       map[string]any `json:"resource"`
}

// Decision is the structured result of a policy evaluation.
type Decision struct {
	Allow                bool   `json:"allow"`
	RequiresApproval     bool   `json:"requer_aprovacao"`
	RequiredApproverRole string `json:"aprovador_requerido"`

	// TenantIsValid is opt-in per policy: nil means the rule did not assert
	// tenant validity and the tenant is treated as valid.
	TenantIsValid *bool `json:"tenant_is_valid"`
}

// TenantValid resolves the opt-in tenant validity flag; absence means valid.
func (d Decision) TenantValid() bool {
	return d.TenantIsValid == nil || *d.TenantIsValid
}

// Normalize enforces decision invariants: a denied action can never require
// approval, whatever the wire payload said.
func (d *Decision) Normalize() {
	if !d.Allow {
		d.RequiresApproval = false
		d.RequiredApproverRole = ""
	}
}

// Client evaluates authorization queries against the decision engine.
type Client interface {
	Evaluate(ctx context.Context, query Query) (Decision, error)
}
