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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wavefleet/wavefleet/internal/approval"
	"github.com/wavefleet/wavefleet/internal/audit"
	"github.com/wavefleet/wavefleet/internal/identity"
	"github.com/wavefleet/wavefleet/internal/observability/logger"
	"github.com/wavefleet/wavefleet/internal/policy"
)

// ErrMissingApproverRole means the policy required approval without naming an
// approver role. This is a deployment bug, surfaced loudly instead of being
// silently defaulted to permit or deny.
var ErrMissingApproverRole = errors.New("policy requires approval but names no approver role")

// TenantRoleResolver is the slice of the tenant access resolver the gate
// needs: one bounded membership read per check.
type TenantRoleResolver interface {
	RolesIn(ctx context.Context, principalID, tenantID string) ([]string, error)
}

// ApprovalCreator records pending-approval verdicts. Satisfied by the
// approval service.
type ApprovalCreator interface {
	Create(ctx context.Context, principalID, tenantID, action, approverRole string) (*approval.Request, error)
}

// Gate combines tenant-access resolution with policy evaluation into a final
// verdict. It is stateless and safe for unbounded parallel invocation: each
// call is one tenant-access read, one outbound policy call, and at most one
// approval-request write.
type Gate struct {
	roles       TenantRoleResolver
	policies    policy.Client
	approvals   ApprovalCreator
	auditLogger audit.Logger
	metrics     *Metrics
}

// NewGate creates an authorization gate.
func NewGate(roles TenantRoleResolver, policies policy.Client, approvals ApprovalCreator, auditLogger audit.Logger, metrics *Metrics) *Gate {
	return &Gate{
		roles:       roles,
		policies:    policies,
		approvals:   approvals,
		auditLogger: auditLogger,
		metrics:     metrics,
	}
}

// Authorize renders the verdict for one protected operation. The ordering is
// load-bearing: the tenant-scope check is cheaper and more security-critical
// than policy evaluation, so it gates first and a misconfigured policy can
// never bypass tenant isolation. More restrictive signals always win; the
// combination stays monotonic.
func (g *Gate) Authorize(ctx context.Context, p identity.Principal, targetTenant, action string, resource map[string]any) (Verdict, error) {
	start := time.Now()

	// Step 1: tenant scope. Unrestricted principals skip the membership
	// read entirely; limited principals need a membership row for the
	// target tenant before the policy engine is ever consulted.
	principalRoles := p.GlobalRoles
	if !p.Unrestricted {
		tenantRoles, err := g.roles.RolesIn(ctx, p.ID, targetTenant)
		if err != nil {
			return Verdict{}, err
		}
		if len(tenantRoles) == 0 {
			return g.finish(ctx, p, targetTenant, action, deny(ReasonTenantNotAccessible), start), nil
		}
		principalRoles = append(append([]string{}, p.GlobalRoles...), tenantRoles...)
	}

	// Step 2: policy evaluation.
	decision, err := g.policies.Evaluate(ctx, policy.Query{
		PrincipalRoles: principalRoles,
		TenantClaim:    p.TenantClaim,
		TargetTenant:   targetTenant,
		Action:         action,
		Resource:       resource,
	})
	if err != nil {
		if ctx.Err() != nil {
			// Caller went away mid-flight; discard rather than render a
			// partial verdict.
			return Verdict{}, ctx.Err()
		}
		if errors.Is(err, policy.ErrPolicyUnavailable) {
			// Fail closed.
			return g.finish(ctx, p, targetTenant, action, deny(ReasonPolicyUnavailable), start), nil
		}
		return Verdict{}, err
	}

	// Steps 4-5: explicit tenant invalidation and deny dominate allow.
	if !decision.TenantValid() {
		return g.finish(ctx, p, targetTenant, action, deny(ReasonTenantInvalid), start), nil
	}
	if !decision.Allow {
		return g.finish(ctx, p, targetTenant, action, deny(ReasonPolicyDenied), start), nil
	}

	// Step 6: plain allow.
	if !decision.RequiresApproval {
		return g.finish(ctx, p, targetTenant, action, permit(), start), nil
	}

	// Step 7: allow conditioned on approval.
	if decision.RequiredApproverRole == "" {
		slog.ErrorContext(ctx, "policy decision requires approval without approver role",
			logger.Component("authorize"),
			logger.TenantID(targetTenant),
			logger.Action(action),
		)
		return Verdict{}, ErrMissingApproverRole
	}
	request, err := g.approvals.Create(ctx, p.ID, targetTenant, action, decision.RequiredApproverRole)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to record approval request: %w", err)
	}
	return g.finish(ctx, p, targetTenant, action, pendingApproval(request.ID), start), nil
}

// finish logs, audits and measures a rendered verdict before returning it.
func (g *Gate) finish(ctx context.Context, p identity.Principal, tenantID, action string, v Verdict, start time.Time) Verdict {
	g.metrics.record(ctx, v, time.Since(start))

	attrs := []any{
		logger.Component("authorize"),
		logger.PrincipalID(p.ID),
		logger.TenantID(tenantID),
		logger.Action(action),
		logger.Verdict(string(v.Outcome)),
	}
	auditType := audit.TypeAccessPermitted
	switch v.Outcome {
	case OutcomeDeny:
		attrs = append(attrs, logger.Reason(string(v.Reason)))
		auditType = audit.TypeAccessDenied
	case OutcomePendingApproval:
		attrs = append(attrs, logger.ApprovalID(v.ApprovalID))
		auditType = audit.TypeApprovalRequired
	}
	slog.InfoContext(ctx, "authorization verdict", attrs...)

	// Approval creation already audits itself with the approver role.
	if v.Outcome != OutcomePendingApproval {
		g.auditLogger.Log(ctx, audit.Event{
			Type:     auditType,
			TenantID: tenantID,
			ActorID:  p.ID,
			Resource: action,
			Metadata: map[string]any{"reason": string(v.Reason)},
		})
	}
	return v
}
