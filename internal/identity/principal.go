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

package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrInvalidToken      = errors.New("invalid identity token")
	ErrRoleNotFound      = errors.New("global role not found")
	ErrRoleAlreadyExists = errors.New("global role already granted")
)

// Platform-level role names. A role row carries its own unrestricted-access
// flag, so these names are conventions, not hardcoded privilege checks.
const (
	RolePlatformAdmin   = "PLATFORM_ADMIN"
	RolePlatformSupport = "PLATFORM_SUPPORT"
	RolePlatformAuditor = "PLATFORM_AUDITOR"
)

// Principal is an authenticated actor. It is assembled once per request from
// the gateway-validated token claims plus the global-roles table, and is
// immutable afterwards.
type Principal struct {
	ID           string
	Email        string
	TenantClaim  string // tenant asserted by the identity token, may be empty
	GlobalRoles  []string
	Unrestricted bool // true when any global role grants blanket tenant access
}

// HasGlobalRole reports whether the principal holds the named global role.
func (p Principal) HasGlobalRole(role string) bool {
	for _, r := range p.GlobalRoles {
		if r == role {
			return true
		}
	}
	return false
}

// GlobalRole is a platform-wide grant for a principal.
type GlobalRole struct {
	PrincipalID        string    `json:"principal_id"`
	Role               string    `json:"role"`
	UnrestrictedAccess bool      `json:"unrestricted_access"`
	GrantedAt          time.Time `json:"granted_at"`
	GrantedBy          string    `json:"granted_by"`
}

// GlobalRoleRepository defines the interface for global role storage
type GlobalRoleRepository interface {
	Grant(ctx context.Context, role *GlobalRole) error
	Revoke(ctx context.Context, principalID, roleName string) error
	ListForPrincipal(ctx context.Context, principalID string) ([]*GlobalRole, error)
}
