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

package membership

import "time"

// Tenant-scoped role names
const (
	RoleAdminTenant = "ADMIN_TENANT"
	RoleOperator    = "OPERATOR"
	RoleSeller      = "SELLER"
	RoleMechanic    = "MECHANIC"
)

// KnownRoles lists every role a membership may carry
var KnownRoles = []string{RoleAdminTenant, RoleOperator, RoleSeller, RoleMechanic}

// Membership links a principal to a tenant with a set of tenant-scoped roles.
// At most one membership exists per (principal, tenant) pair; its role set is
// mutable but never empty while the membership exists.
type Membership struct {
	PrincipalID string    `json:"principal_id"`
	TenantID    string    `json:"tenant_id"`
	Roles       []string  `json:"roles"`
	GrantedAt   time.Time `json:"granted_at"`
	GrantedBy   string    `json:"granted_by"`
}

// HasRole reports whether the membership carries the named role.
func (m *Membership) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}
