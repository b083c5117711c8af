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

package tenantaccess

import "github.com/wavefleet/wavefleet/internal/membership"

// AccessType discriminates the two mutually exclusive summary shapes.
type AccessType string

const (
	AccessUnrestricted AccessType = "UNRESTRICTED"
	AccessLimited      AccessType = "LIMITED"
)

// UnrestrictedCount is the sentinel returned instead of counting a
// conceptually infinite tenant set.
const UnrestrictedCount int64 = -1

// Page size bounds for membership listing. The cap is enforced server-side
// regardless of the caller-requested limit: some principals hold very large
// membership sets and unbounded listing is a resource-exhaustion risk.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Summary is the derived tenant-access resolution for a principal. Exactly
// one shape is ever populated: Unrestricted carries a reason and no
// memberships; Limited carries a count plus one bounded page. Total is
// computed by a count query independent of the page materialization.
type Summary struct {
	Type        AccessType
	Reason      string // set only for Unrestricted
	Total       int64  // UnrestrictedCount for Unrestricted
	Memberships []*membership.Membership
}

// IsUnrestricted reports whether the summary is the unrestricted shape.
func (s Summary) IsUnrestricted() bool {
	return s.Type == AccessUnrestricted
}
