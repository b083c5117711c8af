package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wavefleet/wavefleet/internal/membership"
)

// MembershipRepository implements membership.Repository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Create inserts a new membership row
func (r *MembershipRepository) Create(ctx context.Context, m *membership.Membership) error {
	var grantedBy sql.NullString
	if m.GrantedBy != "" {
		grantedBy = sql.NullString{String: m.GrantedBy, Valid: true}
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO memberships (principal_id, tenant_id, roles, granted_at, granted_by)
		VALUES ($1, $2, $3, $4, $5)
	`, m.PrincipalID, m.TenantID, m.Roles, m.GrantedAt, grantedBy)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return membership.ErrMembershipExists
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}

	return nil
}

// SetRoles replaces the role set of an existing membership
func (r *MembershipRepository) SetRoles(ctx context.Context, principalID, tenantID string, roles []string) error {
	if len(roles) == 0 {
		return membership.ErrEmptyRoleSet
	}

	result, err := r.db.pool.Exec(ctx, `
		UPDATE memberships SET roles = $3
		WHERE principal_id = $1 AND tenant_id = $2
	`, principalID, tenantID, roles)

	if err != nil {
		return fmt.Errorf("failed to update membership roles: %w", err)
	}
	if result.RowsAffected() == 0 {
		return membership.ErrMembershipNotFound
	}

	return nil
}

// Delete removes a membership row
func (r *MembershipRepository) Delete(ctx context.Context, principalID, tenantID string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM memberships WHERE principal_id = $1 AND tenant_id = $2
	`, principalID, tenantID)

	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return membership.ErrMembershipNotFound
	}

	return nil
}

// Get retrieves the membership for a (principal, tenant) pair
func (r *MembershipRepository) Get(ctx context.Context, principalID, tenantID string) (*membership.Membership, error) {
	var m membership.Membership
	var grantedBy sql.NullString
	err := r.db.pool.QueryRow(ctx, `
		SELECT principal_id, tenant_id, roles, granted_at, granted_by
		FROM memberships
		WHERE principal_id = $1 AND tenant_id = $2
	`, principalID, tenantID).Scan(&m.PrincipalID, &m.TenantID, &m.Roles, &m.GrantedAt, &grantedBy)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, membership.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if grantedBy.Valid {
		m.GrantedBy = grantedBy.String
	}

	return &m, nil
}

// ListForPrincipal retrieves one bounded page of a principal's memberships
func (r *MembershipRepository) ListForPrincipal(ctx context.Context, principalID string, limit, offset int) ([]*membership.Membership, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT principal_id, tenant_id, roles, granted_at, granted_by
		FROM memberships
		WHERE principal_id = $1
		ORDER BY tenant_id
		LIMIT $2 OFFSET $3
	`, principalID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	return scanMemberships(rows)
}

// CountForPrincipal counts a principal's memberships without materializing
// them; the count stays cheap even for very large membership sets.
func (r *MembershipRepository) CountForPrincipal(ctx context.Context, principalID string) (int64, error) {
	var count int64
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM memberships WHERE principal_id = $1
	`, principalID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

// ListForTenant retrieves all members of a tenant
func (r *MembershipRepository) ListForTenant(ctx context.Context, tenantID string) ([]*membership.Membership, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT principal_id, tenant_id, roles, granted_at, granted_by
		FROM memberships
		WHERE tenant_id = $1
		ORDER BY principal_id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant members: %w", err)
	}
	defer rows.Close()

	return scanMemberships(rows)
}

func scanMemberships(rows pgx.Rows) ([]*membership.Membership, error) {
	var memberships []*membership.Membership
	for rows.Next() {
		var m membership.Membership
		var grantedBy sql.NullString
		if err := rows.Scan(&m.PrincipalID, &m.TenantID, &m.Roles, &m.GrantedAt, &grantedBy); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		if grantedBy.Valid {
			m.GrantedBy = grantedBy.String
		}
		memberships = append(memberships, &m)
	}
	return memberships, nil
}
