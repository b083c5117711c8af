package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wavefleet/wavefleet/internal/identity"
)

// GlobalRoleRepository implements identity.GlobalRoleRepository
type GlobalRoleRepository struct {
	db *DB
}

// NewGlobalRoleRepository creates a new global role repository
func NewGlobalRoleRepository(db *DB) *GlobalRoleRepository {
	return &GlobalRoleRepository{db: db}
}

// Grant assigns a platform-wide role to a principal
func (r *GlobalRoleRepository) Grant(ctx context.Context, role *identity.GlobalRole) error {
	var grantedBy sql.NullString
	if role.GrantedBy != "" {
		grantedBy = sql.NullString{String: role.GrantedBy, Valid: true}
	}

	result, err := r.db.pool.Exec(ctx, `
		INSERT INTO global_roles (principal_id, role, unrestricted_access, granted_at, granted_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (principal_id, role) DO NOTHING
	`, role.PrincipalID, role.Role, role.UnrestrictedAccess, role.GrantedAt, grantedBy)

	if err != nil {
		return fmt.Errorf("failed to grant global role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrRoleAlreadyExists
	}

	return nil
}

// Revoke removes a platform-wide role from a principal
func (r *GlobalRoleRepository) Revoke(ctx context.Context, principalID, roleName string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM global_roles WHERE principal_id = $1 AND role = $2
	`, principalID, roleName)

	if err != nil {
		return fmt.Errorf("failed to revoke global role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrRoleNotFound
	}

	return nil
}

// ListForPrincipal retrieves all global roles held by a principal
func (r *GlobalRoleRepository) ListForPrincipal(ctx context.Context, principalID string) ([]*identity.GlobalRole, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT principal_id, role, unrestricted_access, granted_at, granted_by
		FROM global_roles
		WHERE principal_id = $1
	`, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list global roles: %w", err)
	}
	defer rows.Close()

	var roles []*identity.GlobalRole
	for rows.Next() {
		var role identity.GlobalRole
		var grantedBy sql.NullString
		if err := rows.Scan(&role.PrincipalID, &role.Role, &role.UnrestrictedAccess, &role.GrantedAt, &grantedBy); err != nil {
			return nil, fmt.Errorf("failed to scan global role: %w", err)
		}
		if grantedBy.Valid {
			role.GrantedBy = grantedBy.String
		}
		roles = append(roles, &role)
	}

	return roles, nil
}
