package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wavefleet/wavefleet/internal/approval"
)

// ApprovalRepository implements approval.Repository
type ApprovalRepository struct {
	db *DB
}

// NewApprovalRepository creates a new approval request repository
func NewApprovalRepository(db *DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts a new approval request
func (r *ApprovalRepository) Create(ctx context.Context, request *approval.Request) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO approval_requests
			(id, principal_id, tenant_id, action, required_approver_role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		request.ID, request.PrincipalID, request.TenantID, request.Action,
		request.RequiredApproverRole, request.Status, request.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create approval request: %w", err)
	}

	return nil
}

// GetByID retrieves an approval request by ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*approval.Request, error) {
	var request approval.Request
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, principal_id, tenant_id, action, required_approver_role,
		       status, created_at, resolved_at, resolved_by
		FROM approval_requests
		WHERE id = $1
	`, id).Scan(
		&request.ID, &request.PrincipalID, &request.TenantID, &request.Action,
		&request.RequiredApproverRole, &request.Status, &request.CreatedAt,
		&request.ResolvedAt, &request.ResolvedBy,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approval.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}

	return &request, nil
}

// Resolve transitions a request out of PENDING. The WHERE clause is the
// compare-and-swap: when a concurrent approver already resolved the row, no
// row matches and the loser observes ErrAlreadyResolved.
func (r *ApprovalRepository) Resolve(ctx context.Context, id string, status approval.Status, resolvedBy string, resolvedAt time.Time) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE approval_requests
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1 AND status = $5
	`, id, status, resolvedBy, resolvedAt, approval.StatusPending)

	if err != nil {
		return fmt.Errorf("failed to resolve approval request: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Distinguish a missing row from a lost race.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return approval.ErrAlreadyResolved
	}

	return nil
}

// ListByTenant retrieves approval requests for a tenant, optionally filtered
// by status, newest first.
func (r *ApprovalRepository) ListByTenant(ctx context.Context, tenantID string, status *approval.Status, limit, offset int) ([]*approval.Request, error) {
	query := `
		SELECT id, principal_id, tenant_id, action, required_approver_role,
		       status, created_at, resolved_at, resolved_by
		FROM approval_requests
		WHERE tenant_id = $1`
	args := []any{tenantID}

	if status != nil {
		query += ` AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, *status, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval requests: %w", err)
	}
	defer rows.Close()

	var requests []*approval.Request
	for rows.Next() {
		var request approval.Request
		if err := rows.Scan(
			&request.ID, &request.PrincipalID, &request.TenantID, &request.Action,
			&request.RequiredApproverRole, &request.Status, &request.CreatedAt,
			&request.ResolvedAt, &request.ResolvedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}
		requests = append(requests, &request)
	}

	return requests, nil
}

// ExpireOlderThan auto-rejects PENDING requests created before the cutoff.
func (r *ApprovalRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE approval_requests
		SET status = $1, resolved_at = now()
		WHERE status = $2 AND created_at < $3
	`, approval.StatusRejected, approval.StatusPending, cutoff)

	if err != nil {
		return 0, fmt.Errorf("failed to expire approval requests: %w", err)
	}

	return result.RowsAffected(), nil
}
