package approval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wavefleet/wavefleet/internal/audit"
	"github.com/wavefleet/wavefleet/internal/identity"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, request *Request) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *mockRepo) Resolve(ctx context.Context, id string, status Status, resolvedBy string, resolvedAt time.Time) error {
	args := m.Called(ctx, id, status, resolvedBy, resolvedAt)
	return args.Error(0)
}

func (m *mockRepo) ListByTenant(ctx context.Context, tenantID string, status *Status, limit, offset int) ([]*Request, error) {
	args := m.Called(ctx, tenantID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Request), args.Error(1)
}

func (m *mockRepo) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockRoles struct {
	mock.Mock
}

func (m *mockRoles) RolesIn(ctx context.Context, principalID, tenantID string) ([]string, error) {
	args := m.Called(ctx, principalID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func newRecordingAudit() *mockAudit {
	a := new(mockAudit)
	a.On("Log", mock.Anything, mock.Anything).Return()
	return a
}

func pendingRequest() *Request {
	return &Request{
		ID:                   "apr-1",
		PrincipalID:          "seller-1",
		TenantID:             "t-1",
		Action:               "commission:override",
		RequiredApproverRole: "ADMIN_TENANT",
		Status:               StatusPending,
		CreatedAt:            time.Now().Add(-time.Hour),
	}
}

// TestPurpose: Validates that new approval requests start PENDING with a UUIDv7 identifier.
// Scope: Unit Test
// Expected: Create persists a PENDING request carrying the requester, action and required approver role.
// Test Case ID: APR-01
func TestApproval_Service_Create(t *testing.T) {
	repo := new(mockRepo)
	roles := new(mockRoles)
	service := NewService(repo, roles, newRecordingAudit())

	ctx := context.Background()
	repo.On("Create", ctx, mock.MatchedBy(func(r *Request) bool {
		uid, err := uuid.Parse(r.ID)
		if err != nil {
			return false
		}
		return uid.Version() == 7 && r.Status == StatusPending &&
			r.PrincipalID == "seller-1" && r.RequiredApproverRole == "ADMIN_TENANT"
	})).Return(nil)

	request, err := service.Create(ctx, "seller-1", "t-1", "commission:override", "ADMIN_TENANT")

	require.NoError(t, err)
	assert.Equal(t, StatusPending, request.Status)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates that an approver holding the required role can resolve a pending request.
// Scope: Unit Test
// Expected: Resolve records the outcome, the resolver and the resolution time.
// Test Case ID: APR-02
func TestApproval_Service_Resolve(t *testing.T) {
	repo := new(mockRepo)
	roles := new(mockRoles)
	service := NewService(repo, roles, newRecordingAudit())

	ctx := context.Background()
	repo.On("GetByID", ctx, "apr-1").Return(pendingRequest(), nil)
	roles.On("RolesIn", ctx, "admin-1", "t-1").Return([]string{"ADMIN_TENANT"}, nil)
	repo.On("Resolve", ctx, "apr-1", StatusApproved, "admin-1", mock.Anything).Return(nil)

	resolved, err := service.Resolve(ctx, "apr-1", identity.Principal{ID: "admin-1"}, StatusApproved)

	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "admin-1", *resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates that terminal requests cannot be resolved again.
// Scope: Unit Test
// Security: Approval states must be immutable once terminal (CWE-362)
// Expected: Resolving an APPROVED request fails with ErrAlreadyResolved and never reaches the store.
// Test Case ID: APR-03
func TestApproval_Service_Resolve_AlreadyResolved(t *testing.T) {
	repo := new(mockRepo)
	roles := new(mockRoles)
	service := NewService(repo, roles, newRecordingAudit())

	ctx := context.Background()
	done := pendingRequest()
	done.Status = StatusApproved
	repo.On("GetByID", ctx, "apr-1").Return(done, nil)

	_, err := service.Resolve(ctx, "apr-1", identity.Principal{ID: "admin-1"}, StatusRejected)

	assert.ErrorIs(t, err, ErrAlreadyResolved)
	repo.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates that a lost resolution race surfaces as ErrAlreadyResolved.
// Scope: Unit Test
// Expected: When the conditional update reports the row left PENDING between read and write, the caller sees ErrAlreadyResolved.
// Test Case ID: APR-04
func TestApproval_Service_Resolve_LostRace(t *testing.T) {
	repo := new(mockRepo)
	roles := new(mockRoles)
	service := NewService(repo, roles, newRecordingAudit())

	ctx := context.Background()
	repo.On("GetByID", ctx, "apr-1").Return(pendingRequest(), nil)
	roles.On("RolesIn", ctx, "admin-1", "t-1").Return([]string{"ADMIN_TENANT"}, nil)
	repo.On("Resolve", ctx, "apr-1", StatusApproved, "admin-1", mock.Anything).Return(ErrAlreadyResolved)

	_, err := service.Resolve(ctx, "apr-1", identity.Principal{ID: "admin-1"}, StatusApproved)

	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

// TestPurpose: Validates that only holders of the required approver role may resolve.
// Scope: Unit Test
// Security: Requesters must not approve their own actions via a lesser role
// Expected: A principal without the approver role in the request's tenant gets ErrForbiddenApprover.
// Test Case ID: APR-05
func TestApproval_Service_Resolve_ForbiddenApprover(t *testing.T) {
	repo := new(mockRepo)
	roles := new(mockRoles)
	service := NewService(repo, roles, newRecordingAudit())

	ctx := context.Background()
	repo.On("GetByID", ctx, "apr-1").Return(pendingRequest(), nil)
	roles.On("RolesIn", ctx, "seller-1", "t-1").Return([]string{"SELLER"}, nil)

	_, err := service.Resolve(ctx, "apr-1", identity.Principal{ID: "seller-1"}, StatusApproved)

	assert.ErrorIs(t, err, ErrForbiddenApprover)
	repo.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates rejection of outcomes outside the terminal vocabulary.
// Scope: Unit Test
// Expected: Resolving with PENDING or an arbitrary string fails with ErrInvalidOutcome before any lookup.
// Test Case ID: APR-06
func TestApproval_Service_Resolve_InvalidOutcome(t *testing.T) {
	repo := new(mockRepo)
	roles := new(mockRoles)
	service := NewService(repo, roles, newRecordingAudit())

	_, err := service.Resolve(context.Background(), "apr-1", identity.Principal{ID: "admin-1"}, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	_, err = service.Resolve(context.Background(), "apr-1", identity.Principal{ID: "admin-1"}, Status("MAYBE"))
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that the expiry sweep rejects requests older than the TTL.
// Scope: Unit Test
// Expected: SweepOnce calls the store with a cutoff of now minus TTL and reports no error.
// Test Case ID: APR-07
func TestApproval_Sweeper_SweepOnce(t *testing.T) {
	repo := new(mockRepo)
	sweeper := NewSweeper(repo, newRecordingAudit(), 48*time.Hour)

	ctx := context.Background()
	repo.On("ExpireOlderThan", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().Add(-48 * time.Hour)
		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return(int64(3), nil)

	err := sweeper.SweepOnce(ctx)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
