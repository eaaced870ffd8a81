package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/models"
)

type mockRoleReader struct {
	roles map[string]models.UserRole
}

func (m *mockRoleReader) GetRole(ctx context.Context, userID string) (*models.UserRole, error) {
	role, ok := m.roles[userID]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

func TestRoleServiceResolveAdmin(t *testing.T) {
	svc := NewRoleService(&mockRoleReader{roles: map[string]models.UserRole{"u1": models.RoleAdmin}}, nil)

	assignment, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, assignment.IsAdmin())
	assert.True(t, assignment.Has(models.CapManageUsers))
	assert.True(t, assignment.Has(models.CapDeleteRecords))
	assert.True(t, assignment.HasPortalAccess())
}

func TestRoleServiceResolveEnrollmentStaff(t *testing.T) {
	svc := NewRoleService(&mockRoleReader{roles: map[string]models.UserRole{"u2": models.RoleEnrollmentStaff}}, nil)

	assignment, err := svc.Resolve(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, assignment.IsAdmin())
	assert.True(t, assignment.CanModifyData())
	assert.True(t, assignment.Has(models.CapExportData))
	assert.False(t, assignment.Has(models.CapDeleteRecords))
	assert.False(t, assignment.Has(models.CapManageUsers))
}

func TestRoleServiceResolveReadOnly(t *testing.T) {
	svc := NewRoleService(&mockRoleReader{roles: map[string]models.UserRole{"u3": models.RoleReadOnly}}, nil)

	assignment, err := svc.Resolve(context.Background(), "u3")
	require.NoError(t, err)
	assert.True(t, assignment.HasPortalAccess())
	assert.False(t, assignment.CanModifyData())
	assert.False(t, assignment.Has(models.CapExportData))
}

func TestRoleServiceResolveNoRole(t *testing.T) {
	svc := NewRoleService(&mockRoleReader{}, nil)

	assignment, err := svc.Resolve(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, assignment.HasPortalAccess())
	assert.False(t, assignment.IsAdmin())
	assert.False(t, assignment.CanModifyData())
	assert.Empty(t, assignment.Capabilities)
}
