package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type roleReader interface {
	GetRole(ctx context.Context, userID string) (*models.UserRole, error)
}

// RoleService resolves the permission view of a user. Resolution reads
// user_roles on every call so a role change or revocation takes effect on the
// affected user's next request, without waiting for token expiry.
type RoleService struct {
	roles  roleReader
	logger *zap.Logger
}

// NewRoleService constructs RoleService.
func NewRoleService(roles roleReader, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{roles: roles, logger: logger}
}

// Resolve expands the user's current role row into a capability set. A user
// with no role row resolves to an assignment with no capabilities at all.
func (s *RoleService) Resolve(ctx context.Context, userID string) (models.RoleAssignment, error) {
	role, err := s.roles.GetRole(ctx, userID)
	if err != nil {
		return models.RoleAssignment{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve role")
	}
	return models.NewRoleAssignment(userID, role), nil
}
