package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/internal/service"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
	"github.com/carehero-care/portal-api/pkg/response"
)

// ContextAssignmentKey is the gin context key storing the resolved role
// assignment for the request.
const ContextAssignmentKey = "currentAssignment"

// RequireCapability gates a route on a capability. The role is read from
// user_roles on every request, so a grant or revocation applies immediately.
// A user with no role at all gets ACCESS_PENDING rather than FORBIDDEN so
// clients can show a "waiting for access" state.
func RequireCapability(roleService *service.RoleService, capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		assignment, err := roleService.Resolve(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !assignment.HasPortalAccess() {
			response.Error(c, appErrors.ErrAccessPending)
			c.Abort()
			return
		}
		if !assignment.Has(capability) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Set(ContextAssignmentKey, assignment)
		c.Next()
	}
}
