package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/internal/service"
)

type stubRoleReader struct {
	roles map[string]models.UserRole
}

func (s stubRoleReader) GetRole(ctx context.Context, userID string) (*models.UserRole, error) {
	role, ok := s.roles[userID]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

func runCapability(t *testing.T, roles map[string]models.UserRole, userID string, capability models.Capability) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/leads", nil)
	if userID != "" {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: userID})
	}

	roleService := service.NewRoleService(stubRoleReader{roles: roles}, nil)
	RequireCapability(roleService, capability)(c)
	return recorder
}

func TestRequireCapabilityAllowsGrantedRole(t *testing.T) {
	recorder := runCapability(t, map[string]models.UserRole{"u1": models.RoleEnrollmentStaff}, "u1", models.CapModifyData)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRequireCapabilityForbidsMissingCapability(t *testing.T) {
	recorder := runCapability(t, map[string]models.UserRole{"u1": models.RoleReadOnly}, "u1", models.CapModifyData)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

func TestRequireCapabilityPendingWithoutRole(t *testing.T) {
	recorder := runCapability(t, nil, "u1", models.CapViewPortal)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "ACCESS_PENDING", body.Error.Code)
}

func TestRequireCapabilityUnauthorizedWithoutClaims(t *testing.T) {
	recorder := runCapability(t, nil, "", models.CapViewPortal)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
