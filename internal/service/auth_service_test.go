package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revokedAll    []string
	passwordsSet  map[string]string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
		passwordsSet:  map[string]string{},
	}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordsSet[id] = passwordHash
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

type mockResolver struct {
	assignment models.RoleAssignment
}

func (m *mockResolver) Resolve(ctx context.Context, userID string) (models.RoleAssignment, error) {
	a := m.assignment
	a.UserID = userID
	return a, nil
}

type nopAuditor struct{}

func (nopAuditor) Record(ctx context.Context, actor Actor, action, tableName string, recordID string, oldValue, newValue interface{}) {
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "carehero-portal",
	}
}

func seedUser(repo *mockAuthRepo, active bool) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	user := &models.User{
		ID:           "u1",
		Email:        "staff@carehero.test",
		PasswordHash: string(hash),
		FullName:     "Staff One",
		Active:       active,
	}
	repo.users[user.ID] = user
	return user
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, true)
	role := models.RoleEnrollmentStaff
	svc := NewAuthService(repo, &mockResolver{assignment: models.NewRoleAssignment("", &role)}, nopAuditor{}, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@carehero.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.Permissions.CanModifyData())

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "staff@carehero.test", claims.Email)
}

func TestAuthServiceLoginWithoutRole(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, true)
	svc := NewAuthService(repo, &mockResolver{assignment: models.NewRoleAssignment("", nil)}, nopAuditor{}, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@carehero.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.False(t, resp.Permissions.HasPortalAccess())
	assert.Empty(t, resp.Permissions.Capabilities)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, true)
	svc := NewAuthService(repo, &mockResolver{}, nopAuditor{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@carehero.test", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, false)
	svc := NewAuthService(repo, &mockResolver{}, nopAuditor{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@carehero.test", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotation(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, true)
	svc := NewAuthService(repo, &mockResolver{}, nopAuditor{}, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@carehero.test", Password: "correct-horse"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token was rotated; a second exchange must fail.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePasswordRevokesTokens(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, true)
	svc := NewAuthService(repo, &mockResolver{}, nopAuditor{}, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "battery-staple",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedAll, "u1")
	assert.NotEmpty(t, repo.passwordsSet["u1"])
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), &mockResolver{}, nopAuditor{}, nil, nil, testAuthConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
