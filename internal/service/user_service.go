package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type userRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetRole(ctx context.Context, userID string) (*models.UserRole, error)
	AssignRole(ctx context.Context, userID string, role models.UserRole) error
	RevokeRole(ctx context.Context, userID string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// CreateUserRequest creates a staff account. A role is optional; without one
// the account can log in but reaches no portal route.
type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName string  `json:"full_name" validate:"required"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin enrollment_staff read_only"`
}

// UpdateUserRequest edits profile fields and active status.
type UpdateUserRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Active   *bool  `json:"active" validate:"required"`
}

// AssignRoleRequest grants a portal role to a user.
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin enrollment_staff read_only"`
}

// UserService covers admin user management and role grants.
type UserService struct {
	users     userRepo
	audits    auditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users userRepo, audits auditor, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, audits: audits, validator: validate, logger: logger}
}

// List returns users with their assigned roles.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, int, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Get fetches one user with the assigned role.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserDetail, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	role, err := s.users.GetRole(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	return &models.UserDetail{User: *user, Role: role}, nil
}

// Create registers a staff account, hashing the password, and grants the
// requested role when present.
func (s *UserService) Create(ctx context.Context, actor Actor, req CreateUserRequest) (*models.UserDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("email %s is already registered", req.Email))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	detail := &models.UserDetail{User: *user}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		if err := s.users.AssignRole(ctx, user.ID, role); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
		}
		detail.Role = &role
	}

	s.audits.Record(ctx, actor, models.AuditActionCreate, "users", user.ID, nil, detail)
	return detail, nil
}

// Update edits profile fields. Deactivating an account also revokes its
// refresh tokens so open sessions die at access-token expiry.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*models.UserDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	before := *user
	wasActive := user.Active
	user.FullName = req.FullName
	user.Active = *req.Active
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	if wasActive && !user.Active {
		if err := s.users.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke refresh tokens on deactivation", zap.String("user_id", id), zap.Error(err))
		}
	}

	role, err := s.users.GetRole(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	s.audits.Record(ctx, actor, models.AuditActionUpdate, "users", id, before, user)
	return &models.UserDetail{User: *user, Role: role}, nil
}

// AssignRole grants or changes a user's portal role.
func (s *UserService) AssignRole(ctx context.Context, actor Actor, id string, req AssignRoleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	previous, err := s.users.GetRole(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	role := models.UserRole(req.Role)
	if err := s.users.AssignRole(ctx, id, role); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}

	s.audits.Record(ctx, actor, models.AuditActionUpdate, "user_roles", id,
		map[string]*models.UserRole{"role": previous},
		map[string]models.UserRole{"role": role})
	return nil
}

// RevokeRole removes a user's portal role. Takes effect on the user's next
// request since roles are resolved per request.
func (s *UserService) RevokeRole(ctx context.Context, actor Actor, id string) error {
	previous, err := s.users.GetRole(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	if previous == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "user has no role to revoke")
	}
	if err := s.users.RevokeRole(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke role")
	}
	s.audits.Record(ctx, actor, models.AuditActionDelete, "user_roles", id,
		map[string]*models.UserRole{"role": previous}, nil)
	return nil
}
