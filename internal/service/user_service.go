package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/models"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	Delete(ctx context.Context, id string) ([]string, error)
}

type userStatsRecomputer interface {
	RecomputeAll(ctx context.Context, companyIDs []string)
}

// UpdateRoleRequest is the admin payload for changing a user's role.
type UpdateRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=USER ADMIN"`
}

// UserList is a page of users with pagination metadata.
type UserList struct {
	Users      []models.User     `json:"users"`
	Pagination models.Pagination `json:"pagination"`
}

// UserService provides admin account management.
type UserService struct {
	repo      userRepository
	stats     userStatsRecomputer
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, stats userStatsRecomputer, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, stats: stats, audit: audit, validator: validate, logger: logger}
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users for the admin console.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) (*UserList, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return &UserList{
		Users:      users,
		Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: total},
	}, nil
}

// UpdateRole changes a user's role. Admins cannot demote themselves;
// locking the last admin out of the console is an easy mistake to make.
func (s *UserService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest, actor *models.JWTClaims, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "role must be USER or ADMIN")
	}

	if actor != nil && actor.UserID == id && req.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you cannot demote your own account")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == req.Role {
		return user, nil
	}

	if err := s.repo.UpdateRole(ctx, id, req.Role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}

	before := user.Role
	user.Role = req.Role

	s.writeAudit(ctx, actor, models.AuditActionUserRoleUpdate, id, map[string]interface{}{"role": before}, map[string]interface{}{"role": req.Role}, meta)

	return user, nil
}

// Delete removes a user and everything they own, then recomputes the
// stats of every company whose approved reviews disappeared with them.
func (s *UserService) Delete(ctx context.Context, id string, actor *models.JWTClaims, meta models.RequestMeta) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if actor != nil && actor.UserID == id {
		return appErrors.Clone(appErrors.ErrValidation, "you cannot delete your own account")
	}

	companyIDs, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.stats.RecomputeAll(ctx, companyIDs)

	s.writeAudit(ctx, actor, models.AuditActionUserDelete, id, map[string]interface{}{"email": user.Email, "role": user.Role}, nil, meta)

	return nil
}

func (s *UserService) writeAudit(ctx context.Context, actor *models.JWTClaims, action, userID string, oldValue, newValue interface{}, meta models.RequestMeta) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "user",
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if oldValue != nil {
		if raw, err := json.Marshal(oldValue); err == nil {
			entry.OldValues = raw
		}
	}
	if newValue != nil {
		if raw, err := json.Marshal(newValue); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record user audit log", zap.Error(err))
	}
}
