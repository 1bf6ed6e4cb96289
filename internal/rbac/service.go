package rbac

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
	"github.com/lumen-cms/lumen-cms/internal/shared"
)

// ServiceRepository is the persistence surface role assignment needs.
type ServiceRepository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	GetRoleByID(ctx context.Context, id int64) (Role, error)
	UserBelongsToCompany(ctx context.Context, userID, companyID int64) (bool, error)
	UserHasRole(ctx context.Context, userID, roleID int64) (bool, error)
	CreateUserRole(ctx context.Context, userID, roleID int64) error
	DeleteUserRole(ctx context.Context, userID, roleID int64) error
}

// Service orchestrates tenant-scoped role assignment. It is the principal
// multi-tenant isolation boundary: a target user outside the acting admin's
// company is reported as missing, never as forbidden.
type Service struct {
	repo  ServiceRepository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo ServiceRepository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListRoles returns all catalog roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// ListPermissions returns all catalog permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// AssignRole attaches a role to a user inside the acting admin's company.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64, actor *shared.Claims) error {
	if err := s.checkTarget(ctx, userID, roleID, actor); err != nil {
		return err
	}
	held, err := s.repo.UserHasRole(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if held {
		return fmt.Errorf("rbac: user %d already has role %d: %w", userID, roleID, httpx.ErrDuplicate)
	}
	if err := s.repo.CreateUserRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.record(ctx, actor, "role.assign", userID, roleID)
	return nil
}

// RemoveRole detaches a role from a user inside the acting admin's company.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64, actor *shared.Claims) error {
	if err := s.checkTarget(ctx, userID, roleID, actor); err != nil {
		return err
	}
	if err := s.repo.DeleteUserRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.record(ctx, actor, "role.remove", userID, roleID)
	return nil
}

func (s *Service) checkTarget(ctx context.Context, userID, roleID int64, actor *shared.Claims) error {
	if actor == nil {
		return httpx.ErrUnauthorized
	}
	inCompany, err := s.repo.UserBelongsToCompany(ctx, userID, actor.CompanyID)
	if err != nil {
		return err
	}
	if !inCompany {
		return fmt.Errorf("rbac: user %d: %w", userID, httpx.ErrNotFound)
	}
	if _, err := s.repo.GetRoleByID(ctx, roleID); err != nil {
		return err
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor *shared.Claims, action string, userID, roleID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:   actor.UserID(),
		CompanyID: actor.CompanyID,
		Action:    action,
		Entity:    "user_role",
		EntityID:  strconv.FormatInt(userID, 10),
		Meta:      map[string]any{"role_id": roleID},
	})
}
