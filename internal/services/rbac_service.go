package services

import (
	"context"
	"fmt"
	"log"

	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

// Permission names checked by the route middleware.
const (
	PermManageWorkspace = "workspace:manage"
	PermManageAgents    = "agents:manage"
	PermManageLeads     = "leads:manage"
	PermRunCampaigns    = "campaigns:run"
	PermViewBilling     = "billing:view"
	PermManageBilling   = "billing:manage"
	PermViewAuditLogs   = "audit:view"
)

// RBACService answers "may this user do this here" and seeds the default
// roles for new workspaces.
type RBACService interface {
	HasPermission(ctx context.Context, workspaceID, userID uuid.UUID, permission string) (bool, error)
	AssignRole(ctx context.Context, workspaceID, userID uuid.UUID, roleName string) error
	RevokeRole(ctx context.Context, workspaceID, userID uuid.UUID, roleName string) error
	ListUserRoles(ctx context.Context, workspaceID, userID uuid.UUID) ([]*models.Role, error)
	SeedWorkspaceRoles(ctx context.Context, workspaceID uuid.UUID) error
}

type rbacService struct {
	roleRepo           repositories.RoleRepository
	permissionRepo     repositories.PermissionRepository
	userRoleRepo       repositories.UserRoleRepository
	rolePermissionRepo repositories.RolePermissionRepository
}

func NewRBACService(
	roleRepo repositories.RoleRepository,
	permissionRepo repositories.PermissionRepository,
	userRoleRepo repositories.UserRoleRepository,
	rolePermissionRepo repositories.RolePermissionRepository,
) RBACService {
	return &rbacService{
		roleRepo:           roleRepo,
		permissionRepo:     permissionRepo,
		userRoleRepo:       userRoleRepo,
		rolePermissionRepo: rolePermissionRepo,
	}
}

var defaultRoles = map[string][]string{
	"admin": {
		PermManageWorkspace, PermManageAgents, PermManageLeads,
		PermRunCampaigns, PermViewBilling, PermManageBilling, PermViewAuditLogs,
	},
	"operator": {
		PermManageAgents, PermManageLeads, PermRunCampaigns, PermViewBilling,
	},
	"viewer": {
		PermViewBilling,
	},
}

func (s *rbacService) HasPermission(ctx context.Context, workspaceID, userID uuid.UUID, permission string) (bool, error) {
	return s.rolePermissionRepo.HasPermission(ctx, workspaceID, userID, permission)
}

func (s *rbacService) AssignRole(ctx context.Context, workspaceID, userID uuid.UUID, roleName string) error {
	role, err := s.roleRepo.GetByName(ctx, workspaceID, roleName)
	if err != nil {
		return fmt.Errorf("role %q not found: %w", roleName, err)
	}
	return s.userRoleRepo.Create(ctx, workspaceID, &models.UserRole{UserID: userID, RoleID: role.ID})
}

func (s *rbacService) RevokeRole(ctx context.Context, workspaceID, userID uuid.UUID, roleName string) error {
	role, err := s.roleRepo.GetByName(ctx, workspaceID, roleName)
	if err != nil {
		return fmt.Errorf("role %q not found: %w", roleName, err)
	}
	return s.userRoleRepo.Delete(ctx, workspaceID, userID, role.ID)
}

func (s *rbacService) ListUserRoles(ctx context.Context, workspaceID, userID uuid.UUID) ([]*models.Role, error) {
	userRoles, err := s.userRoleRepo.ListByUser(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	roles := make([]*models.Role, 0, len(userRoles))
	for _, ur := range userRoles {
		role, err := s.roleRepo.GetByID(ctx, workspaceID, ur.RoleID)
		if err != nil {
			log.Printf("Dangling user role %s: %v", ur.RoleID, err)
			continue
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// SeedWorkspaceRoles creates the admin, operator and viewer roles with their
// permission sets. Safe to call repeatedly; everything upserts.
func (s *rbacService) SeedWorkspaceRoles(ctx context.Context, workspaceID uuid.UUID) error {
	for roleName, permissions := range defaultRoles {
		role := &models.Role{ID: uuid.New(), WorkspaceID: workspaceID, Name: roleName}
		if err := s.roleRepo.Create(ctx, role); err != nil {
			return fmt.Errorf("failed to seed role %q: %w", roleName, err)
		}
		stored, err := s.roleRepo.GetByName(ctx, workspaceID, roleName)
		if err != nil {
			return fmt.Errorf("failed to load seeded role %q: %w", roleName, err)
		}

		for _, permName := range permissions {
			perm := &models.Permission{ID: uuid.New(), Name: permName}
			if err := s.permissionRepo.Create(ctx, perm); err != nil {
				return fmt.Errorf("failed to seed permission %q: %w", permName, err)
			}
			storedPerm, err := s.permissionRepo.GetByName(ctx, permName)
			if err != nil {
				return fmt.Errorf("failed to load seeded permission %q: %w", permName, err)
			}
			if err := s.rolePermissionRepo.Create(ctx, workspaceID, &models.RolePermission{
				RoleID:       stored.ID,
				PermissionID: storedPerm.ID,
			}); err != nil {
				return fmt.Errorf("failed to bind %q to %q: %w", permName, roleName, err)
			}
		}
	}
	return nil
}
