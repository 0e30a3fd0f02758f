package repositories

import (
	"context"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type RolePermissionRepository interface {
	Create(ctx context.Context, workspaceID uuid.UUID, rolePermission *models.RolePermission) error
	Delete(ctx context.Context, workspaceID uuid.UUID, roleID, permissionID uuid.UUID) error
	ListByRole(ctx context.Context, workspaceID, roleID uuid.UUID) ([]*models.RolePermission, error)
	HasPermission(ctx context.Context, workspaceID, userID uuid.UUID, permissionName string) (bool, error)
}

type rolePermissionRepo struct {
	db Database
}

func NewRolePermissionRepo(db Database) RolePermissionRepository {
	return &rolePermissionRepo{db: db}
}

func (r *rolePermissionRepo) Create(ctx context.Context, workspaceID uuid.UUID, rolePermission *models.RolePermission) error {
	query := `
		INSERT INTO role_permissions (role_id, permission_id, created_at)
		SELECT $1, $2, NOW()
		WHERE EXISTS (SELECT 1 FROM roles WHERE id = $1 AND workspace_id = $3)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, rolePermission.RoleID, rolePermission.PermissionID, workspaceID)
	return err
}

func (r *rolePermissionRepo) Delete(ctx context.Context, workspaceID uuid.UUID, roleID, permissionID uuid.UUID) error {
	query := `
		DELETE FROM role_permissions
		WHERE role_id = $1 AND permission_id = $2
		AND EXISTS (SELECT 1 FROM roles WHERE id = $1 AND workspace_id = $3)
	`
	_, err := r.db.Exec(ctx, query, roleID, permissionID, workspaceID)
	return err
}

func (r *rolePermissionRepo) ListByRole(ctx context.Context, workspaceID, roleID uuid.UUID) ([]*models.RolePermission, error) {
	query := `
		SELECT rp.id, rp.role_id, rp.permission_id, rp.created_at
		FROM role_permissions rp
		JOIN roles ro ON rp.role_id = ro.id
		WHERE ro.workspace_id = $1 AND rp.role_id = $2
		ORDER BY rp.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, workspaceID, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rolePermissions []*models.RolePermission
	for rows.Next() {
		rolePermission := &models.RolePermission{}
		if err := rows.Scan(&rolePermission.ID, &rolePermission.RoleID, &rolePermission.PermissionID, &rolePermission.CreatedAt); err != nil {
			return nil, err
		}
		rolePermissions = append(rolePermissions, rolePermission)
	}
	return rolePermissions, nil
}

func (r *rolePermissionRepo) HasPermission(ctx context.Context, workspaceID, userID uuid.UUID, permissionName string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM user_roles ur
		JOIN roles ro ON ur.role_id = ro.id
		JOIN role_permissions rp ON rp.role_id = ro.id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ro.workspace_id = $1 AND ur.user_id = $2 AND p.name = $3
	`
	if err := r.db.QueryRow(ctx, query, workspaceID, userID, permissionName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
