package repositories

import (
	"context"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type DepartmentRepository interface {
	Create(ctx context.Context, department *models.Department) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Department, error)
	Update(ctx context.Context, department *models.Department) error
	SoftDelete(ctx context.Context, workspaceID, id uuid.UUID) error
	List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.Department, error)
}

type departmentRepo struct {
	db Database
}

func NewDepartmentRepo(db Database) DepartmentRepository {
	return &departmentRepo{db: db}
}

func (r *departmentRepo) Create(ctx context.Context, department *models.Department) error {
	query := `
		INSERT INTO departments (id, workspace_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, department.ID, department.WorkspaceID, department.Name, department.Description)
	return err
}

func (r *departmentRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Department, error) {
	department := &models.Department{}
	query := `
		SELECT id, workspace_id, name, description, created_at, updated_at, deleted_at
		FROM departments
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	err := r.db.QueryRow(ctx, query, workspaceID, id).Scan(&department.ID, &department.WorkspaceID, &department.Name, &department.Description, &department.CreatedAt, &department.UpdatedAt, &department.DeletedAt)
	if err != nil {
		return nil, err
	}
	return department, nil
}

func (r *departmentRepo) Update(ctx context.Context, department *models.Department) error {
	query := `
		UPDATE departments
		SET name = $1, description = $2, updated_at = NOW()
		WHERE workspace_id = $3 AND id = $4 AND deleted_at IS NULL
	`
	_, err := r.db.Exec(ctx, query, department.Name, department.Description, department.WorkspaceID, department.ID)
	return err
}

func (r *departmentRepo) SoftDelete(ctx context.Context, workspaceID, id uuid.UUID) error {
	query := `UPDATE departments SET deleted_at = NOW(), updated_at = NOW() WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, query, workspaceID, id)
	return err
}

func (r *departmentRepo) List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.Department, error) {
	query := `
		SELECT id, workspace_id, name, description, created_at, updated_at, deleted_at
		FROM departments
		WHERE workspace_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []*models.Department
	for rows.Next() {
		department := &models.Department{}
		if err := rows.Scan(&department.ID, &department.WorkspaceID, &department.Name, &department.Description, &department.CreatedAt, &department.UpdatedAt, &department.DeletedAt); err != nil {
			return nil, err
		}
		departments = append(departments, department)
	}
	return departments, nil
}
