package repositories

import (
	"context"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *models.Workspace) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	GetBySlug(ctx context.Context, partnerID uuid.UUID, slug string) (*models.Workspace, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Workspace, error)
	Update(ctx context.Context, workspace *models.Workspace) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByPartner(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*models.Workspace, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.Workspace, error)
}

type workspaceRepo struct {
	db Database
}

func NewWorkspaceRepo(db Database) WorkspaceRepository {
	return &workspaceRepo{db: db}
}

const workspaceColumns = `id, partner_id, name, slug, status, stripe_customer_id, created_at, updated_at, deleted_at`

func (r *workspaceRepo) scanRow(row interface{ Scan(dest ...interface{}) error }, ws *models.Workspace) error {
	return row.Scan(&ws.ID, &ws.PartnerID, &ws.Name, &ws.Slug, &ws.Status, &ws.StripeCustomerID, &ws.CreatedAt, &ws.UpdatedAt, &ws.DeletedAt)
}

func (r *workspaceRepo) Create(ctx context.Context, workspace *models.Workspace) error {
	query := `
		INSERT INTO workspaces (id, partner_id, name, slug, status, stripe_customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, workspace.ID, workspace.PartnerID, workspace.Name, workspace.Slug, workspace.Status, workspace.StripeCustomerID)
	return err
}

func (r *workspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	workspace := &models.Workspace{}
	query := `
		SELECT ` + workspaceColumns + `
		FROM workspaces
		WHERE id = $1 AND deleted_at IS NULL
	`
	if err := r.scanRow(r.db.QueryRow(ctx, query, id), workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

func (r *workspaceRepo) GetBySlug(ctx context.Context, partnerID uuid.UUID, slug string) (*models.Workspace, error) {
	workspace := &models.Workspace{}
	query := `
		SELECT ` + workspaceColumns + `
		FROM workspaces
		WHERE partner_id = $1 AND slug = $2 AND deleted_at IS NULL
	`
	if err := r.scanRow(r.db.QueryRow(ctx, query, partnerID, slug), workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

func (r *workspaceRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Workspace, error) {
	workspace := &models.Workspace{}
	query := `
		SELECT ` + workspaceColumns + `
		FROM workspaces
		WHERE stripe_customer_id = $1 AND deleted_at IS NULL
	`
	if err := r.scanRow(r.db.QueryRow(ctx, query, customerID), workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

func (r *workspaceRepo) Update(ctx context.Context, workspace *models.Workspace) error {
	query := `
		UPDATE workspaces
		SET name = $1, slug = $2, status = $3, stripe_customer_id = $4, updated_at = NOW()
		WHERE id = $5 AND deleted_at IS NULL
	`
	_, err := r.db.Exec(ctx, query, workspace.Name, workspace.Slug, workspace.Status, workspace.StripeCustomerID, workspace.ID)
	return err
}

func (r *workspaceRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE workspaces SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *workspaceRepo) ListByPartner(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*models.Workspace, error) {
	query := `
		SELECT ` + workspaceColumns + `
		FROM workspaces
		WHERE partner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, partnerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*models.Workspace
	for rows.Next() {
		workspace := &models.Workspace{}
		if err := r.scanRow(rows, workspace); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, workspace)
	}
	return workspaces, nil
}

func (r *workspaceRepo) ListActive(ctx context.Context, limit, offset int) ([]*models.Workspace, error) {
	query := `
		SELECT ` + workspaceColumns + `
		FROM workspaces
		WHERE status = 'active' AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*models.Workspace
	for rows.Next() {
		workspace := &models.Workspace{}
		if err := r.scanRow(rows, workspace); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, workspace)
	}
	return workspaces, nil
}
