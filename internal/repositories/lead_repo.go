package repositories

import (
	"context"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Lead, error)
	GetByPhone(ctx context.Context, workspaceID uuid.UUID, phone string) (*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	SoftDelete(ctx context.Context, workspaceID, id uuid.UUID) error
	List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Lead, error)
	ListByIDs(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]*models.Lead, error)
}

type leadRepo struct {
	db Database
}

func NewLeadRepo(db Database) LeadRepository {
	return &leadRepo{db: db}
}

func (r *leadRepo) Create(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO leads (id, workspace_id, name, phone, email, source, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, lead.ID, lead.WorkspaceID, lead.Name, lead.Phone, lead.Email, lead.Source, lead.Status, lead.Notes)
	return err
}

func (r *leadRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Lead, error) {
	lead := &models.Lead{}
	query := `
		SELECT id, workspace_id, name, phone, email, source, status, notes, created_at, updated_at, deleted_at
		FROM leads
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	err := r.db.QueryRow(ctx, query, workspaceID, id).Scan(&lead.ID, &lead.WorkspaceID, &lead.Name, &lead.Phone, &lead.Email, &lead.Source, &lead.Status, &lead.Notes, &lead.CreatedAt, &lead.UpdatedAt, &lead.DeletedAt)
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *leadRepo) GetByPhone(ctx context.Context, workspaceID uuid.UUID, phone string) (*models.Lead, error) {
	lead := &models.Lead{}
	query := `
		SELECT id, workspace_id, name, phone, email, source, status, notes, created_at, updated_at, deleted_at
		FROM leads
		WHERE workspace_id = $1 AND phone = $2 AND deleted_at IS NULL
	`
	err := r.db.QueryRow(ctx, query, workspaceID, phone).Scan(&lead.ID, &lead.WorkspaceID, &lead.Name, &lead.Phone, &lead.Email, &lead.Source, &lead.Status, &lead.Notes, &lead.CreatedAt, &lead.UpdatedAt, &lead.DeletedAt)
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *leadRepo) Update(ctx context.Context, lead *models.Lead) error {
	query := `
		UPDATE leads
		SET name = $1, phone = $2, email = $3, source = $4, status = $5, notes = $6, updated_at = NOW()
		WHERE workspace_id = $7 AND id = $8 AND deleted_at IS NULL
	`
	_, err := r.db.Exec(ctx, query, lead.Name, lead.Phone, lead.Email, lead.Source, lead.Status, lead.Notes, lead.WorkspaceID, lead.ID)
	return err
}

func (r *leadRepo) SoftDelete(ctx context.Context, workspaceID, id uuid.UUID) error {
	query := `UPDATE leads SET deleted_at = NOW(), updated_at = NOW() WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, query, workspaceID, id)
	return err
}

func (r *leadRepo) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Lead, error) {
	query := `
		SELECT id, workspace_id, name, phone, email, source, status, notes, created_at, updated_at, deleted_at
		FROM leads
		WHERE workspace_id = $1 AND ($2 = '' OR status = $2) AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, workspaceID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead := &models.Lead{}
		if err := rows.Scan(&lead.ID, &lead.WorkspaceID, &lead.Name, &lead.Phone, &lead.Email, &lead.Source, &lead.Status, &lead.Notes, &lead.CreatedAt, &lead.UpdatedAt, &lead.DeletedAt); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func (r *leadRepo) ListByIDs(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]*models.Lead, error) {
	query := `
		SELECT id, workspace_id, name, phone, email, source, status, notes, created_at, updated_at, deleted_at
		FROM leads
		WHERE workspace_id = $1 AND id = ANY($2) AND deleted_at IS NULL
	`
	rows, err := r.db.Query(ctx, query, workspaceID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead := &models.Lead{}
		if err := rows.Scan(&lead.ID, &lead.WorkspaceID, &lead.Name, &lead.Phone, &lead.Email, &lead.Source, &lead.Status, &lead.Notes, &lead.CreatedAt, &lead.UpdatedAt, &lead.DeletedAt); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, nil
}
