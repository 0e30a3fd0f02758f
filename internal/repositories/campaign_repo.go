package repositories

import (
	"context"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	UpdateStatus(ctx context.Context, workspaceID, id uuid.UUID, status string) error
	IncrementCompleted(ctx context.Context, id uuid.UUID) error
	IncrementFailed(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Campaign, error)
	ListRunning(ctx context.Context, limit int) ([]*models.Campaign, error)
	GetProgress(ctx context.Context, workspaceID, id uuid.UUID) (*models.CampaignProgress, error)
}

type campaignRepo struct {
	db Database
}

func NewCampaignRepo(db Database) CampaignRepository {
	return &campaignRepo{db: db}
}

const campaignColumns = `id, workspace_id, agent_id, name, status, batch_size, total_recipients, completed_count, failed_count, created_at, updated_at`

func scanCampaign(row interface{ Scan(dest ...interface{}) error }, c *models.Campaign) error {
	return row.Scan(&c.ID, &c.WorkspaceID, &c.AgentID, &c.Name, &c.Status, &c.BatchSize, &c.TotalRecipients, &c.CompletedCount, &c.FailedCount, &c.CreatedAt, &c.UpdatedAt)
}

func (r *campaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaigns (id, workspace_id, agent_id, name, status, batch_size, total_recipients, completed_count, failed_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, campaign.ID, campaign.WorkspaceID, campaign.AgentID, campaign.Name, campaign.Status, campaign.BatchSize, campaign.TotalRecipients)
	return err
}

func (r *campaignRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE workspace_id = $1 AND id = $2
	`
	if err := scanCampaign(r.db.QueryRow(ctx, query, workspaceID, id), campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (r *campaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	query := `
		UPDATE campaigns
		SET name = $1, status = $2, batch_size = $3, total_recipients = $4, updated_at = NOW()
		WHERE workspace_id = $5 AND id = $6
	`
	_, err := r.db.Exec(ctx, query, campaign.Name, campaign.Status, campaign.BatchSize, campaign.TotalRecipients, campaign.WorkspaceID, campaign.ID)
	return err
}

func (r *campaignRepo) UpdateStatus(ctx context.Context, workspaceID, id uuid.UUID, status string) error {
	query := `UPDATE campaigns SET status = $1, updated_at = NOW() WHERE workspace_id = $2 AND id = $3`
	_, err := r.db.Exec(ctx, query, status, workspaceID, id)
	return err
}

func (r *campaignRepo) IncrementCompleted(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE campaigns SET completed_count = completed_count + 1, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *campaignRepo) IncrementFailed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE campaigns SET failed_count = failed_count + 1, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *campaignRepo) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE workspace_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, workspaceID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		campaign := &models.Campaign{}
		if err := scanCampaign(rows, campaign); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, nil
}

func (r *campaignRepo) ListRunning(ctx context.Context, limit int) ([]*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = 'running'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		campaign := &models.Campaign{}
		if err := scanCampaign(rows, campaign); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, nil
}

func (r *campaignRepo) GetProgress(ctx context.Context, workspaceID, id uuid.UUID) (*models.CampaignProgress, error) {
	progress := &models.CampaignProgress{CampaignID: id}
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'dialing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM campaign_recipients
		WHERE workspace_id = $1 AND campaign_id = $2
	`
	err := r.db.QueryRow(ctx, query, workspaceID, id).Scan(&progress.Total, &progress.Pending, &progress.Dialing, &progress.Completed, &progress.Failed)
	if err != nil {
		return nil, err
	}
	return progress, nil
}
