package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type CampaignRecipientRepository interface {
	CreateBatch(ctx context.Context, recipients []*models.CampaignRecipient) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.CampaignRecipient, error)
	GetByConversationID(ctx context.Context, conversationID uuid.UUID) (*models.CampaignRecipient, error)
	ListPending(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.CampaignRecipient, error)
	CountDialing(ctx context.Context, campaignID uuid.UUID) (int, error)
	CountUnfinished(ctx context.Context, campaignID uuid.UUID) (int, error)
	ListStaleDialing(ctx context.Context, olderThan time.Time, limit int) ([]*models.CampaignRecipient, error)
	MarkDialing(ctx context.Context, id, conversationID uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	List(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.CampaignRecipient, error)
}

type campaignRecipientRepo struct {
	db Database
}

func NewCampaignRecipientRepo(db Database) CampaignRecipientRepository {
	return &campaignRecipientRepo{db: db}
}

const recipientColumns = `id, campaign_id, workspace_id, lead_id, phone, status, conversation_id, attempts, last_error, created_at, updated_at`

func scanRecipient(row interface{ Scan(dest ...interface{}) error }, rec *models.CampaignRecipient) error {
	return row.Scan(&rec.ID, &rec.CampaignID, &rec.WorkspaceID, &rec.LeadID, &rec.Phone, &rec.Status, &rec.ConversationID, &rec.Attempts, &rec.LastError, &rec.CreatedAt, &rec.UpdatedAt)
}

func (r *campaignRecipientRepo) CreateBatch(ctx context.Context, recipients []*models.CampaignRecipient) error {
	if len(recipients) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO campaign_recipients (id, campaign_id, workspace_id, lead_id, phone, status, attempts, created_at, updated_at) VALUES `)
	args := make([]interface{}, 0, len(recipients)*6)
	for i, rec := range recipients {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 6
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, 0, NOW(), NOW())", n+1, n+2, n+3, n+4, n+5, n+6))
		args = append(args, rec.ID, rec.CampaignID, rec.WorkspaceID, rec.LeadID, rec.Phone, rec.Status)
	}
	_, err := r.db.Exec(ctx, sb.String(), args...)
	return err
}

func (r *campaignRecipientRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.CampaignRecipient, error) {
	recipient := &models.CampaignRecipient{}
	query := `
		SELECT ` + recipientColumns + `
		FROM campaign_recipients
		WHERE workspace_id = $1 AND id = $2
	`
	if err := scanRecipient(r.db.QueryRow(ctx, query, workspaceID, id), recipient); err != nil {
		return nil, err
	}
	return recipient, nil
}

func (r *campaignRecipientRepo) GetByConversationID(ctx context.Context, conversationID uuid.UUID) (*models.CampaignRecipient, error) {
	recipient := &models.CampaignRecipient{}
	query := `
		SELECT ` + recipientColumns + `
		FROM campaign_recipients
		WHERE conversation_id = $1
	`
	if err := scanRecipient(r.db.QueryRow(ctx, query, conversationID), recipient); err != nil {
		return nil, err
	}
	return recipient, nil
}

func (r *campaignRecipientRepo) ListPending(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.CampaignRecipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM campaign_recipients
		WHERE campaign_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []*models.CampaignRecipient
	for rows.Next() {
		recipient := &models.CampaignRecipient{}
		if err := scanRecipient(rows, recipient); err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

func (r *campaignRecipientRepo) CountDialing(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = $1 AND status = 'dialing'`
	if err := r.db.QueryRow(ctx, query, campaignID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *campaignRecipientRepo) CountUnfinished(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = $1 AND status IN ('pending', 'dialing')`
	if err := r.db.QueryRow(ctx, query, campaignID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListStaleDialing finds recipients stuck in dialing after the provider never
// sent an end-of-call webhook.
func (r *campaignRecipientRepo) ListStaleDialing(ctx context.Context, olderThan time.Time, limit int) ([]*models.CampaignRecipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM campaign_recipients
		WHERE status = 'dialing' AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []*models.CampaignRecipient
	for rows.Next() {
		recipient := &models.CampaignRecipient{}
		if err := scanRecipient(rows, recipient); err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

func (r *campaignRecipientRepo) MarkDialing(ctx context.Context, id, conversationID uuid.UUID) error {
	query := `
		UPDATE campaign_recipients
		SET status = 'dialing', conversation_id = $1, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, conversationID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("recipient %s is no longer pending", id)
	}
	return nil
}

func (r *campaignRecipientRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE campaign_recipients SET status = 'completed', updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *campaignRecipientRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `UPDATE campaign_recipients SET status = 'failed', last_error = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, lastError, id)
	return err
}

func (r *campaignRecipientRepo) List(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.CampaignRecipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM campaign_recipients
		WHERE workspace_id = $1 AND campaign_id = $2
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, workspaceID, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []*models.CampaignRecipient
	for rows.Next() {
		recipient := &models.CampaignRecipient{}
		if err := scanRecipient(rows, recipient); err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}
