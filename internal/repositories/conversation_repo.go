package repositories

import (
	"context"
	"time"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Conversation, error)
	GetByProviderCallID(ctx context.Context, provider, providerCallID string) (*models.Conversation, error)
	Update(ctx context.Context, conversation *models.Conversation) error
	MarkBilled(ctx context.Context, id uuid.UUID, billedMinutes, billedAmountCents int, source string) (bool, error)
	List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Conversation, error)
	ListByCampaign(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.Conversation, error)
	ListUnbilledCompleted(ctx context.Context, limit int) ([]*models.Conversation, error)
	ListStaleInProgress(ctx context.Context, olderThan time.Time, limit int) ([]*models.Conversation, error)
}

type conversationRepo struct {
	db Database
}

func NewConversationRepo(db Database) ConversationRepository {
	return &conversationRepo{db: db}
}

const conversationColumns = `id, workspace_id, agent_id, lead_id, campaign_id, provider, provider_call_id, direction, status, started_at, ended_at, duration_seconds, recording_object, transcript, provider_cost_cents, billed_minutes, billed_amount_cents, billing_source, billed_at, created_at, updated_at`

func scanConversation(row interface{ Scan(dest ...interface{}) error }, c *models.Conversation) error {
	return row.Scan(&c.ID, &c.WorkspaceID, &c.AgentID, &c.LeadID, &c.CampaignID, &c.Provider, &c.ProviderCallID, &c.Direction, &c.Status, &c.StartedAt, &c.EndedAt, &c.DurationSeconds, &c.RecordingObject, &c.Transcript, &c.ProviderCostCents, &c.BilledMinutes, &c.BilledAmountCents, &c.BillingSource, &c.BilledAt, &c.CreatedAt, &c.UpdatedAt)
}

func (r *conversationRepo) Create(ctx context.Context, conversation *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, workspace_id, agent_id, lead_id, campaign_id, provider, provider_call_id, direction, status, started_at, ended_at, duration_seconds, recording_object, transcript, provider_cost_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, conversation.ID, conversation.WorkspaceID, conversation.AgentID, conversation.LeadID, conversation.CampaignID, conversation.Provider, conversation.ProviderCallID, conversation.Direction, conversation.Status, conversation.StartedAt, conversation.EndedAt, conversation.DurationSeconds, conversation.RecordingObject, conversation.Transcript, conversation.ProviderCostCents)
	return err
}

func (r *conversationRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Conversation, error) {
	conversation := &models.Conversation{}
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE workspace_id = $1 AND id = $2
	`
	if err := scanConversation(r.db.QueryRow(ctx, query, workspaceID, id), conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// GetByProviderCallID is not workspace scoped; webhooks arrive before the
// workspace is known.
func (r *conversationRepo) GetByProviderCallID(ctx context.Context, provider, providerCallID string) (*models.Conversation, error) {
	conversation := &models.Conversation{}
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE provider = $1 AND provider_call_id = $2
	`
	if err := scanConversation(r.db.QueryRow(ctx, query, provider, providerCallID), conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (r *conversationRepo) Update(ctx context.Context, conversation *models.Conversation) error {
	query := `
		UPDATE conversations
		SET status = $1, started_at = $2, ended_at = $3, duration_seconds = $4, recording_object = $5, transcript = $6, provider_cost_cents = $7, updated_at = NOW()
		WHERE id = $8
	`
	_, err := r.db.Exec(ctx, query, conversation.Status, conversation.StartedAt, conversation.EndedAt, conversation.DurationSeconds, conversation.RecordingObject, conversation.Transcript, conversation.ProviderCostCents, conversation.ID)
	return err
}

// MarkBilled stamps billed_at only if it is still NULL. The returned bool
// reports whether this call won the stamp; a false means the conversation was
// already settled and the caller must not deduct again.
func (r *conversationRepo) MarkBilled(ctx context.Context, id uuid.UUID, billedMinutes, billedAmountCents int, source string) (bool, error) {
	query := `
		UPDATE conversations
		SET billed_minutes = $1, billed_amount_cents = $2, billing_source = $3, billed_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND billed_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, billedMinutes, billedAmountCents, source, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *conversationRepo) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE workspace_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, workspaceID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conversation := &models.Conversation{}
		if err := scanConversation(rows, conversation); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

func (r *conversationRepo) ListByCampaign(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE workspace_id = $1 AND campaign_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, workspaceID, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conversation := &models.Conversation{}
		if err := scanConversation(rows, conversation); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

// ListUnbilledCompleted feeds the settlement sweep that picks up calls whose
// end-of-call webhook was processed but whose billing failed midway.
func (r *conversationRepo) ListUnbilledCompleted(ctx context.Context, limit int) ([]*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE status = 'completed' AND duration_seconds > 0 AND billed_at IS NULL
		ORDER BY ended_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conversation := &models.Conversation{}
		if err := scanConversation(rows, conversation); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

func (r *conversationRepo) ListStaleInProgress(ctx context.Context, olderThan time.Time, limit int) ([]*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE status IN ('queued', 'in_progress') AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conversation := &models.Conversation{}
		if err := scanConversation(rows, conversation); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}
