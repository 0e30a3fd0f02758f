package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses.
const (
	CampaignDraft     = "draft"
	CampaignRunning   = "running"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
	CampaignCancelled = "cancelled"
)

// Recipient statuses.
const (
	RecipientPending   = "pending"
	RecipientDialing   = "dialing"
	RecipientCompleted = "completed"
	RecipientFailed    = "failed"
)

// Campaign is an outbound call campaign executed in batches: at most
// BatchSize recipients are kept dialing at any time.
type Campaign struct {
	ID              uuid.UUID `json:"id" db:"id"`
	WorkspaceID     uuid.UUID `json:"workspace_id" db:"workspace_id"`
	AgentID         uuid.UUID `json:"agent_id" db:"agent_id"`
	Name            string    `json:"name" db:"name"`
	Status          string    `json:"status" db:"status"`
	BatchSize       int       `json:"batch_size" db:"batch_size"`
	TotalRecipients int       `json:"total_recipients" db:"total_recipients"`
	CompletedCount  int       `json:"completed_count" db:"completed_count"`
	FailedCount     int       `json:"failed_count" db:"failed_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type CampaignRecipient struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	CampaignID     uuid.UUID  `json:"campaign_id" db:"campaign_id"`
	WorkspaceID    uuid.UUID  `json:"workspace_id" db:"workspace_id"`
	LeadID         uuid.UUID  `json:"lead_id" db:"lead_id"`
	Phone          string     `json:"phone" db:"phone"`
	Status         string     `json:"status" db:"status"`
	ConversationID *uuid.UUID `json:"conversation_id" db:"conversation_id"`
	Attempts       int        `json:"attempts" db:"attempts"`
	LastError      *string    `json:"last_error" db:"last_error"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// CampaignProgress is the aggregate view returned by the progress endpoint.
type CampaignProgress struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Status     string    `json:"status"`
	Total      int       `json:"total"`
	Pending    int       `json:"pending"`
	Dialing    int       `json:"dialing"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
}
