package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation statuses follow the provider call lifecycle.
const (
	ConversationQueued     = "queued"
	ConversationInProgress = "in_progress"
	ConversationCompleted  = "completed"
	ConversationFailed     = "failed"
)

// Billing sources a completed call can be settled against.
const (
	BillingSourceSubscription = "subscription"
	BillingSourceCredits      = "credits"
	BillingSourcePostpaid     = "postpaid"
	BillingSourcePartner      = "partner"

	// BillingSourceNone marks zero-duration calls that settled without a
	// deduction.
	BillingSourceNone = "none"
)

// Conversation is a logged call with its cost breakdown. BilledAt is the
// idempotency guard: a non-nil value means the call has been settled and the
// billing path must not run again.
type Conversation struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	WorkspaceID       uuid.UUID  `json:"workspace_id" db:"workspace_id"`
	AgentID           uuid.UUID  `json:"agent_id" db:"agent_id"`
	LeadID            *uuid.UUID `json:"lead_id" db:"lead_id"`
	CampaignID        *uuid.UUID `json:"campaign_id" db:"campaign_id"`
	Provider          string     `json:"provider" db:"provider"`
	ProviderCallID    string     `json:"provider_call_id" db:"provider_call_id"`
	Direction         string     `json:"direction" db:"direction"`
	Status            string     `json:"status" db:"status"`
	StartedAt         *time.Time `json:"started_at" db:"started_at"`
	EndedAt           *time.Time `json:"ended_at" db:"ended_at"`
	DurationSeconds   int        `json:"duration_seconds" db:"duration_seconds"`
	RecordingObject   *string    `json:"recording_object" db:"recording_object"`
	Transcript        *string    `json:"transcript" db:"transcript"`
	ProviderCostCents int        `json:"provider_cost_cents" db:"provider_cost_cents"`
	BilledMinutes     int        `json:"billed_minutes" db:"billed_minutes"`
	BilledAmountCents int        `json:"billed_amount_cents" db:"billed_amount_cents"`
	BillingSource     *string    `json:"billing_source" db:"billing_source"`
	BilledAt          *time.Time `json:"billed_at" db:"billed_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
