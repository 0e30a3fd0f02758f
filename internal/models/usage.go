package models

import (
	"time"

	"github.com/google/uuid"
)

// Meter outbox statuses.
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// UsageRecord captures one settled call for reporting and reconciliation.
type UsageRecord struct {
	ID             uuid.UUID `json:"id" db:"id"`
	WorkspaceID    uuid.UUID `json:"workspace_id" db:"workspace_id"`
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	Minutes        int       `json:"minutes" db:"minutes"`
	AmountCents    int       `json:"amount_cents" db:"amount_cents"`
	Source         string    `json:"source" db:"source"`
	RecordedAt     time.Time `json:"recorded_at" db:"recorded_at"`
}

// MeterOutbox rows mirror usage to Stripe billing meters asynchronously so a
// Stripe outage never blocks call settlement.
type MeterOutbox struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id" db:"workspace_id"`
	MeterName   string     `json:"meter_name" db:"meter_name"`
	Payload     JSONB      `json:"payload" db:"payload"`
	Status      string     `json:"status" db:"status"`
	Attempts    int        `json:"attempts" db:"attempts"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	SentAt      *time.Time `json:"sent_at" db:"sent_at"`
}

// UsageSummary aggregates a workspace's usage over a period.
type UsageSummary struct {
	WorkspaceID      uuid.UUID      `json:"workspace_id"`
	PeriodStart      time.Time      `json:"period_start"`
	PeriodEnd        time.Time      `json:"period_end"`
	TotalCalls       int            `json:"total_calls"`
	TotalMinutes     int            `json:"total_minutes"`
	TotalAmountCents int            `json:"total_amount_cents"`
	BySource         map[string]int `json:"by_source"`
}
