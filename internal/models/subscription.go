package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceSubscription tracks a workspace's plan and its bundled call
// minutes for the current billing period.
type WorkspaceSubscription struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	WorkspaceID          uuid.UUID  `json:"workspace_id" db:"workspace_id"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id" db:"stripe_subscription_id"`
	PlanName             string     `json:"plan_name" db:"plan_name"`
	Status               string     `json:"status" db:"status"`
	IncludedMinutes      int        `json:"included_minutes" db:"included_minutes"`
	UsedMinutes          int        `json:"used_minutes" db:"used_minutes"`
	PriceCents           int        `json:"price_cents" db:"price_cents"`
	PerMinuteCents       int        `json:"per_minute_cents" db:"per_minute_cents"`
	CurrentPeriodStart   time.Time  `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end" db:"current_period_end"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// RemainingMinutes reports the unconsumed portion of the period allowance.
func (s *WorkspaceSubscription) RemainingMinutes() int {
	remaining := s.IncludedMinutes - s.UsedMinutes
	if remaining < 0 {
		return 0
	}
	return remaining
}
