package models

import (
	"time"

	"github.com/google/uuid"
)

// Partner billing modes decide how unfunded usage is settled.
const (
	PartnerBillingPrepaid  = "prepaid"
	PartnerBillingPostpaid = "postpaid"
)

// Partner is a top-level tenant: a white-label reseller owning workspaces.
type Partner struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Subdomain       string    `json:"subdomain" db:"subdomain"`
	Status          string    `json:"status" db:"status"`
	StripeAccountID *string   `json:"stripe_account_id" db:"stripe_account_id"`
	BillingMode     string    `json:"billing_mode" db:"billing_mode"`
	FallbackEnabled bool      `json:"fallback_enabled" db:"fallback_enabled"`
	MarginPercent   float64   `json:"margin_percent" db:"margin_percent"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
