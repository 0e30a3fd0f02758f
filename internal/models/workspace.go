package models

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is a customer's isolated environment under a partner.
type Workspace struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	PartnerID        uuid.UUID  `json:"partner_id" db:"partner_id"`
	Name             string     `json:"name" db:"name"`
	Slug             string     `json:"slug" db:"slug"`
	Status           string     `json:"status" db:"status"`
	StripeCustomerID *string    `json:"stripe_customer_id" db:"stripe_customer_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at" db:"deleted_at"`
}
