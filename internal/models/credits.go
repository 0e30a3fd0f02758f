package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit transaction types.
const (
	CreditPurchase   = "purchase"
	CreditDeduction  = "deduction"
	CreditRefund     = "refund"
	CreditAdjustment = "adjustment"
)

// WorkspaceCredits is the prepaid balance for a workspace, in cents.
type WorkspaceCredits struct {
	ID           uuid.UUID `json:"id" db:"id"`
	WorkspaceID  uuid.UUID `json:"workspace_id" db:"workspace_id"`
	BalanceCents int       `json:"balance_cents" db:"balance_cents"`
	Currency     string    `json:"currency" db:"currency"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CreditTransaction is a ledger entry. AmountCents is signed: purchases and
// refunds are positive, deductions negative. Postpaid usage is recorded as a
// deduction that may drive BalanceAfterCents negative.
type CreditTransaction struct {
	ID                uuid.UUID `json:"id" db:"id"`
	WorkspaceID       uuid.UUID `json:"workspace_id" db:"workspace_id"`
	AmountCents       int       `json:"amount_cents" db:"amount_cents"`
	Type              string    `json:"type" db:"type"`
	Reference         *string   `json:"reference" db:"reference"`
	BalanceAfterCents int       `json:"balance_after_cents" db:"balance_after_cents"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
