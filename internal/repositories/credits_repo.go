package repositories

import (
	"context"
	"fmt"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type CreditsRepository interface {
	GetByWorkspace(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceCredits, error)
	EnsureWallet(ctx context.Context, workspaceID uuid.UUID) error
	Deduct(ctx context.Context, workspaceID uuid.UUID, amountCents int, reference string) (bool, error)
	TopUp(ctx context.Context, workspaceID uuid.UUID, amountCents int, txType, reference string) error
	ListTransactions(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error)
	GetTransactionByReference(ctx context.Context, workspaceID uuid.UUID, reference string) (*models.CreditTransaction, error)
}

type creditsRepo struct {
	db Database
}

func NewCreditsRepo(db Database) CreditsRepository {
	return &creditsRepo{db: db}
}

func (r *creditsRepo) GetByWorkspace(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceCredits, error) {
	credits := &models.WorkspaceCredits{}
	query := `
		SELECT id, workspace_id, balance_cents, currency, updated_at
		FROM workspace_credits
		WHERE workspace_id = $1
	`
	err := r.db.QueryRow(ctx, query, workspaceID).Scan(&credits.ID, &credits.WorkspaceID, &credits.BalanceCents, &credits.Currency, &credits.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return credits, nil
}

func (r *creditsRepo) EnsureWallet(ctx context.Context, workspaceID uuid.UUID) error {
	query := `
		INSERT INTO workspace_credits (id, workspace_id, balance_cents, currency, updated_at)
		VALUES ($1, $2, 0, 'usd', NOW())
		ON CONFLICT (workspace_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, uuid.New(), workspaceID)
	return err
}

// Deduct debits the wallet only if the full amount is covered, then records a
// ledger row carrying the post-debit balance. Returns false when the balance
// was insufficient.
func (r *creditsRepo) Deduct(ctx context.Context, workspaceID uuid.UUID, amountCents int, reference string) (bool, error) {
	if amountCents <= 0 {
		return false, fmt.Errorf("amount must be positive, got %d", amountCents)
	}
	query := `
		UPDATE workspace_credits
		SET balance_cents = balance_cents - $1, updated_at = NOW()
		WHERE workspace_id = $2 AND balance_cents >= $1
	`
	tag, err := r.db.Exec(ctx, query, amountCents, workspaceID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	ledgerQuery := `
		INSERT INTO credit_transactions (id, workspace_id, amount_cents, type, reference, balance_after_cents, created_at)
		SELECT $1, $2, $3, $4, $5, balance_cents, NOW()
		FROM workspace_credits
		WHERE workspace_id = $2
	`
	_, err = r.db.Exec(ctx, ledgerQuery, uuid.New(), workspaceID, -amountCents, models.CreditDeduction, reference)
	if err != nil {
		return false, fmt.Errorf("failed to record credit deduction: %w", err)
	}
	return true, nil
}

func (r *creditsRepo) TopUp(ctx context.Context, workspaceID uuid.UUID, amountCents int, txType, reference string) error {
	if amountCents <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amountCents)
	}
	query := `
		UPDATE workspace_credits
		SET balance_cents = balance_cents + $1, updated_at = NOW()
		WHERE workspace_id = $2
	`
	tag, err := r.db.Exec(ctx, query, amountCents, workspaceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no credit wallet for workspace %s", workspaceID)
	}

	ledgerQuery := `
		INSERT INTO credit_transactions (id, workspace_id, amount_cents, type, reference, balance_after_cents, created_at)
		SELECT $1, $2, $3, $4, $5, balance_cents, NOW()
		FROM workspace_credits
		WHERE workspace_id = $2
	`
	_, err = r.db.Exec(ctx, ledgerQuery, uuid.New(), workspaceID, amountCents, txType, reference)
	if err != nil {
		return fmt.Errorf("failed to record credit top-up: %w", err)
	}
	return nil
}

func (r *creditsRepo) ListTransactions(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error) {
	query := `
		SELECT id, workspace_id, amount_cents, type, reference, balance_after_cents, created_at
		FROM credit_transactions
		WHERE workspace_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.CreditTransaction
	for rows.Next() {
		tx := &models.CreditTransaction{}
		if err := rows.Scan(&tx.ID, &tx.WorkspaceID, &tx.AmountCents, &tx.Type, &tx.Reference, &tx.BalanceAfterCents, &tx.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

// GetTransactionByReference backs idempotent Stripe webhook handling: a
// payment intent that already produced a ledger row is not credited twice.
func (r *creditsRepo) GetTransactionByReference(ctx context.Context, workspaceID uuid.UUID, reference string) (*models.CreditTransaction, error) {
	tx := &models.CreditTransaction{}
	query := `
		SELECT id, workspace_id, amount_cents, type, reference, balance_after_cents, created_at
		FROM credit_transactions
		WHERE workspace_id = $1 AND reference = $2
	`
	err := r.db.QueryRow(ctx, query, workspaceID, reference).Scan(&tx.ID, &tx.WorkspaceID, &tx.AmountCents, &tx.Type, &tx.Reference, &tx.BalanceAfterCents, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
