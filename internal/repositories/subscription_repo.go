package repositories

import (
	"context"
	"fmt"
	"time"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.WorkspaceSubscription) error
	GetActiveByWorkspace(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceSubscription, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.WorkspaceSubscription, error)
	Update(ctx context.Context, sub *models.WorkspaceSubscription) error
	IncrementUsedMinutes(ctx context.Context, id uuid.UUID, minutes int) (bool, error)
	ReleaseMinutes(ctx context.Context, id uuid.UUID, minutes int) error
	ResetPeriod(ctx context.Context, id uuid.UUID, periodStart time.Time, periodEnd *time.Time) error
	ListDuePeriodRoll(ctx context.Context, now time.Time, limit int) ([]*models.WorkspaceSubscription, error)
}

type subscriptionRepo struct {
	db Database
}

func NewSubscriptionRepo(db Database) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, workspace_id, stripe_subscription_id, plan_name, status, included_minutes, used_minutes, price_cents, per_minute_cents, current_period_start, current_period_end, created_at, updated_at`

func scanSubscription(row interface{ Scan(dest ...interface{}) error }, s *models.WorkspaceSubscription) error {
	return row.Scan(&s.ID, &s.WorkspaceID, &s.StripeSubscriptionID, &s.PlanName, &s.Status, &s.IncludedMinutes, &s.UsedMinutes, &s.PriceCents, &s.PerMinuteCents, &s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *models.WorkspaceSubscription) error {
	query := `
		INSERT INTO workspace_subscriptions (id, workspace_id, stripe_subscription_id, plan_name, status, included_minutes, used_minutes, price_cents, per_minute_cents, current_period_start, current_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, sub.ID, sub.WorkspaceID, sub.StripeSubscriptionID, sub.PlanName, sub.Status, sub.IncludedMinutes, sub.UsedMinutes, sub.PriceCents, sub.PerMinuteCents, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	return err
}

func (r *subscriptionRepo) GetActiveByWorkspace(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceSubscription, error) {
	sub := &models.WorkspaceSubscription{}
	query := `
		SELECT ` + subscriptionColumns + `
		FROM workspace_subscriptions
		WHERE workspace_id = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := scanSubscription(r.db.QueryRow(ctx, query, workspaceID), sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepo) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.WorkspaceSubscription, error) {
	sub := &models.WorkspaceSubscription{}
	query := `
		SELECT ` + subscriptionColumns + `
		FROM workspace_subscriptions
		WHERE stripe_subscription_id = $1
	`
	if err := scanSubscription(r.db.QueryRow(ctx, query, stripeSubscriptionID), sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, sub *models.WorkspaceSubscription) error {
	query := `
		UPDATE workspace_subscriptions
		SET stripe_subscription_id = $1, plan_name = $2, status = $3, included_minutes = $4, used_minutes = $5, price_cents = $6, per_minute_cents = $7, current_period_start = $8, current_period_end = $9, updated_at = NOW()
		WHERE id = $10
	`
	_, err := r.db.Exec(ctx, query, sub.StripeSubscriptionID, sub.PlanName, sub.Status, sub.IncludedMinutes, sub.UsedMinutes, sub.PriceCents, sub.PerMinuteCents, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.ID)
	return err
}

// IncrementUsedMinutes consumes plan minutes only when the whole amount still
// fits. The guard in the WHERE clause keeps concurrent settlements from
// overdrawing the allowance.
func (r *subscriptionRepo) IncrementUsedMinutes(ctx context.Context, id uuid.UUID, minutes int) (bool, error) {
	if minutes <= 0 {
		return false, fmt.Errorf("minutes must be positive, got %d", minutes)
	}
	query := `
		UPDATE workspace_subscriptions
		SET used_minutes = used_minutes + $1, updated_at = NOW()
		WHERE id = $2 AND status = 'active' AND used_minutes + $1 <= included_minutes
	`
	tag, err := r.db.Exec(ctx, query, minutes, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseMinutes undoes a consumption that lost the billed_at race.
func (r *subscriptionRepo) ReleaseMinutes(ctx context.Context, id uuid.UUID, minutes int) error {
	query := `
		UPDATE workspace_subscriptions
		SET used_minutes = GREATEST(used_minutes - $1, 0), updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, minutes, id)
	return err
}

func (r *subscriptionRepo) ResetPeriod(ctx context.Context, id uuid.UUID, periodStart time.Time, periodEnd *time.Time) error {
	query := `
		UPDATE workspace_subscriptions
		SET used_minutes = 0, current_period_start = $1, current_period_end = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := r.db.Exec(ctx, query, periodStart, periodEnd, id)
	return err
}

func (r *subscriptionRepo) ListDuePeriodRoll(ctx context.Context, now time.Time, limit int) ([]*models.WorkspaceSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM workspace_subscriptions
		WHERE status = 'active' AND current_period_end IS NOT NULL AND current_period_end < $1
		ORDER BY current_period_end ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.WorkspaceSubscription
	for rows.Next() {
		sub := &models.WorkspaceSubscription{}
		if err := scanSubscription(rows, sub); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
