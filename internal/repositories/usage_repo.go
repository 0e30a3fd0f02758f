package repositories

import (
	"context"
	"time"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type UsageRepository interface {
	Create(ctx context.Context, record *models.UsageRecord) error
	Summarize(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time) (*models.UsageSummary, error)
	List(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time, limit, offset int) ([]*models.UsageRecord, error)
}

type usageRepo struct {
	db Database
}

func NewUsageRepo(db Database) UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) Create(ctx context.Context, record *models.UsageRecord) error {
	query := `
		INSERT INTO usage_records (id, workspace_id, conversation_id, minutes, amount_cents, source, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.Exec(ctx, query, record.ID, record.WorkspaceID, record.ConversationID, record.Minutes, record.AmountCents, record.Source)
	return err
}

func (r *usageRepo) Summarize(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time) (*models.UsageSummary, error) {
	summary := &models.UsageSummary{
		WorkspaceID: workspaceID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		BySource:    make(map[string]int),
	}
	query := `
		SELECT COUNT(*), COALESCE(SUM(minutes), 0), COALESCE(SUM(amount_cents), 0)
		FROM usage_records
		WHERE workspace_id = $1 AND recorded_at >= $2 AND recorded_at < $3
	`
	err := r.db.QueryRow(ctx, query, workspaceID, periodStart, periodEnd).Scan(&summary.TotalCalls, &summary.TotalMinutes, &summary.TotalAmountCents)
	if err != nil {
		return nil, err
	}

	bySourceQuery := `
		SELECT source, COALESCE(SUM(minutes), 0)
		FROM usage_records
		WHERE workspace_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		GROUP BY source
	`
	rows, err := r.db.Query(ctx, bySourceQuery, workspaceID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var minutes int
		if err := rows.Scan(&source, &minutes); err != nil {
			return nil, err
		}
		summary.BySource[source] = minutes
	}
	return summary, nil
}

func (r *usageRepo) List(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time, limit, offset int) ([]*models.UsageRecord, error) {
	query := `
		SELECT id, workspace_id, conversation_id, minutes, amount_cents, source, recorded_at
		FROM usage_records
		WHERE workspace_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.Query(ctx, query, workspaceID, periodStart, periodEnd, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.UsageRecord
	for rows.Next() {
		record := &models.UsageRecord{}
		if err := rows.Scan(&record.ID, &record.WorkspaceID, &record.ConversationID, &record.Minutes, &record.AmountCents, &record.Source, &record.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
