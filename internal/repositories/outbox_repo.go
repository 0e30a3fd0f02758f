package repositories

import (
	"context"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type OutboxRepository interface {
	Enqueue(ctx context.Context, entry *models.MeterOutbox) error
	ListPending(ctx context.Context, limit int) ([]*models.MeterOutbox, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, maxAttempts int) error
}

type outboxRepo struct {
	db Database
}

func NewOutboxRepo(db Database) OutboxRepository {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Enqueue(ctx context.Context, entry *models.MeterOutbox) error {
	query := `
		INSERT INTO meter_outbox (id, workspace_id, meter_name, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, 'pending', 0, NOW())
	`
	_, err := r.db.Exec(ctx, query, entry.ID, entry.WorkspaceID, entry.MeterName, entry.Payload)
	return err
}

func (r *outboxRepo) ListPending(ctx context.Context, limit int) ([]*models.MeterOutbox, error) {
	query := `
		SELECT id, workspace_id, meter_name, payload, status, attempts, created_at, sent_at
		FROM meter_outbox
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.MeterOutbox
	for rows.Next() {
		entry := &models.MeterOutbox{}
		if err := rows.Scan(&entry.ID, &entry.WorkspaceID, &entry.MeterName, &entry.Payload, &entry.Status, &entry.Attempts, &entry.CreatedAt, &entry.SentAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *outboxRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE meter_outbox SET status = 'sent', sent_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// MarkFailed bumps the attempt counter; past maxAttempts the entry parks as
// failed and needs manual replay.
func (r *outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, maxAttempts int) error {
	query := `
		UPDATE meter_outbox
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= $1 THEN 'failed' ELSE 'pending' END
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, maxAttempts, id)
	return err
}
