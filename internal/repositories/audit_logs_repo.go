package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	Create(ctx context.Context, auditLog *models.AuditLog) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.AuditLog, error)
	List(ctx context.Context, workspaceID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
	GetByTableAndRecord(ctx context.Context, workspaceID uuid.UUID, tableName, recordID string, limit, offset int) ([]*models.AuditLog, error)
	GetByUser(ctx context.Context, workspaceID, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db Database
}

func NewAuditLogsRepo(db Database) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}
	auditLog.CreatedAt = time.Now()

	var newValuesBytes, oldValuesBytes []byte
	var err error
	if auditLog.NewValues != nil {
		newValuesBytes, err = json.Marshal(auditLog.NewValues)
		if err != nil {
			return fmt.Errorf("failed to marshal new_values: %w", err)
		}
	}
	if auditLog.OldValues != nil {
		oldValuesBytes, err = json.Marshal(auditLog.OldValues)
		if err != nil {
			return fmt.Errorf("failed to marshal old_values: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, workspace_id, table_name, record_id, action, new_values, old_values, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.Exec(ctx, query, auditLog.ID, auditLog.WorkspaceID, auditLog.TableName, auditLog.RecordID, auditLog.Action, newValuesBytes, oldValuesBytes, auditLog.ChangedBy, auditLog.CreatedAt)
	return err
}

func scanAuditLog(row interface{ Scan(dest ...interface{}) error }, auditLog *models.AuditLog) error {
	var newValuesBytes, oldValuesBytes []byte
	if err := row.Scan(&auditLog.ID, &auditLog.WorkspaceID, &auditLog.TableName, &auditLog.RecordID, &auditLog.Action, &newValuesBytes, &oldValuesBytes, &auditLog.ChangedBy, &auditLog.CreatedAt); err != nil {
		return err
	}
	if len(newValuesBytes) > 0 {
		if err := json.Unmarshal(newValuesBytes, &auditLog.NewValues); err != nil {
			return fmt.Errorf("failed to unmarshal new_values: %w", err)
		}
	}
	if len(oldValuesBytes) > 0 {
		if err := json.Unmarshal(oldValuesBytes, &auditLog.OldValues); err != nil {
			return fmt.Errorf("failed to unmarshal old_values: %w", err)
		}
	}
	return nil
}

func (r *auditLogsRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.AuditLog, error) {
	auditLog := &models.AuditLog{}
	query := `
		SELECT id, workspace_id, table_name, record_id, action, new_values, old_values, changed_by, created_at
		FROM audit_logs
		WHERE workspace_id = $1 AND id = $2
	`
	if err := scanAuditLog(r.db.QueryRow(ctx, query, workspaceID, id), auditLog); err != nil {
		return nil, err
	}
	return auditLog, nil
}

func (r *auditLogsRepo) List(ctx context.Context, workspaceID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, workspace_id, table_name, record_id, action, new_values, old_values, changed_by, created_at
		FROM audit_logs
		WHERE workspace_id = $1
	`)
	args := []interface{}{workspaceID}
	n := 1

	if filters.TableName != nil {
		n++
		sb.WriteString(fmt.Sprintf(" AND table_name = $%d", n))
		args = append(args, *filters.TableName)
	}
	if filters.RecordID != nil {
		n++
		sb.WriteString(fmt.Sprintf(" AND record_id = $%d", n))
		args = append(args, *filters.RecordID)
	}
	if filters.Action != nil {
		n++
		sb.WriteString(fmt.Sprintf(" AND action = $%d", n))
		args = append(args, *filters.Action)
	}
	if filters.ChangedBy != nil {
		n++
		sb.WriteString(fmt.Sprintf(" AND changed_by = $%d", n))
		args = append(args, *filters.ChangedBy)
	}
	if filters.StartDate != nil {
		n++
		sb.WriteString(fmt.Sprintf(" AND created_at >= $%d", n))
		args = append(args, *filters.StartDate)
	}
	if filters.EndDate != nil {
		n++
		sb.WriteString(fmt.Sprintf(" AND created_at <= $%d", n))
		args = append(args, *filters.EndDate)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", n+1, n+2))
	args = append(args, limit, filters.Offset)

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		auditLog := &models.AuditLog{}
		if err := scanAuditLog(rows, auditLog); err != nil {
			return nil, err
		}
		logs = append(logs, auditLog)
	}
	return logs, nil
}

func (r *auditLogsRepo) GetByTableAndRecord(ctx context.Context, workspaceID uuid.UUID, tableName, recordID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, workspace_id, table_name, record_id, action, new_values, old_values, changed_by, created_at
		FROM audit_logs
		WHERE workspace_id = $1 AND table_name = $2 AND record_id = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.Query(ctx, query, workspaceID, tableName, recordID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		auditLog := &models.AuditLog{}
		if err := scanAuditLog(rows, auditLog); err != nil {
			return nil, err
		}
		logs = append(logs, auditLog)
	}
	return logs, nil
}

func (r *auditLogsRepo) GetByUser(ctx context.Context, workspaceID, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, workspace_id, table_name, record_id, action, new_values, old_values, changed_by, created_at
		FROM audit_logs
		WHERE workspace_id = $1 AND changed_by = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, workspaceID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		auditLog := &models.AuditLog{}
		if err := scanAuditLog(rows, auditLog); err != nil {
			return nil, err
		}
		logs = append(logs, auditLog)
	}
	return logs, nil
}
