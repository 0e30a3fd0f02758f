package services

import (
	"context"
	"fmt"
	"log"

	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

// AuditLogsService records and reads the per-workspace audit trail.
type AuditLogsService interface {
	LogActivity(ctx context.Context, workspaceID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.AuditLog, error)
	List(ctx context.Context, workspaceID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
	GetRecordHistory(ctx context.Context, workspaceID uuid.UUID, tableName, recordID string, limit, offset int) ([]*models.AuditLog, error)
	GetUserActivity(ctx context.Context, workspaceID, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsService struct {
	auditRepo repositories.AuditLogsRepository
}

func NewAuditLogsService(auditRepo repositories.AuditLogsRepository) AuditLogsService {
	return &auditLogsService{auditRepo: auditRepo}
}

// LogActivity never fails the caller's request path; a lost audit row is
// logged and swallowed.
func (s *auditLogsService) LogActivity(ctx context.Context, workspaceID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error {
	entry := &models.AuditLog{
		WorkspaceID: workspaceID,
		TableName:   tableName,
		RecordID:    recordID,
		Action:      action,
		OldValues:   oldValues,
		NewValues:   newValues,
		ChangedBy:   changedBy,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.Printf("Failed to write audit log for %s/%s: %v", tableName, recordID, err)
	}
	return nil
}

func (s *auditLogsService) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.AuditLog, error) {
	return s.auditRepo.GetByID(ctx, workspaceID, id)
}

func (s *auditLogsService) List(ctx context.Context, workspaceID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}
	return s.auditRepo.List(ctx, workspaceID, filters)
}

func (s *auditLogsService) GetRecordHistory(ctx context.Context, workspaceID uuid.UUID, tableName, recordID string, limit, offset int) ([]*models.AuditLog, error) {
	if tableName == "" || recordID == "" {
		return nil, fmt.Errorf("table name and record id are required")
	}
	return s.auditRepo.GetByTableAndRecord(ctx, workspaceID, tableName, recordID, limit, offset)
}

func (s *auditLogsService) GetUserActivity(ctx context.Context, workspaceID, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	return s.auditRepo.GetByUser(ctx, workspaceID, userID, limit, offset)
}
