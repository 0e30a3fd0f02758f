package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB is a loosely-typed column payload stored as jsonb.
type JSONB map[string]interface{}

// AuditLog records a data change or sensitive request inside a workspace.
type AuditLog struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id" db:"workspace_id"`
	TableName   string     `json:"table_name" db:"table_name"`
	RecordID    string     `json:"record_id" db:"record_id"`
	Action      string     `json:"action" db:"action"`
	NewValues   JSONB      `json:"new_values" db:"new_values"`
	OldValues   JSONB      `json:"old_values" db:"old_values"`
	ChangedBy   *uuid.UUID `json:"changed_by" db:"changed_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Action constants for audit logs
const (
	ActionInsert     = "INSERT"
	ActionUpdate     = "UPDATE"
	ActionDelete     = "DELETE"
	ActionSoftDelete = "SOFT_DELETE"
)

// AuditLogFilters represents filters for querying audit logs
type AuditLogFilters struct {
	TableName *string    `json:"table_name"`
	RecordID  *string    `json:"record_id"`
	Action    *string    `json:"action"`
	ChangedBy *uuid.UUID `json:"changed_by"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}
