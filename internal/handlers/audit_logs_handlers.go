package handlers

import (
	"net/http"
	"time"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers handles audit trail HTTP requests
type AuditLogsHandlers struct {
	auditService services.AuditLogsService
}

// NewAuditLogsHandlers creates a new audit logs handlers instance
func NewAuditLogsHandlers(auditService services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditService: auditService}
}

// ListAuditLogs handles GET /audit-logs with optional filtering
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := paginationParams(c)
	filters := &models.AuditLogFilters{
		Limit:  limit,
		Offset: offset,
	}
	if tableName := c.QueryParam("table_name"); tableName != "" {
		filters.TableName = &tableName
	}
	if action := c.QueryParam("action"); action != "" {
		filters.Action = &action
	}
	if fromStr := c.QueryParam("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return common.SendValidationError(c, "from", "must be an RFC3339 timestamp")
		}
		filters.StartDate = &from
	}
	if toStr := c.QueryParam("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return common.SendValidationError(c, "to", "must be an RFC3339 timestamp")
		}
		filters.EndDate = &to
	}

	logs, err := h.auditService.List(ctx, workspaceID, filters)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list audit logs")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"limit":      limit,
		"offset":     offset,
	})
}

// GetAuditLog handles GET /audit-logs/:id
func (h *AuditLogsHandlers) GetAuditLog(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	entry, err := h.auditService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Audit log")
	}
	return c.JSON(http.StatusOK, entry)
}

// GetRecordHistory handles GET /audit-logs/records/:table/:record
func (h *AuditLogsHandlers) GetRecordHistory(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := paginationParams(c)
	history, err := h.auditService.GetRecordHistory(ctx, workspaceID, c.Param("table"), c.Param("record"), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"history": history,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetUserActivity handles GET /audit-logs/users/:id
func (h *AuditLogsHandlers) GetUserActivity(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	limit, offset := paginationParams(c)
	activity, err := h.auditService.GetUserActivity(ctx, workspaceID, userID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user activity")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"activity": activity,
		"limit":    limit,
		"offset":   offset,
	})
}
