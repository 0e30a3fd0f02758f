package middleware

import (
	"context"
	"reflect"
	"strings"
	"time"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuditMiddleware provides automatic audit logging for HTTP requests
type AuditMiddleware struct {
	auditService services.AuditLogsService
}

// NewAuditMiddleware creates a new audit middleware instance
func NewAuditMiddleware(auditService services.AuditLogsService) *AuditMiddleware {
	return &AuditMiddleware{
		auditService: auditService,
	}
}

// AuditRequest audits HTTP requests with configurable sensitivity levels
func (m *AuditMiddleware) AuditRequest(sensitivityLevel string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			ctx := c.Request().Context()
			workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
			if !ok {
				// Skip auditing if no workspace context
				return err
			}

			userID, ok := common.GetUserIDFromContext(ctx)
			var userPtr *uuid.UUID
			if ok {
				userPtr = &userID
			}

			switch sensitivityLevel {
			case "high":
				m.auditHighSensitivity(c, workspaceID, userPtr, err)
			case "medium":
				m.auditMediumSensitivity(c, workspaceID, userPtr, err)
			default:
				// Low sensitivity - only mutations and errors
				m.auditLowSensitivity(c, workspaceID, userPtr, err)
			}

			return err
		}
	}
}

func (m *AuditMiddleware) auditLowSensitivity(c echo.Context, workspaceID uuid.UUID, userID *uuid.UUID, reqErr error) {
	method := c.Request().Method
	path := c.Path()

	if !m.shouldLogLowSensitivity(method, path, reqErr) {
		return
	}

	ctx := c.Request().Context()
	action := method + " " + path

	data := map[string]interface{}{
		"method":     method,
		"path":       path,
		"user_agent": c.Request().UserAgent(),
		"ip":         c.RealIP(),
		"timestamp":  time.Now().Format(time.RFC3339),
	}
	if reqErr != nil {
		data["error"] = reqErr.Error()
	}

	if err := m.auditService.LogActivity(ctx, workspaceID, "http_requests", path, action, userID, nil, data); err != nil {
		c.Logger().Errorf("Failed to log audit activity: %v", err)
	}
}

func (m *AuditMiddleware) auditMediumSensitivity(c echo.Context, workspaceID uuid.UUID, userID *uuid.UUID, reqErr error) {
	method := c.Request().Method
	path := c.Path()

	if m.shouldSkipLogging(method, path) {
		return
	}

	ctx := c.Request().Context()
	action := method + " " + path

	data := map[string]interface{}{
		"method":       method,
		"path":         path,
		"user_agent":   c.Request().UserAgent(),
		"ip":           c.RealIP(),
		"timestamp":    time.Now().Format(time.RFC3339),
		"query_params": c.QueryParams(),
	}
	if reqErr != nil {
		data["error"] = reqErr.Error()
	}

	if err := m.auditService.LogActivity(ctx, workspaceID, "http_requests", path, action, userID, nil, data); err != nil {
		c.Logger().Errorf("Failed to log audit activity: %v", err)
	}
}

func (m *AuditMiddleware) auditHighSensitivity(c echo.Context, workspaceID uuid.UUID, userID *uuid.UUID, reqErr error) {
	method := c.Request().Method
	path := c.Path()

	ctx := c.Request().Context()
	action := method + " " + path

	data := map[string]interface{}{
		"method":       method,
		"path":         path,
		"user_agent":   c.Request().UserAgent(),
		"ip":           c.RealIP(),
		"timestamp":    time.Now().Format(time.RFC3339),
		"query_params": c.QueryParams(),
		"headers":      m.sanitizeHeaders(c.Request().Header),
	}
	if reqErr != nil {
		data["error"] = reqErr.Error()
	}

	if err := m.auditService.LogActivity(ctx, workspaceID, "http_requests_sensitive", path, action, userID, nil, data); err != nil {
		c.Logger().Errorf("Failed to log audit activity: %v", err)
	}
}

func (m *AuditMiddleware) shouldLogLowSensitivity(method, path string, reqErr error) bool {
	if reqErr != nil {
		return true
	}
	if method == "POST" || method == "PUT" || method == "PATCH" || method == "DELETE" {
		return true
	}

	sensitivePaths := []string{"/auth/", "/users/", "/billing/", "/partners/"}
	for _, sensitive := range sensitivePaths {
		if strings.Contains(path, sensitive) {
			return true
		}
	}
	return false
}

func (m *AuditMiddleware) shouldSkipLogging(method, path string) bool {
	if method == "GET" {
		skipPrefixes := []string{
			"/health",
			"/swagger",
			"/favicon",
			"/robots.txt",
		}
		for _, prefix := range skipPrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}
	return false
}

func (m *AuditMiddleware) sanitizeHeaders(headers map[string][]string) map[string]interface{} {
	sanitized := make(map[string]interface{})
	for key, values := range headers {
		if m.isSensitiveHeader(key) {
			sanitized[key] = "[REDACTED]"
			continue
		}
		sanitized[key] = values
	}
	return sanitized
}

func (m *AuditMiddleware) isSensitiveHeader(header string) bool {
	sensitiveHeaders := []string{
		"authorization",
		"cookie",
		"x-api-key",
		"x-auth-token",
		"stripe-signature",
		"proxy-authorization",
	}
	lower := strings.ToLower(header)
	for _, sensitive := range sensitiveHeaders {
		if lower == sensitive {
			return true
		}
	}
	return false
}

// AuditEntityChange audits changes to business entities
func (m *AuditMiddleware) AuditEntityChange(ctx context.Context, workspaceID uuid.UUID, userID *uuid.UUID, tableName, recordID, action string, oldEntity, newEntity interface{}) error {
	var oldValues, newValues models.JSONB

	if oldEntity != nil {
		oldValues = m.normalizeEntity(oldEntity)
	}
	if newEntity != nil {
		newValues = m.normalizeEntity(newEntity)
	}

	return m.auditService.LogActivity(ctx, workspaceID, tableName, recordID, action, userID, oldValues, newValues)
}

// normalizeEntity converts an entity to JSONB, with explicit projections for
// the common cases and reflection for the rest. Sensitive fields never land
// in the trail.
func (m *AuditMiddleware) normalizeEntity(entity interface{}) models.JSONB {
	switch v := entity.(type) {
	case *models.User:
		return map[string]interface{}{
			"id":         v.ID,
			"email":      v.Email,
			"first_name": v.FirstName,
			"last_name":  v.LastName,
			"status":     v.Status,
		}

	case *models.Agent:
		return map[string]interface{}{
			"id":                v.ID,
			"name":              v.Name,
			"provider":          v.Provider,
			"provider_agent_id": v.ProviderAgentID,
			"status":            v.Status,
			"department_id":     v.DepartmentID,
		}

	case *models.Campaign:
		return map[string]interface{}{
			"id":         v.ID,
			"name":       v.Name,
			"agent_id":   v.AgentID,
			"status":     v.Status,
			"batch_size": v.BatchSize,
		}

	default:
		result := make(map[string]interface{})
		val := reflect.ValueOf(entity)
		if val.Kind() == reflect.Ptr {
			val = val.Elem()
		}
		if val.Kind() != reflect.Struct {
			return result
		}

		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			fieldVal := val.Field(i)

			if field.PkgPath != "" || m.isSensitiveField(field.Name) {
				continue
			}
			if fieldVal.CanInterface() {
				result[field.Name] = fieldVal.Interface()
			}
		}
		return result
	}
}

func (m *AuditMiddleware) isSensitiveField(fieldName string) bool {
	sensitiveFields := []string{
		"PasswordHash",
		"TokenHash",
		"Secret",
		"APIKey",
	}
	for _, sensitive := range sensitiveFields {
		if fieldName == sensitive {
			return true
		}
	}
	return false
}
