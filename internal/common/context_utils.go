package common

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	WorkspaceIDKey contextKey = "workspace_id"
	PartnerIDKey   contextKey = "partner_id"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// SendForbiddenError sends a forbidden error response
func SendForbiddenError(c echo.Context) error {
	return c.JSON(http.StatusForbidden, CreateErrorResponse("FORBIDDEN", "Insufficient permissions", nil))
}

// SendRateLimitedError sends a rate limited error response
func SendRateLimitedError(c echo.Context) error {
	return c.JSON(http.StatusTooManyRequests, CreateErrorResponse("RATE_LIMITED", "Too many requests", nil))
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetWorkspaceIDFromContext extracts the workspace ID from the request context
func GetWorkspaceIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	workspaceID, ok := ctx.Value(WorkspaceIDKey).(uuid.UUID)
	return workspaceID, ok
}

// GetPartnerIDFromContext extracts the partner ID from the request context
func GetPartnerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	partnerID, ok := ctx.Value(PartnerIDKey).(uuid.UUID)
	return partnerID, ok
}

// ValidateUUID validates a UUID path or body parameter
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid UUID: %v", fieldName, err)
	}

	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateOptionalString validates optional string fields
func ValidateOptionalString(value *string, fieldName string, maxLength int) error {
	if value != nil {
		if len(*value) > maxLength {
			return fmt.Errorf("%s cannot exceed %d characters", fieldName, maxLength)
		}
		*value = strings.TrimSpace(*value)
	}
	return nil
}

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// ValidatePhone validates E.164 phone numbers
func ValidatePhone(phone, fieldName string) error {
	if !e164Pattern.MatchString(strings.TrimSpace(phone)) {
		return fmt.Errorf("%s must be an E.164 phone number, e.g. +14155550123", fieldName)
	}
	return nil
}

// ValidateProvider validates voice-agent provider names
func ValidateProvider(provider string) error {
	if provider != "vapi" && provider != "retell" {
		return fmt.Errorf("provider must be either 'vapi' or 'retell'")
	}
	return nil
}

// ValidateCampaignStatus validates campaign status values
func ValidateCampaignStatus(status string) error {
	validStatuses := map[string]bool{
		"draft": true, "running": true, "paused": true,
		"completed": true, "cancelled": true,
	}
	if !validStatuses[status] {
		return fmt.Errorf("campaign status must be one of: draft, running, paused, completed, cancelled")
	}
	return nil
}

// ValidateLeadStatus validates lead status values
func ValidateLeadStatus(status string) error {
	validStatuses := map[string]bool{
		"new": true, "contacted": true, "qualified": true,
		"unqualified": true, "converted": true,
	}
	if !validStatuses[status] {
		return fmt.Errorf("lead status must be one of: new, contacted, qualified, unqualified, converted")
	}
	return nil
}

// ValidateBillingSource validates billing deduction sources
func ValidateBillingSource(source string) error {
	validSources := map[string]bool{
		"subscription": true, "credits": true, "postpaid": true, "partner": true,
	}
	if !validSources[source] {
		return fmt.Errorf("billing source must be one of: subscription, credits, postpaid, partner")
	}
	return nil
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = 50 // Default
	}
	if limit > 1000 {
		limit = 1000 // Maximum
	}

	if offset < 0 {
		offset = 0
	}
	if offset > 1000000 {
		return 0, 0, fmt.Errorf("offset cannot exceed 1,000,000")
	}

	return limit, offset, nil
}

// ValidateDateRange validates date ranges to prevent abuse
func ValidateDateRange(startDate, endDate time.Time) error {
	if endDate.Before(startDate) {
		return fmt.Errorf("end date cannot be before start date")
	}

	duration := endDate.Sub(startDate)
	maxDuration := time.Hour * 24 * 366
	if duration > maxDuration {
		return fmt.Errorf("date range cannot exceed one year")
	}

	return nil
}

// BilledMinutes converts a call duration to whole billed minutes, rounded up.
func BilledMinutes(durationSeconds int) int {
	if durationSeconds <= 0 {
		return 0
	}
	return (durationSeconds + 59) / 60
}
