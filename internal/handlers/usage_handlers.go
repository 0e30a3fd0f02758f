package handlers

import (
	"net/http"
	"time"

	"genius365/internal/analytics"
	"genius365/internal/common"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// UsageHandlers handles usage reporting HTTP requests
type UsageHandlers struct {
	usageService services.UsageService
	analyticsSvc *analytics.AnalyticsService
}

// NewUsageHandlers creates a new usage handlers instance
func NewUsageHandlers(usageService services.UsageService, analyticsSvc *analytics.AnalyticsService) *UsageHandlers {
	return &UsageHandlers{
		usageService: usageService,
		analyticsSvc: analyticsSvc,
	}
}

// usagePeriod reads the from/to query window, defaulting to the current
// month to date.
func usagePeriod(c echo.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now

	if fromStr := c.QueryParam("from"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if toStr := c.QueryParam("to"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}
	return from, to, nil
}

// GetUsageSummary handles GET /usage/summary
func (h *UsageHandlers) GetUsageSummary(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	from, to, err := usagePeriod(c)
	if err != nil {
		return common.SendValidationError(c, "period", "from/to must be RFC3339 timestamps")
	}

	summary, err := h.usageService.GetSummary(ctx, workspaceID, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to summarize usage")
	}
	return c.JSON(http.StatusOK, summary)
}

// ListUsageRecords handles GET /usage/records
func (h *UsageHandlers) ListUsageRecords(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	from, to, err := usagePeriod(c)
	if err != nil {
		return common.SendValidationError(c, "period", "from/to must be RFC3339 timestamps")
	}

	limit, offset := paginationParams(c)
	records, err := h.usageService.ListRecords(ctx, workspaceID, from, to, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list usage records")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"records": records,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetWorkspaceStats handles GET /usage/stats, the cached dashboard aggregate
func (h *UsageHandlers) GetWorkspaceStats(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	stats, err := h.analyticsSvc.GetWorkspaceCallStats(ctx, workspaceID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load workspace stats")
	}
	return c.JSON(http.StatusOK, stats)
}
