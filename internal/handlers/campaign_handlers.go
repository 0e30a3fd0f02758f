package handlers

import (
	"context"
	"net/http"

	"genius365/internal/common"
	"genius365/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CampaignHandlers handles batch call campaign HTTP requests
type CampaignHandlers struct {
	campaignService services.CampaignService
}

// NewCampaignHandlers creates a new campaign handlers instance
func NewCampaignHandlers(campaignService services.CampaignService) *CampaignHandlers {
	return &CampaignHandlers{campaignService: campaignService}
}

// CreateCampaignRequest represents the campaign creation request payload
type CreateCampaignRequest struct {
	Name      string   `json:"name" validate:"required"`
	AgentID   string   `json:"agent_id" validate:"required"`
	BatchSize int      `json:"batch_size"`
	LeadIDs   []string `json:"lead_ids" validate:"required"`
}

// CreateCampaign handles POST /campaigns. The campaign starts in draft with
// one recipient row per lead.
func (h *CampaignHandlers) CreateCampaign(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", err.Error())
	}
	agentID, err := common.ValidateUUID(req.AgentID, "agent_id")
	if err != nil {
		return common.SendValidationError(c, "agent_id", err.Error())
	}
	if len(req.LeadIDs) == 0 {
		return common.SendValidationError(c, "lead_ids", "at least one lead is required")
	}

	leadIDs := make([]uuid.UUID, 0, len(req.LeadIDs))
	for _, idStr := range req.LeadIDs {
		leadID, err := common.ValidateUUID(idStr, "lead_ids")
		if err != nil {
			return common.SendValidationError(c, "lead_ids", err.Error())
		}
		leadIDs = append(leadIDs, leadID)
	}

	campaign, err := h.campaignService.Create(ctx, workspaceID, agentID, req.Name, req.BatchSize, leadIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, campaign)
}

// GetCampaign handles GET /campaigns/:id
func (h *CampaignHandlers) GetCampaign(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	campaign, err := h.campaignService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Campaign")
	}
	return c.JSON(http.StatusOK, campaign)
}

// ListCampaigns handles GET /campaigns with optional status filtering
func (h *CampaignHandlers) ListCampaigns(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := paginationParams(c)
	campaigns, err := h.campaignService.List(ctx, workspaceID, c.QueryParam("status"), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list campaigns")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"campaigns": campaigns,
		"limit":     limit,
		"offset":    offset,
	})
}

// StartCampaign handles POST /campaigns/:id/start
func (h *CampaignHandlers) StartCampaign(c echo.Context) error {
	return h.transition(c, h.campaignService.Start, "started")
}

// PauseCampaign handles POST /campaigns/:id/pause
func (h *CampaignHandlers) PauseCampaign(c echo.Context) error {
	return h.transition(c, h.campaignService.Pause, "paused")
}

// ResumeCampaign handles POST /campaigns/:id/resume
func (h *CampaignHandlers) ResumeCampaign(c echo.Context) error {
	return h.transition(c, h.campaignService.Resume, "resumed")
}

// CancelCampaign handles POST /campaigns/:id/cancel
func (h *CampaignHandlers) CancelCampaign(c echo.Context) error {
	return h.transition(c, h.campaignService.Cancel, "cancelled")
}

func (h *CampaignHandlers) transition(c echo.Context, op func(ctx context.Context, workspaceID, id uuid.UUID) error, status string) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := op(ctx, workspaceID, id); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}

// GetCampaignProgress handles GET /campaigns/:id/progress
func (h *CampaignHandlers) GetCampaignProgress(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	progress, err := h.campaignService.GetProgress(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Campaign")
	}
	return c.JSON(http.StatusOK, progress)
}

// ListCampaignRecipients handles GET /campaigns/:id/recipients
func (h *CampaignHandlers) ListCampaignRecipients(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	limit, offset := paginationParams(c)
	recipients, err := h.campaignService.ListRecipients(ctx, workspaceID, id, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list recipients")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"recipients": recipients,
		"limit":      limit,
		"offset":     offset,
	})
}
