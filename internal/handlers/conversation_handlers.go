package handlers

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ConversationHandlers handles call log HTTP requests
type ConversationHandlers struct {
	conversationService services.ConversationService
}

// NewConversationHandlers creates a new conversation handlers instance
func NewConversationHandlers(conversationService services.ConversationService) *ConversationHandlers {
	return &ConversationHandlers{conversationService: conversationService}
}

// StartCallRequest represents the outbound call request payload
type StartCallRequest struct {
	AgentID  string  `json:"agent_id" validate:"required"`
	ToNumber string  `json:"to_number" validate:"required"`
	LeadID   *string `json:"lead_id"`
}

// StartCall handles POST /calls. It dials the number through the agent's
// voice provider and opens a call log entry.
func (h *ConversationHandlers) StartCall(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req StartCallRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	agentID, err := common.ValidateUUID(req.AgentID, "agent_id")
	if err != nil {
		return common.SendValidationError(c, "agent_id", err.Error())
	}
	if err := common.ValidatePhone(req.ToNumber, "to_number"); err != nil {
		return common.SendValidationError(c, "to_number", err.Error())
	}

	var leadID *uuid.UUID
	if req.LeadID != nil {
		id, err := common.ValidateUUID(*req.LeadID, "lead_id")
		if err != nil {
			return common.SendValidationError(c, "lead_id", err.Error())
		}
		leadID = &id
	}

	conversation, err := h.conversationService.StartOutboundCall(ctx, workspaceID, agentID, leadID, nil, req.ToNumber)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, conversation)
}

// GetConversation handles GET /conversations/:id
func (h *ConversationHandlers) GetConversation(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	conversation, err := h.conversationService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Conversation")
	}
	return c.JSON(http.StatusOK, conversation)
}

// ListConversations handles GET /conversations with optional status and
// campaign filtering
func (h *ConversationHandlers) ListConversations(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := paginationParams(c)

	if campaignStr := c.QueryParam("campaign_id"); campaignStr != "" {
		campaignID, err := common.ValidateUUID(campaignStr, "campaign_id")
		if err != nil {
			return common.SendValidationError(c, "campaign_id", err.Error())
		}
		conversations, err := h.conversationService.ListByCampaign(ctx, workspaceID, campaignID, limit, offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list conversations")
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"conversations": conversations,
			"limit":         limit,
			"offset":        offset,
		})
	}

	conversations, err := h.conversationService.List(ctx, workspaceID, c.QueryParam("status"), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list conversations")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": conversations,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetRecordingLink handles GET /conversations/:id/recording. The response
// carries a short-lived presigned URL into the recording archive.
func (h *ConversationHandlers) GetRecordingLink(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	url, err := h.conversationService.RecordingLink(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Recording")
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
