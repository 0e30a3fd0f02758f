package handlers

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// AgentHandlers handles AI agent HTTP requests
type AgentHandlers struct {
	agentService services.AgentService
}

// NewAgentHandlers creates a new agent handlers instance
func NewAgentHandlers(agentService services.AgentService) *AgentHandlers {
	return &AgentHandlers{agentService: agentService}
}

// CreateAgentRequest represents the agent creation request payload
type CreateAgentRequest struct {
	Name               string  `json:"name" validate:"required"`
	Provider           string  `json:"provider" validate:"required"`
	DepartmentID       *string `json:"department_id"`
	Voice              string  `json:"voice"`
	Language           string  `json:"language"`
	SystemPrompt       string  `json:"system_prompt"`
	FirstMessage       string  `json:"first_message"`
	MaxDurationSeconds int     `json:"max_duration_seconds"`
}

// CreateAgent handles POST /agents. The agent is created locally and synced
// to its voice provider in one step.
func (h *AgentHandlers) CreateAgent(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CreateAgentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", err.Error())
	}
	if req.Provider != models.ProviderVapi && req.Provider != models.ProviderRetell {
		return common.SendValidationError(c, "provider", "provider must be vapi or retell")
	}

	agent := &models.Agent{
		WorkspaceID:        workspaceID,
		Name:               req.Name,
		Provider:           req.Provider,
		Voice:              req.Voice,
		Language:           req.Language,
		SystemPrompt:       req.SystemPrompt,
		FirstMessage:       req.FirstMessage,
		MaxDurationSeconds: req.MaxDurationSeconds,
	}
	if req.DepartmentID != nil {
		departmentID, err := common.ValidateUUID(*req.DepartmentID, "department_id")
		if err != nil {
			return common.SendValidationError(c, "department_id", err.Error())
		}
		agent.DepartmentID = &departmentID
	}

	created, err := h.agentService.Create(ctx, agent)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

// GetAgent handles GET /agents/:id
func (h *AgentHandlers) GetAgent(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	agent, err := h.agentService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Agent")
	}
	return c.JSON(http.StatusOK, agent)
}

// UpdateAgentRequest represents the agent update request payload
type UpdateAgentRequest struct {
	Name               *string `json:"name"`
	DepartmentID       *string `json:"department_id"`
	Voice              *string `json:"voice"`
	Language           *string `json:"language"`
	SystemPrompt       *string `json:"system_prompt"`
	FirstMessage       *string `json:"first_message"`
	MaxDurationSeconds *int    `json:"max_duration_seconds"`
	Status             *string `json:"status"`
}

// UpdateAgent handles PUT /agents/:id. Changes propagate to the provider.
func (h *AgentHandlers) UpdateAgent(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateAgentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	agent, err := h.agentService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Agent")
	}
	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.DepartmentID != nil {
		departmentID, err := common.ValidateUUID(*req.DepartmentID, "department_id")
		if err != nil {
			return common.SendValidationError(c, "department_id", err.Error())
		}
		agent.DepartmentID = &departmentID
	}
	if req.Voice != nil {
		agent.Voice = *req.Voice
	}
	if req.Language != nil {
		agent.Language = *req.Language
	}
	if req.SystemPrompt != nil {
		agent.SystemPrompt = *req.SystemPrompt
	}
	if req.FirstMessage != nil {
		agent.FirstMessage = *req.FirstMessage
	}
	if req.MaxDurationSeconds != nil {
		agent.MaxDurationSeconds = *req.MaxDurationSeconds
	}
	if req.Status != nil {
		agent.Status = *req.Status
	}

	if err := h.agentService.Update(ctx, agent); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, agent)
}

// DeleteAgent handles DELETE /agents/:id
func (h *AgentHandlers) DeleteAgent(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.agentService.Delete(ctx, workspaceID, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete agent")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAgents handles GET /agents with optional department filtering
func (h *AgentHandlers) ListAgents(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := paginationParams(c)

	var (
		agents []*models.Agent
		err    error
	)
	if deptStr := c.QueryParam("department_id"); deptStr != "" {
		departmentID, vErr := common.ValidateUUID(deptStr, "department_id")
		if vErr != nil {
			return common.SendValidationError(c, "department_id", vErr.Error())
		}
		agents, err = h.agentService.ListByDepartment(ctx, workspaceID, departmentID, limit, offset)
	} else {
		agents, err = h.agentService.List(ctx, workspaceID, limit, offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list agents")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": agents,
		"limit":  limit,
		"offset": offset,
	})
}

// SearchAgents handles GET /agents/search
func (h *AgentHandlers) SearchAgents(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	query := c.QueryParam("q")
	if query == "" {
		return common.SendValidationError(c, "q", "search query is required")
	}
	limit, _ := paginationParams(c)

	hits, err := h.agentService.Search(ctx, workspaceID, query, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Search failed")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": hits,
		"query":  query,
	})
}

// ResyncAgent handles POST /agents/:id/resync. It pushes the stored config
// back to the voice provider, recreating the assistant if it went missing.
func (h *AgentHandlers) ResyncAgent(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.agentService.Resync(ctx, workspaceID, id); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "synced"})
}
