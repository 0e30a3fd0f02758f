package handlers

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// LeadHandlers handles lead-related HTTP requests
type LeadHandlers struct {
	leadService services.LeadService
}

// NewLeadHandlers creates a new lead handlers instance
func NewLeadHandlers(leadService services.LeadService) *LeadHandlers {
	return &LeadHandlers{leadService: leadService}
}

// CreateLeadRequest represents the lead creation request payload
type CreateLeadRequest struct {
	Name   string  `json:"name" validate:"required"`
	Phone  string  `json:"phone" validate:"required"`
	Email  *string `json:"email"`
	Source string  `json:"source"`
	Notes  *string `json:"notes"`
}

// CreateLead handles POST /leads
func (h *LeadHandlers) CreateLead(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", err.Error())
	}
	if err := common.ValidatePhone(req.Phone, "phone"); err != nil {
		return common.SendValidationError(c, "phone", err.Error())
	}

	lead := &models.Lead{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		Source:      req.Source,
		Notes:       req.Notes,
	}
	created, err := h.leadService.Create(ctx, lead)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

// GetLead handles GET /leads/:id
func (h *LeadHandlers) GetLead(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	lead, err := h.leadService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Lead")
	}
	return c.JSON(http.StatusOK, lead)
}

// UpdateLeadRequest represents the lead update request payload
type UpdateLeadRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Email  *string `json:"email"`
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// UpdateLead handles PUT /leads/:id
func (h *LeadHandlers) UpdateLead(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateLeadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	lead, err := h.leadService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Lead")
	}
	if req.Name != nil {
		lead.Name = *req.Name
	}
	if req.Phone != nil {
		if err := common.ValidatePhone(*req.Phone, "phone"); err != nil {
			return common.SendValidationError(c, "phone", err.Error())
		}
		lead.Phone = *req.Phone
	}
	if req.Email != nil {
		lead.Email = req.Email
	}
	if req.Status != nil {
		lead.Status = *req.Status
	}
	if req.Notes != nil {
		lead.Notes = req.Notes
	}

	if err := h.leadService.Update(ctx, lead); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update lead")
	}
	return c.JSON(http.StatusOK, lead)
}

// DeleteLead handles DELETE /leads/:id
func (h *LeadHandlers) DeleteLead(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.leadService.Delete(ctx, workspaceID, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete lead")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListLeads handles GET /leads with optional status filtering
func (h *LeadHandlers) ListLeads(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := paginationParams(c)
	status := c.QueryParam("status")

	leads, err := h.leadService.List(ctx, workspaceID, status, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list leads")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"leads":  leads,
		"limit":  limit,
		"offset": offset,
	})
}

// SearchLeads handles GET /leads/search
func (h *LeadHandlers) SearchLeads(c echo.Context) error {
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

	hits, err := h.leadService.Search(ctx, workspaceID, query, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Search failed")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"leads": hits,
		"query": query,
	})
}
