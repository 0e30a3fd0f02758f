package handlers

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// WorkspaceHandlers handles workspace-related HTTP requests
type WorkspaceHandlers struct {
	workspaceService services.WorkspaceService
	rbacService      services.RBACService
}

// NewWorkspaceHandlers creates a new workspace handlers instance
func NewWorkspaceHandlers(workspaceService services.WorkspaceService, rbacService services.RBACService) *WorkspaceHandlers {
	return &WorkspaceHandlers{
		workspaceService: workspaceService,
		rbacService:      rbacService,
	}
}

// CreateWorkspaceRequest represents the workspace creation request payload
type CreateWorkspaceRequest struct {
	PartnerID    string `json:"partner_id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Slug         string `json:"slug" validate:"required"`
	BillingEmail string `json:"billing_email"`
}

// CreateWorkspace handles POST /workspaces. The new workspace gets a Stripe
// customer, a credit wallet and the default role set.
func (h *WorkspaceHandlers) CreateWorkspace(c echo.Context) error {
	var req CreateWorkspaceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	partnerID, err := common.ValidateUUID(req.PartnerID, "partner_id")
	if err != nil {
		return common.SendValidationError(c, "partner_id", err.Error())
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", err.Error())
	}
	if err := common.ValidateRequiredString(req.Slug, "slug"); err != nil {
		return common.SendValidationError(c, "slug", err.Error())
	}

	ctx := c.Request().Context()
	workspace := &models.Workspace{
		PartnerID: partnerID,
		Name:      req.Name,
		Slug:      req.Slug,
	}
	created, err := h.workspaceService.Create(ctx, workspace, req.BillingEmail)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err := h.rbacService.SeedWorkspaceRoles(ctx, created.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Workspace created but role seeding failed")
	}
	return c.JSON(http.StatusCreated, created)
}

// GetWorkspace handles GET /workspaces/:id
func (h *WorkspaceHandlers) GetWorkspace(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	workspace, err := h.workspaceService.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendNotFoundError(c, "Workspace")
	}
	return c.JSON(http.StatusOK, workspace)
}

// UpdateWorkspaceRequest represents the workspace update request payload
type UpdateWorkspaceRequest struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

// UpdateWorkspace handles PUT /workspaces/:id
func (h *WorkspaceHandlers) UpdateWorkspace(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateWorkspaceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	ctx := c.Request().Context()
	workspace, err := h.workspaceService.GetByID(ctx, id)
	if err != nil {
		return common.SendNotFoundError(c, "Workspace")
	}

	if req.Name != nil {
		workspace.Name = *req.Name
	}
	if req.Status != nil {
		workspace.Status = *req.Status
	}

	if err := h.workspaceService.Update(ctx, workspace); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update workspace")
	}
	return c.JSON(http.StatusOK, workspace)
}

// DeleteWorkspace handles DELETE /workspaces/:id
func (h *WorkspaceHandlers) DeleteWorkspace(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.workspaceService.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete workspace")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListWorkspaces handles GET /partners/:id/workspaces
func (h *WorkspaceHandlers) ListWorkspaces(c echo.Context) error {
	partnerID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	limit, offset := paginationParams(c)
	workspaces, err := h.workspaceService.ListByPartner(c.Request().Context(), partnerID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list workspaces")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workspaces": workspaces,
		"limit":      limit,
		"offset":     offset,
	})
}
