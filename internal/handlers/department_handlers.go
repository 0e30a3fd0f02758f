package handlers

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// DepartmentHandlers handles department-related HTTP requests
type DepartmentHandlers struct {
	departmentService services.DepartmentService
}

// NewDepartmentHandlers creates a new department handlers instance
func NewDepartmentHandlers(departmentService services.DepartmentService) *DepartmentHandlers {
	return &DepartmentHandlers{departmentService: departmentService}
}

// CreateDepartmentRequest represents the department creation request payload
type CreateDepartmentRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

// CreateDepartment handles POST /departments
func (h *DepartmentHandlers) CreateDepartment(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CreateDepartmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", err.Error())
	}

	department := &models.Department{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Description: req.Description,
	}
	created, err := h.departmentService.Create(ctx, department)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create department")
	}
	return c.JSON(http.StatusCreated, created)
}

// GetDepartment handles GET /departments/:id
func (h *DepartmentHandlers) GetDepartment(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	department, err := h.departmentService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Department")
	}
	return c.JSON(http.StatusOK, department)
}

// UpdateDepartmentRequest represents the department update request payload
type UpdateDepartmentRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateDepartment handles PUT /departments/:id
func (h *DepartmentHandlers) UpdateDepartment(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateDepartmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	department, err := h.departmentService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "Department")
	}
	if req.Name != nil {
		department.Name = *req.Name
	}
	if req.Description != nil {
		department.Description = req.Description
	}

	if err := h.departmentService.Update(ctx, department); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update department")
	}
	return c.JSON(http.StatusOK, department)
}

// DeleteDepartment handles DELETE /departments/:id
func (h *DepartmentHandlers) DeleteDepartment(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.departmentService.Delete(ctx, workspaceID, id); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ListDepartments handles GET /departments
func (h *DepartmentHandlers) ListDepartments(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := paginationParams(c)
	departments, err := h.departmentService.List(ctx, workspaceID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list departments")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"departments": departments,
		"limit":       limit,
		"offset":      offset,
	})
}
