package handlers

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// UserHandlers handles user-related HTTP requests
type UserHandlers struct {
	userService services.UserService
	rbacService services.RBACService
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(userService services.UserService, rbacService services.RBACService) *UserHandlers {
	return &UserHandlers{
		userService: userService,
		rbacService: rbacService,
	}
}

// CreateUserRequest represents the user creation request payload
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// CreateUser handles POST /users
func (h *UserHandlers) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Email, "email"); err != nil {
		return common.SendValidationError(c, "email", err.Error())
	}

	user := &models.User{
		WorkspaceID: workspaceID,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	}
	created, err := h.userService.Create(ctx, user, req.Password, req.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

// GetUser handles GET /users/:id
func (h *UserHandlers) GetUser(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	user, err := h.userService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "User")
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUserRequest represents the user update request payload
type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Status    *string `json:"status"`
}

// UpdateUser handles PUT /users/:id
func (h *UserHandlers) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	user, err := h.userService.GetByID(ctx, workspaceID, id)
	if err != nil {
		return common.SendNotFoundError(c, "User")
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := h.userService.Update(ctx, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user")
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandlers) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.userService.Delete(ctx, workspaceID, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete user")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListUsers handles GET /users
func (h *UserHandlers) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := paginationParams(c)
	users, err := h.userService.List(ctx, workspaceID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list users")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users":  users,
		"limit":  limit,
		"offset": offset,
	})
}

// AssignRoleRequest represents the role assignment payload
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AssignRole handles POST /users/:id/roles
func (h *UserHandlers) AssignRole(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req AssignRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Role, "role"); err != nil {
		return common.SendValidationError(c, "role", err.Error())
	}

	if err := h.rbacService.AssignRole(ctx, workspaceID, id, req.Role); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "assigned"})
}

// RevokeRole handles DELETE /users/:id/roles/:role
func (h *UserHandlers) RevokeRole(c echo.Context) error {
	ctx := c.Request().Context()
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.rbacService.RevokeRole(ctx, workspaceID, id, c.Param("role")); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
