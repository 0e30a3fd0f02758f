package handlers

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles authentication HTTP requests
type AuthHandlers struct {
	authService services.AuthService
	userService services.UserService
	rbacService services.RBACService
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService services.AuthService, userService services.UserService, rbacService services.RBACService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		userService: userService,
		rbacService: rbacService,
	}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /auth/login
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || req.Password == "" {
		return common.SendValidationError(c, "email", "Email and password are required")
	}

	tokens, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	return c.JSON(http.StatusOK, tokens)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandlers) Refresh(c echo.Context) error {
	var req models.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.RefreshToken == "" {
		return common.SendValidationError(c, "refresh_token", "Refresh token is required")
	}

	tokens, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}
	return c.JSON(http.StatusOK, tokens)
}

// Logout handles POST /auth/logout
func (h *AuthHandlers) Logout(c echo.Context) error {
	var req models.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.RefreshToken != "" {
		if err := h.authService.RevokeToken(c.Request().Context(), req.RefreshToken); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to revoke token")
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me handles GET /me and returns the authenticated user with their roles
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	user, err := h.userService.GetByID(ctx, workspaceID, userID)
	if err != nil {
		return common.SendNotFoundError(c, "User")
	}
	roles, err := h.rbacService.ListUserRoles(ctx, workspaceID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load roles")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":  user,
		"roles": roles,
	})
}
