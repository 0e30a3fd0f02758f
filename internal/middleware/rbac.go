package middleware

import (
	"net/http"

	"genius365/internal/common"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct {
	rbacService services.RBACService
}

func NewRBACMiddleware(rbacService services.RBACService) *RBACMiddleware {
	return &RBACMiddleware{
		rbacService: rbacService,
	}
}

func (m *RBACMiddleware) RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			workspaceID, ok := common.GetWorkspaceIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Workspace not found")
			}

			hasPermission, err := m.rbacService.HasPermission(ctx, workspaceID, userID, permission)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Error checking permission")
			}
			if !hasPermission {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}

			return next(c)
		}
	}
}
