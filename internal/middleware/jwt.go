package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"genius365/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTCustomClaims mirrors the claims the auth service signs into access
// tokens.
type JWTCustomClaims struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	TokenID     string `json:"token_id"`
	jwt.RegisteredClaims
}

// NewExternalJWKS fetches the signing keys of an external identity provider.
// Returns nil when no JWKS URL is configured; local HS256 tokens still work.
func NewExternalJWKS(jwksURL string) *keyfunc.JWKS {
	if jwksURL == "" {
		return nil
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		log.Printf("Failed to load JWKS from %s: %v", jwksURL, err)
		return nil
	}
	return jwks
}

// NewEchoJWTConfig builds the echo-jwt config used on protected route groups.
// HS256 tokens verify against the local secret; RS256/ES256 tokens from an
// external identity provider verify against its JWKS when one is configured.
// On success the user and workspace IDs land in the request context.
func NewEchoJWTConfig(jwtSecret string, jwks *keyfunc.JWKS) echojwt.Config {
	return echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(JWTCustomClaims)
		},
		KeyFunc: func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
				return []byte(jwtSecret), nil
			}
			if jwks != nil {
				return jwks.Keyfunc(token)
			}
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(*JWTCustomClaims)
			if !ok {
				return
			}
			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				return
			}
			workspaceID, err := uuid.Parse(claims.WorkspaceID)
			if err != nil {
				return
			}
			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
			ctx = context.WithValue(ctx, common.WorkspaceIDKey, workspaceID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		},
	}
}

// GetWorkspaceIDFromContext extracts the workspace ID from the request context.
func GetWorkspaceIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return common.GetWorkspaceIDFromContext(ctx)
}
