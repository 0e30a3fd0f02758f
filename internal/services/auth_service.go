package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"genius365/internal/caching"
	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService issues and validates JWT access tokens plus Redis-backed
// refresh tokens.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.TokenResponse, error)
	GenerateTokens(ctx context.Context, userID, workspaceID uuid.UUID) (*models.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	RevokeToken(ctx context.Context, refreshToken string) error
	HashPassword(password string) string
	VerifyPassword(password, hash string) bool
}

// TokenClaims are the JWT claims the middleware reads.
type TokenClaims struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	TokenID     string `json:"token_id"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo   repositories.UserRepository
	cacheSvc   caching.CacheService
	jwtSecret  []byte
	tokenTTL   int
	refreshTTL int
}

func NewAuthService(userRepo repositories.UserRepository, cacheSvc caching.CacheService, jwtSecret string, tokenTTLSeconds, refreshTTLSeconds int) AuthService {
	return &authService{
		userRepo:   userRepo,
		cacheSvc:   cacheSvc,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTLSeconds,
		refreshTTL: refreshTTLSeconds,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if user.Status != "active" {
		return nil, fmt.Errorf("account is not active")
	}
	if !s.VerifyPassword(password, user.PasswordHash) {
		return nil, fmt.Errorf("invalid credentials")
	}
	return s.GenerateTokens(ctx, user.ID, user.WorkspaceID)
}

func (s *authService) GenerateTokens(ctx context.Context, userID, workspaceID uuid.UUID) (*models.TokenResponse, error) {
	now := time.Now()
	tokenID := uuid.NewString()

	claims := TokenClaims{
		UserID:      userID.String(),
		WorkspaceID: workspaceID.String(),
		TokenID:     tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "genius365-auth",
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{"genius365-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.tokenTTL) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %v", err)
	}

	refreshToken := s.generateSecureToken()
	refreshTokenHash := s.hashToken(refreshToken)

	refreshTokenData := fmt.Sprintf("%s:%s:%d", userID.String(), workspaceID.String(), now.Unix()+int64(s.refreshTTL))
	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	if err := s.cacheSvc.SetString(ctx, cacheKey, refreshTokenData, time.Duration(s.refreshTTL)*time.Second); err != nil {
		log.Printf("Failed to store refresh token: %v", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessTokenString,
		TokenType:    "Bearer",
		ExpiresIn:    s.tokenTTL,
		RefreshToken: refreshToken,
		UserID:       userID.String(),
		WorkspaceID:  workspaceID.String(),
		TokenID:      tokenID,
		IssuedAt:     now,
	}, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	refreshTokenHash := s.hashToken(refreshToken)
	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	tokenData, err := s.cacheSvc.GetString(ctx, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}

	parts := strings.Split(tokenData, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid token data")
	}
	userIDStr, workspaceIDStr, expiryStr := parts[0], parts[1], parts[2]
	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil || time.Now().Unix() > expiry {
		return nil, fmt.Errorf("refresh token expired")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid token data")
	}
	workspaceID, err := uuid.Parse(workspaceIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid token data")
	}

	// Rotate: the old refresh token dies with this use.
	if err := s.cacheSvc.Delete(ctx, cacheKey); err != nil {
		log.Printf("Failed to revoke used refresh token: %v", err)
	}
	return s.GenerateTokens(ctx, userID, workspaceID)
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v", err)
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func (s *authService) RevokeToken(ctx context.Context, refreshToken string) error {
	refreshTokenHash := s.hashToken(refreshToken)
	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	return s.cacheSvc.Delete(ctx, cacheKey)
}

func (s *authService) generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func (s *authService) hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// HashPassword stores a salted SHA-256 digest as salt$digest.
func (s *authService) HashPassword(password string) string {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		salt = []byte(uuid.NewString())[:16]
	}
	saltHex := hex.EncodeToString(salt)
	sum := sha256.Sum256([]byte(saltHex + password))
	return saltHex + "$" + hex.EncodeToString(sum[:])
}

func (s *authService) VerifyPassword(password, hash string) bool {
	parts := strings.SplitN(hash, "$", 2)
	if len(parts) != 2 {
		return false
	}
	sum := sha256.Sum256([]byte(parts[0] + password))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(parts[1])) == 1
}
