package models

import "time"

// RefreshToken is the stored (hashed) half of a token pair.
type RefreshToken struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Token     string     `json:"-" db:"token"` // Never return in JSON
	TokenHash string     `json:"-" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// TokenResponse is what login/refresh return to clients.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	WorkspaceID  string    `json:"workspace_id"`
	TokenID      string    `json:"token_id"`
	IssuedAt     time.Time `json:"issued_at"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type"`
}
