package models

import (
	"time"

	"github.com/google/uuid"
)

// Supported voice-agent providers.
const (
	ProviderVapi   = "vapi"
	ProviderRetell = "retell"
)

// Agent is the configuration record behind a voice-agent instance on an
// external provider. ProviderAgentID is nil until the first successful sync.
type Agent struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	WorkspaceID        uuid.UUID  `json:"workspace_id" db:"workspace_id"`
	DepartmentID       *uuid.UUID `json:"department_id" db:"department_id"`
	Name               string     `json:"name" db:"name"`
	Provider           string     `json:"provider" db:"provider"`
	ProviderAgentID    *string    `json:"provider_agent_id" db:"provider_agent_id"`
	Voice              string     `json:"voice" db:"voice"`
	Language           string     `json:"language" db:"language"`
	SystemPrompt       string     `json:"system_prompt" db:"system_prompt"`
	FirstMessage       string     `json:"first_message" db:"first_message"`
	MaxDurationSeconds int        `json:"max_duration_seconds" db:"max_duration_seconds"`
	Status             string     `json:"status" db:"status"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at" db:"deleted_at"`
}
