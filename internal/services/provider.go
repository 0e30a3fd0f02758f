package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"genius365/internal/models"
)

// AssistantParams is the provider-neutral shape of an agent pushed to VAPI or
// Retell. The concrete clients translate it to their own wire format.
type AssistantParams struct {
	Name               string
	Voice              string
	Language           string
	SystemPrompt       string
	FirstMessage       string
	MaxDurationSeconds int
	ServerURL          string
}

type StartCallParams struct {
	ProviderAgentID string
	ToNumber        string
	Metadata        map[string]string
}

type ProviderCall struct {
	ID              string
	Status          string
	DurationSeconds int
	CostCents       int
	RecordingURL    *string
	Transcript      *string
}

// VoiceProvider abstracts the telephony vendors so agent sync and campaign
// dispatch do not care which one an agent lives on.
type VoiceProvider interface {
	Name() string
	CreateAssistant(ctx context.Context, params *AssistantParams) (string, error)
	UpdateAssistant(ctx context.Context, providerAgentID string, params *AssistantParams) error
	DeleteAssistant(ctx context.Context, providerAgentID string) error
	StartCall(ctx context.Context, params *StartCallParams) (*ProviderCall, error)
	GetCall(ctx context.Context, providerCallID string) (*ProviderCall, error)
}

// ProviderRegistry resolves a VoiceProvider from an agent's provider column.
type ProviderRegistry struct {
	providers map[string]VoiceProvider
}

func NewProviderRegistry(providers ...VoiceProvider) *ProviderRegistry {
	registry := &ProviderRegistry{providers: make(map[string]VoiceProvider)}
	for _, p := range providers {
		registry.providers[p.Name()] = p
	}
	return registry
}

func (r *ProviderRegistry) Get(name string) (VoiceProvider, error) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown voice provider %q", name)
	}
	return provider, nil
}

func (r *ProviderRegistry) ForAgent(agent *models.Agent) (VoiceProvider, error) {
	return r.Get(agent.Provider)
}

// withRetry runs fn up to maxAttempts times with exponential backoff. Context
// cancellation stops the loop between attempts.
func withRetry(ctx context.Context, maxAttempts int, baseDelay time.Duration, op string, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		delay := baseDelay * time.Duration(1<<(attempt-1))
		log.Printf("%s failed (attempt %d/%d), retrying in %s: %v", op, attempt, maxAttempts, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, maxAttempts, err)
}
