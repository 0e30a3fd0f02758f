package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

// CallEvent is the normalized end-of-call payload extracted from a provider
// webhook.
type CallEvent struct {
	Provider        string
	ProviderCallID  string
	Status          string
	DurationSeconds int
	CostCents       int
	RecordingURL    *string
	Transcript      *string
}

// ConversationService owns the call log lifecycle from dial to settlement.
type ConversationService interface {
	StartOutboundCall(ctx context.Context, workspaceID, agentID uuid.UUID, leadID, campaignID *uuid.UUID, toNumber string) (*models.Conversation, error)
	ApplyCallStarted(ctx context.Context, provider, providerCallID string) error
	ApplyCallEnded(ctx context.Context, event *CallEvent) (*models.Conversation, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Conversation, error)
	List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Conversation, error)
	ListByCampaign(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.Conversation, error)
	RecordingLink(ctx context.Context, workspaceID, id uuid.UUID) (string, error)
	ReapStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type conversationService struct {
	conversationRepo repositories.ConversationRepository
	agentRepo        repositories.AgentRepository
	providers        *ProviderRegistry
	billingSvc       BillingService
	recordingSvc     RecordingService
}

func NewConversationService(
	conversationRepo repositories.ConversationRepository,
	agentRepo repositories.AgentRepository,
	providers *ProviderRegistry,
	billingSvc BillingService,
	recordingSvc RecordingService,
) ConversationService {
	return &conversationService{
		conversationRepo: conversationRepo,
		agentRepo:        agentRepo,
		providers:        providers,
		billingSvc:       billingSvc,
		recordingSvc:     recordingSvc,
	}
}

func (s *conversationService) StartOutboundCall(ctx context.Context, workspaceID, agentID uuid.UUID, leadID, campaignID *uuid.UUID, toNumber string) (*models.Conversation, error) {
	agent, err := s.agentRepo.GetByID(ctx, workspaceID, agentID)
	if err != nil {
		return nil, fmt.Errorf("agent not found: %w", err)
	}
	if agent.Status != "active" {
		return nil, fmt.Errorf("agent %s is not active", agentID)
	}
	if agent.ProviderAgentID == nil {
		return nil, fmt.Errorf("agent %s is not synced to its provider", agentID)
	}

	provider, err := s.providers.ForAgent(agent)
	if err != nil {
		return nil, err
	}

	conversationID := uuid.New()
	call, err := provider.StartCall(ctx, &StartCallParams{
		ProviderAgentID: *agent.ProviderAgentID,
		ToNumber:        toNumber,
		Metadata: map[string]string{
			"conversation_id": conversationID.String(),
			"workspace_id":    workspaceID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start call: %w", err)
	}

	conversation := &models.Conversation{
		ID:             conversationID,
		WorkspaceID:    workspaceID,
		AgentID:        agentID,
		LeadID:         leadID,
		CampaignID:     campaignID,
		Provider:       agent.Provider,
		ProviderCallID: call.ID,
		Direction:      "outbound",
		Status:         models.ConversationQueued,
	}
	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to store conversation: %w", err)
	}
	return conversation, nil
}

func (s *conversationService) ApplyCallStarted(ctx context.Context, provider, providerCallID string) error {
	conversation, err := s.conversationRepo.GetByProviderCallID(ctx, provider, providerCallID)
	if err != nil {
		return fmt.Errorf("unknown call %s/%s: %w", provider, providerCallID, err)
	}
	if conversation.Status != models.ConversationQueued {
		return nil
	}
	now := time.Now()
	conversation.Status = models.ConversationInProgress
	conversation.StartedAt = &now
	return s.conversationRepo.Update(ctx, conversation)
}

// ApplyCallEnded finalizes the call log, archives the recording and settles
// billing. Settlement failures do not fail the webhook; the sweep retries.
func (s *conversationService) ApplyCallEnded(ctx context.Context, event *CallEvent) (*models.Conversation, error) {
	conversation, err := s.conversationRepo.GetByProviderCallID(ctx, event.Provider, event.ProviderCallID)
	if err != nil {
		return nil, fmt.Errorf("unknown call %s/%s: %w", event.Provider, event.ProviderCallID, err)
	}
	if conversation.Status == models.ConversationCompleted || conversation.Status == models.ConversationFailed {
		return conversation, nil
	}

	now := time.Now()
	conversation.EndedAt = &now
	conversation.DurationSeconds = event.DurationSeconds
	conversation.ProviderCostCents = event.CostCents
	conversation.Transcript = event.Transcript
	if event.Status == "failed" || event.Status == "error" {
		conversation.Status = models.ConversationFailed
	} else {
		conversation.Status = models.ConversationCompleted
	}

	if event.RecordingURL != nil && s.recordingSvc != nil {
		object, err := s.recordingSvc.Archive(ctx, conversation.WorkspaceID, conversation.ID, *event.RecordingURL)
		if err != nil {
			log.Printf("Failed to archive recording for conversation %s: %v", conversation.ID, err)
		} else {
			conversation.RecordingObject = &object
		}
	}

	if err := s.conversationRepo.Update(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}

	if conversation.Status == models.ConversationCompleted {
		if err := s.billingSvc.SettleConversation(ctx, conversation); err != nil {
			log.Printf("Settlement deferred for conversation %s: %v", conversation.ID, err)
		}
	}
	return conversation, nil
}

func (s *conversationService) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Conversation, error) {
	return s.conversationRepo.GetByID(ctx, workspaceID, id)
}

func (s *conversationService) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Conversation, error) {
	return s.conversationRepo.List(ctx, workspaceID, status, limit, offset)
}

func (s *conversationService) ListByCampaign(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	return s.conversationRepo.ListByCampaign(ctx, workspaceID, campaignID, limit, offset)
}

func (s *conversationService) RecordingLink(ctx context.Context, workspaceID, id uuid.UUID) (string, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return "", fmt.Errorf("conversation not found: %w", err)
	}
	if conversation.RecordingObject == nil {
		return "", fmt.Errorf("conversation %s has no recording", id)
	}
	return s.recordingSvc.PresignedURL(ctx, *conversation.RecordingObject, 15*time.Minute)
}

// ReapStale fails calls stuck in queued or in_progress after the provider
// stopped reporting on them, pulling final state from the provider first.
func (s *conversationService) ReapStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.conversationRepo.ListStaleInProgress(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale conversations: %w", err)
	}

	reaped := 0
	for _, conversation := range stale {
		provider, err := s.providers.Get(conversation.Provider)
		if err == nil {
			if call, err := provider.GetCall(ctx, conversation.ProviderCallID); err == nil && (call.Status == "ended" || call.Status == "completed") {
				_, err := s.ApplyCallEnded(ctx, &CallEvent{
					Provider:        conversation.Provider,
					ProviderCallID:  conversation.ProviderCallID,
					Status:          "completed",
					DurationSeconds: call.DurationSeconds,
					CostCents:       call.CostCents,
					RecordingURL:    call.RecordingURL,
					Transcript:      call.Transcript,
				})
				if err == nil {
					reaped++
					continue
				}
			}
		}

		conversation.Status = models.ConversationFailed
		now := time.Now()
		conversation.EndedAt = &now
		if err := s.conversationRepo.Update(ctx, conversation); err != nil {
			log.Printf("Failed to reap conversation %s: %v", conversation.ID, err)
			continue
		}
		reaped++
	}
	return reaped, nil
}
