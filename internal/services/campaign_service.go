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

// CampaignService runs batch outbound calling: recipients drain through
// pending -> dialing -> completed/failed, with at most batch_size calls
// dialing at once.
type CampaignService interface {
	Create(ctx context.Context, workspaceID, agentID uuid.UUID, name string, batchSize int, leadIDs []uuid.UUID) (*models.Campaign, error)
	Start(ctx context.Context, workspaceID, id uuid.UUID) error
	Pause(ctx context.Context, workspaceID, id uuid.UUID) error
	Resume(ctx context.Context, workspaceID, id uuid.UUID) error
	Cancel(ctx context.Context, workspaceID, id uuid.UUID) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Campaign, error)
	List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Campaign, error)
	GetProgress(ctx context.Context, workspaceID, id uuid.UUID) (*models.CampaignProgress, error)
	ListRecipients(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.CampaignRecipient, error)

	DispatchNextBatch(ctx context.Context, campaign *models.Campaign) (int, error)
	DispatchRunning(ctx context.Context, limit int) error
	OnConversationFinished(ctx context.Context, conversation *models.Conversation) error
	FailStaleDialing(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type campaignService struct {
	campaignRepo  repositories.CampaignRepository
	recipientRepo repositories.CampaignRecipientRepository
	leadRepo      repositories.LeadRepository
	convSvc       ConversationService
}

func NewCampaignService(
	campaignRepo repositories.CampaignRepository,
	recipientRepo repositories.CampaignRecipientRepository,
	leadRepo repositories.LeadRepository,
	convSvc ConversationService,
) CampaignService {
	return &campaignService{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		leadRepo:      leadRepo,
		convSvc:       convSvc,
	}
}

const defaultBatchSize = 5

func (s *campaignService) Create(ctx context.Context, workspaceID, agentID uuid.UUID, name string, batchSize int, leadIDs []uuid.UUID) (*models.Campaign, error) {
	if len(leadIDs) == 0 {
		return nil, fmt.Errorf("campaign needs at least one lead")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	leads, err := s.leadRepo.ListByIDs(ctx, workspaceID, leadIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	if len(leads) != len(leadIDs) {
		return nil, fmt.Errorf("%d of %d leads not found in workspace", len(leadIDs)-len(leads), len(leadIDs))
	}

	campaign := &models.Campaign{
		ID:              uuid.New(),
		WorkspaceID:     workspaceID,
		AgentID:         agentID,
		Name:            name,
		Status:          models.CampaignDraft,
		BatchSize:       batchSize,
		TotalRecipients: len(leads),
	}
	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	recipients := make([]*models.CampaignRecipient, 0, len(leads))
	for _, lead := range leads {
		recipients = append(recipients, &models.CampaignRecipient{
			ID:          uuid.New(),
			CampaignID:  campaign.ID,
			WorkspaceID: workspaceID,
			LeadID:      lead.ID,
			Phone:       lead.Phone,
			Status:      models.RecipientPending,
		})
	}
	if err := s.recipientRepo.CreateBatch(ctx, recipients); err != nil {
		return nil, fmt.Errorf("failed to create recipients: %w", err)
	}
	return campaign, nil
}

func (s *campaignService) Start(ctx context.Context, workspaceID, id uuid.UUID) error {
	campaign, err := s.campaignRepo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return fmt.Errorf("campaign not found: %w", err)
	}
	if campaign.Status != models.CampaignDraft {
		return fmt.Errorf("campaign %s cannot start from status %s", id, campaign.Status)
	}
	if err := s.campaignRepo.UpdateStatus(ctx, workspaceID, id, models.CampaignRunning); err != nil {
		return err
	}
	campaign.Status = models.CampaignRunning
	if _, err := s.DispatchNextBatch(ctx, campaign); err != nil {
		log.Printf("Initial dispatch for campaign %s deferred: %v", id, err)
	}
	return nil
}

func (s *campaignService) Pause(ctx context.Context, workspaceID, id uuid.UUID) error {
	campaign, err := s.campaignRepo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return fmt.Errorf("campaign not found: %w", err)
	}
	if campaign.Status != models.CampaignRunning {
		return fmt.Errorf("campaign %s is not running", id)
	}
	return s.campaignRepo.UpdateStatus(ctx, workspaceID, id, models.CampaignPaused)
}

func (s *campaignService) Resume(ctx context.Context, workspaceID, id uuid.UUID) error {
	campaign, err := s.campaignRepo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return fmt.Errorf("campaign not found: %w", err)
	}
	if campaign.Status != models.CampaignPaused {
		return fmt.Errorf("campaign %s is not paused", id)
	}
	if err := s.campaignRepo.UpdateStatus(ctx, workspaceID, id, models.CampaignRunning); err != nil {
		return err
	}
	campaign.Status = models.CampaignRunning
	if _, err := s.DispatchNextBatch(ctx, campaign); err != nil {
		log.Printf("Resume dispatch for campaign %s deferred: %v", id, err)
	}
	return nil
}

func (s *campaignService) Cancel(ctx context.Context, workspaceID, id uuid.UUID) error {
	campaign, err := s.campaignRepo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return fmt.Errorf("campaign not found: %w", err)
	}
	if campaign.Status == models.CampaignCompleted || campaign.Status == models.CampaignCancelled {
		return fmt.Errorf("campaign %s already finished", id)
	}
	return s.campaignRepo.UpdateStatus(ctx, workspaceID, id, models.CampaignCancelled)
}

func (s *campaignService) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Campaign, error) {
	return s.campaignRepo.GetByID(ctx, workspaceID, id)
}

func (s *campaignService) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Campaign, error) {
	return s.campaignRepo.List(ctx, workspaceID, status, limit, offset)
}

func (s *campaignService) GetProgress(ctx context.Context, workspaceID, id uuid.UUID) (*models.CampaignProgress, error) {
	return s.campaignRepo.GetProgress(ctx, workspaceID, id)
}

func (s *campaignService) ListRecipients(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.CampaignRecipient, error) {
	return s.recipientRepo.List(ctx, workspaceID, campaignID, limit, offset)
}

// DispatchNextBatch tops the campaign back up to batch_size concurrent calls.
// Recipients whose dial fails are marked failed immediately so they do not
// wedge the batch.
func (s *campaignService) DispatchNextBatch(ctx context.Context, campaign *models.Campaign) (int, error) {
	if campaign.Status != models.CampaignRunning {
		return 0, nil
	}

	dialing, err := s.recipientRepo.CountDialing(ctx, campaign.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count dialing recipients: %w", err)
	}
	slots := campaign.BatchSize - dialing
	if slots <= 0 {
		return 0, nil
	}

	pending, err := s.recipientRepo.ListPending(ctx, campaign.ID, slots)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending recipients: %w", err)
	}
	if len(pending) == 0 {
		return 0, s.maybeComplete(ctx, campaign)
	}

	dispatched := 0
	for _, recipient := range pending {
		conversation, err := s.convSvc.StartOutboundCall(ctx, campaign.WorkspaceID, campaign.AgentID, &recipient.LeadID, &campaign.ID, recipient.Phone)
		if err != nil {
			log.Printf("Dial failed for recipient %s: %v", recipient.ID, err)
			if err := s.recipientRepo.MarkFailed(ctx, recipient.ID, err.Error()); err != nil {
				log.Printf("Failed to mark recipient %s failed: %v", recipient.ID, err)
				continue
			}
			if err := s.campaignRepo.IncrementFailed(ctx, campaign.ID); err != nil {
				log.Printf("Failed to bump failed count for campaign %s: %v", campaign.ID, err)
			}
			continue
		}
		if err := s.recipientRepo.MarkDialing(ctx, recipient.ID, conversation.ID); err != nil {
			log.Printf("Failed to mark recipient %s dialing: %v", recipient.ID, err)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// DispatchRunning is the scheduler entry point: it tops up every running
// campaign. Webhook-driven dispatch usually keeps campaigns moving; this
// sweep covers dropped webhooks.
func (s *campaignService) DispatchRunning(ctx context.Context, limit int) error {
	campaigns, err := s.campaignRepo.ListRunning(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list running campaigns: %w", err)
	}
	for _, campaign := range campaigns {
		if _, err := s.DispatchNextBatch(ctx, campaign); err != nil {
			log.Printf("Dispatch sweep failed for campaign %s: %v", campaign.ID, err)
		}
	}
	return nil
}

// OnConversationFinished settles the recipient behind a finished call and
// immediately refills the batch.
func (s *campaignService) OnConversationFinished(ctx context.Context, conversation *models.Conversation) error {
	if conversation.CampaignID == nil {
		return nil
	}
	recipient, err := s.recipientRepo.GetByConversationID(ctx, conversation.ID)
	if err != nil {
		return fmt.Errorf("no recipient for conversation %s: %w", conversation.ID, err)
	}
	if recipient.Status != models.RecipientDialing {
		return nil
	}

	if conversation.Status == models.ConversationCompleted {
		if err := s.recipientRepo.MarkCompleted(ctx, recipient.ID); err != nil {
			return fmt.Errorf("failed to complete recipient: %w", err)
		}
		if err := s.campaignRepo.IncrementCompleted(ctx, *conversation.CampaignID); err != nil {
			log.Printf("Failed to bump completed count for campaign %s: %v", *conversation.CampaignID, err)
		}
	} else {
		if err := s.recipientRepo.MarkFailed(ctx, recipient.ID, "call failed"); err != nil {
			return fmt.Errorf("failed to fail recipient: %w", err)
		}
		if err := s.campaignRepo.IncrementFailed(ctx, *conversation.CampaignID); err != nil {
			log.Printf("Failed to bump failed count for campaign %s: %v", *conversation.CampaignID, err)
		}
	}

	campaign, err := s.campaignRepo.GetByID(ctx, conversation.WorkspaceID, *conversation.CampaignID)
	if err != nil {
		return fmt.Errorf("campaign not found: %w", err)
	}
	if _, err := s.DispatchNextBatch(ctx, campaign); err != nil {
		log.Printf("Refill dispatch for campaign %s deferred: %v", campaign.ID, err)
	}
	return nil
}

func (s *campaignService) maybeComplete(ctx context.Context, campaign *models.Campaign) error {
	unfinished, err := s.recipientRepo.CountUnfinished(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to count unfinished recipients: %w", err)
	}
	if unfinished > 0 {
		return nil
	}
	return s.campaignRepo.UpdateStatus(ctx, campaign.WorkspaceID, campaign.ID, models.CampaignCompleted)
}

// FailStaleDialing fails recipients whose call never reported back, so the
// campaign can finish instead of hanging on lost webhooks.
func (s *campaignService) FailStaleDialing(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.recipientRepo.ListStaleDialing(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale dialing recipients: %w", err)
	}

	failed := 0
	for _, recipient := range stale {
		if err := s.recipientRepo.MarkFailed(ctx, recipient.ID, "no call result before timeout"); err != nil {
			log.Printf("Failed to time out recipient %s: %v", recipient.ID, err)
			continue
		}
		if err := s.campaignRepo.IncrementFailed(ctx, recipient.CampaignID); err != nil {
			log.Printf("Failed to bump failed count for campaign %s: %v", recipient.CampaignID, err)
		}
		failed++
	}
	return failed, nil
}
