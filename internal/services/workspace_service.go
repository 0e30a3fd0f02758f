package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"genius365/internal/caching"
	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

const workspaceCacheTTL = 10 * time.Minute

// WorkspaceService manages customer workspaces under a partner, including
// their Stripe customer record and credit wallet.
type WorkspaceService interface {
	Create(ctx context.Context, workspace *models.Workspace, billingEmail string) (*models.Workspace, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	Update(ctx context.Context, workspace *models.Workspace) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPartner(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*models.Workspace, error)
}

type workspaceService struct {
	workspaceRepo repositories.WorkspaceRepository
	partnerRepo   repositories.PartnerRepository
	creditsRepo   repositories.CreditsRepository
	stripeSvc     StripeService
	cacheSvc      caching.CacheService
}

func NewWorkspaceService(
	workspaceRepo repositories.WorkspaceRepository,
	partnerRepo repositories.PartnerRepository,
	creditsRepo repositories.CreditsRepository,
	stripeSvc StripeService,
	cacheSvc caching.CacheService,
) WorkspaceService {
	return &workspaceService{
		workspaceRepo: workspaceRepo,
		partnerRepo:   partnerRepo,
		creditsRepo:   creditsRepo,
		stripeSvc:     stripeSvc,
		cacheSvc:      cacheSvc,
	}
}

func (s *workspaceService) Create(ctx context.Context, workspace *models.Workspace, billingEmail string) (*models.Workspace, error) {
	if workspace.ID == uuid.Nil {
		workspace.ID = uuid.New()
	}
	if workspace.Status == "" {
		workspace.Status = "active"
	}

	if _, err := s.partnerRepo.GetByID(ctx, workspace.PartnerID); err != nil {
		return nil, fmt.Errorf("partner not found: %w", err)
	}
	if existing, err := s.workspaceRepo.GetBySlug(ctx, workspace.PartnerID, workspace.Slug); err == nil && existing != nil {
		return nil, fmt.Errorf("slug %q is taken under this partner", workspace.Slug)
	}

	customer, err := s.stripeSvc.CreateCustomer(ctx, workspace.Name, billingEmail, map[string]string{
		"workspace_id": workspace.ID.String(),
		"partner_id":   workspace.PartnerID.String(),
	})
	if err != nil {
		log.Printf("Stripe customer creation deferred for workspace %s: %v", workspace.ID, err)
	} else {
		workspace.StripeCustomerID = &customer.ID
	}

	if err := s.workspaceRepo.Create(ctx, workspace); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	if err := s.creditsRepo.EnsureWallet(ctx, workspace.ID); err != nil {
		log.Printf("Failed to create wallet for workspace %s: %v", workspace.ID, err)
	}
	return workspace, nil
}

func (s *workspaceService) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	if cached, err := s.cacheSvc.GetWorkspace(ctx, id); err == nil && cached != nil {
		return cached, nil
	}
	workspace, err := s.workspaceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cacheSvc.SetWorkspace(ctx, workspace, workspaceCacheTTL); err != nil {
		log.Printf("Failed to cache workspace %s: %v", id, err)
	}
	return workspace, nil
}

func (s *workspaceService) Update(ctx context.Context, workspace *models.Workspace) error {
	if err := s.workspaceRepo.Update(ctx, workspace); err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	if err := s.cacheSvc.DeleteWorkspace(ctx, workspace.ID); err != nil {
		log.Printf("Failed to invalidate workspace cache %s: %v", workspace.ID, err)
	}
	return nil
}

func (s *workspaceService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.workspaceRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if err := s.cacheSvc.InvalidateWorkspaceCache(ctx, id); err != nil {
		log.Printf("Failed to invalidate caches for workspace %s: %v", id, err)
	}
	return nil
}

func (s *workspaceService) ListByPartner(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*models.Workspace, error) {
	return s.workspaceRepo.ListByPartner(ctx, partnerID, limit, offset)
}
