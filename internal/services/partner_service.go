package services

import (
	"context"
	"fmt"

	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

// PartnerService manages the resellers at the top of the tenancy tree.
type PartnerService interface {
	Create(ctx context.Context, partner *models.Partner) (*models.Partner, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Partner, error)
	Update(ctx context.Context, partner *models.Partner) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Partner, error)
}

type partnerService struct {
	partnerRepo   repositories.PartnerRepository
	workspaceRepo repositories.WorkspaceRepository
}

func NewPartnerService(partnerRepo repositories.PartnerRepository, workspaceRepo repositories.WorkspaceRepository) PartnerService {
	return &partnerService{partnerRepo: partnerRepo, workspaceRepo: workspaceRepo}
}

func (s *partnerService) Create(ctx context.Context, partner *models.Partner) (*models.Partner, error) {
	if partner.ID == uuid.Nil {
		partner.ID = uuid.New()
	}
	if partner.Status == "" {
		partner.Status = "active"
	}
	if partner.BillingMode == "" {
		partner.BillingMode = models.PartnerBillingPrepaid
	}

	if existing, err := s.partnerRepo.GetBySubdomain(ctx, partner.Subdomain); err == nil && existing != nil {
		return nil, fmt.Errorf("subdomain %q is taken", partner.Subdomain)
	}

	if err := s.partnerRepo.Create(ctx, partner); err != nil {
		return nil, fmt.Errorf("failed to create partner: %w", err)
	}
	return partner, nil
}

func (s *partnerService) GetByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	return s.partnerRepo.GetByID(ctx, id)
}

func (s *partnerService) GetBySubdomain(ctx context.Context, subdomain string) (*models.Partner, error) {
	return s.partnerRepo.GetBySubdomain(ctx, subdomain)
}

func (s *partnerService) Update(ctx context.Context, partner *models.Partner) error {
	return s.partnerRepo.Update(ctx, partner)
}

// Delete refuses while the partner still has workspaces.
func (s *partnerService) Delete(ctx context.Context, id uuid.UUID) error {
	workspaces, err := s.workspaceRepo.ListByPartner(ctx, id, 1, 0)
	if err != nil {
		return fmt.Errorf("failed to check partner workspaces: %w", err)
	}
	if len(workspaces) > 0 {
		return fmt.Errorf("partner %s still has workspaces", id)
	}
	return s.partnerRepo.Delete(ctx, id)
}

func (s *partnerService) List(ctx context.Context, limit, offset int) ([]*models.Partner, error) {
	return s.partnerRepo.List(ctx, limit, offset)
}
