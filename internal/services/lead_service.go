package services

import (
	"context"
	"fmt"
	"log"

	"genius365/internal/models"
	"genius365/internal/repositories"
	"genius365/internal/search"

	"github.com/google/uuid"
)

// LeadService manages the contact book campaigns dial from.
type LeadService interface {
	Create(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Lead, error)
	Search(ctx context.Context, workspaceID uuid.UUID, query string, limit int) ([]search.LeadHit, error)
}

type leadService struct {
	leadRepo  repositories.LeadRepository
	searchSvc search.SearchService
}

func NewLeadService(leadRepo repositories.LeadRepository, searchSvc search.SearchService) LeadService {
	return &leadService{leadRepo: leadRepo, searchSvc: searchSvc}
}

func (s *leadService) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = "new"
	}

	// One lead per phone number per workspace.
	if existing, err := s.leadRepo.GetByPhone(ctx, lead.WorkspaceID, lead.Phone); err == nil && existing != nil {
		return nil, fmt.Errorf("lead with phone %s already exists", lead.Phone)
	}

	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}
	if err := s.searchSvc.IndexLead(lead); err != nil {
		log.Printf("Failed to index lead %s: %v", lead.ID, err)
	}
	return lead, nil
}

func (s *leadService) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Lead, error) {
	return s.leadRepo.GetByID(ctx, workspaceID, id)
}

func (s *leadService) Update(ctx context.Context, lead *models.Lead) error {
	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if err := s.searchSvc.IndexLead(lead); err != nil {
		log.Printf("Failed to reindex lead %s: %v", lead.ID, err)
	}
	return nil
}

func (s *leadService) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	if err := s.leadRepo.SoftDelete(ctx, workspaceID, id); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if err := s.searchSvc.DeleteLead(id); err != nil {
		log.Printf("Failed to deindex lead %s: %v", id, err)
	}
	return nil
}

func (s *leadService) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Lead, error) {
	return s.leadRepo.List(ctx, workspaceID, status, limit, offset)
}

func (s *leadService) Search(ctx context.Context, workspaceID uuid.UUID, query string, limit int) ([]search.LeadHit, error) {
	return s.searchSvc.SearchLeads(workspaceID, query, limit)
}
