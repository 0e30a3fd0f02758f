package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"genius365/internal/caching"
	"genius365/internal/models"
	"genius365/internal/repositories"
	"genius365/internal/search"

	"github.com/google/uuid"
)

const agentCacheTTL = 10 * time.Minute

// AgentService manages AI voice agents and keeps them synced with their
// telephony provider.
type AgentService interface {
	Create(ctx context.Context, agent *models.Agent) (*models.Agent, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Agent, error)
	Update(ctx context.Context, agent *models.Agent) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.Agent, error)
	ListByDepartment(ctx context.Context, workspaceID, departmentID uuid.UUID, limit, offset int) ([]*models.Agent, error)
	Search(ctx context.Context, workspaceID uuid.UUID, query string, limit int) ([]search.AgentHit, error)
	Resync(ctx context.Context, workspaceID, id uuid.UUID) error
}

type agentService struct {
	agentRepo repositories.AgentRepository
	providers *ProviderRegistry
	cacheSvc  caching.CacheService
	searchSvc search.SearchService
	serverURL string
}

func NewAgentService(
	agentRepo repositories.AgentRepository,
	providers *ProviderRegistry,
	cacheSvc caching.CacheService,
	searchSvc search.SearchService,
	serverURL string,
) AgentService {
	return &agentService{
		agentRepo: agentRepo,
		providers: providers,
		cacheSvc:  cacheSvc,
		searchSvc: searchSvc,
		serverURL: serverURL,
	}
}

func (s *agentService) assistantParams(agent *models.Agent) *AssistantParams {
	return &AssistantParams{
		Name:               agent.Name,
		Voice:              agent.Voice,
		Language:           agent.Language,
		SystemPrompt:       agent.SystemPrompt,
		FirstMessage:       agent.FirstMessage,
		MaxDurationSeconds: agent.MaxDurationSeconds,
		ServerURL:          fmt.Sprintf("%s/v1/webhooks/%s", s.serverURL, agent.Provider),
	}
}

// Create stores the agent and pushes it to the provider. A failed push leaves
// the agent in draft status for a later Resync.
func (s *agentService) Create(ctx context.Context, agent *models.Agent) (*models.Agent, error) {
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	agent.Status = "draft"

	provider, err := s.providers.ForAgent(agent)
	if err != nil {
		return nil, err
	}

	providerAgentID, err := provider.CreateAssistant(ctx, s.assistantParams(agent))
	if err != nil {
		log.Printf("Provider sync failed for new agent %s: %v", agent.ID, err)
	} else {
		agent.ProviderAgentID = &providerAgentID
		agent.Status = "active"
	}

	if err := s.agentRepo.Create(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to store agent: %w", err)
	}

	if err := s.searchSvc.IndexAgent(agent); err != nil {
		log.Printf("Failed to index agent %s: %v", agent.ID, err)
	}
	return agent, nil
}

func (s *agentService) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Agent, error) {
	if cached, err := s.cacheSvc.GetAgent(ctx, workspaceID, id); err == nil && cached != nil {
		return cached, nil
	}

	agent, err := s.agentRepo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if err := s.cacheSvc.SetAgent(ctx, workspaceID, agent, agentCacheTTL); err != nil {
		log.Printf("Failed to cache agent %s: %v", id, err)
	}
	return agent, nil
}

func (s *agentService) Update(ctx context.Context, agent *models.Agent) error {
	existing, err := s.agentRepo.GetByID(ctx, agent.WorkspaceID, agent.ID)
	if err != nil {
		return fmt.Errorf("agent not found: %w", err)
	}
	agent.ProviderAgentID = existing.ProviderAgentID
	agent.Provider = existing.Provider

	if err := s.agentRepo.Update(ctx, agent); err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}

	if agent.ProviderAgentID != nil {
		provider, err := s.providers.ForAgent(agent)
		if err == nil {
			if err := provider.UpdateAssistant(ctx, *agent.ProviderAgentID, s.assistantParams(agent)); err != nil {
				log.Printf("Provider sync failed for agent %s: %v", agent.ID, err)
			}
		}
	}

	if err := s.cacheSvc.DeleteAgent(ctx, agent.WorkspaceID, agent.ID); err != nil {
		log.Printf("Failed to invalidate agent cache %s: %v", agent.ID, err)
	}
	if err := s.searchSvc.IndexAgent(agent); err != nil {
		log.Printf("Failed to reindex agent %s: %v", agent.ID, err)
	}
	return nil
}

func (s *agentService) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	agent, err := s.agentRepo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return fmt.Errorf("agent not found: %w", err)
	}

	if agent.ProviderAgentID != nil {
		provider, err := s.providers.ForAgent(agent)
		if err == nil {
			if err := provider.DeleteAssistant(ctx, *agent.ProviderAgentID); err != nil {
				log.Printf("Provider delete failed for agent %s: %v", id, err)
			}
		}
	}

	if err := s.agentRepo.SoftDelete(ctx, workspaceID, id); err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if err := s.cacheSvc.DeleteAgent(ctx, workspaceID, id); err != nil {
		log.Printf("Failed to invalidate agent cache %s: %v", id, err)
	}
	if err := s.searchSvc.DeleteAgent(id); err != nil {
		log.Printf("Failed to deindex agent %s: %v", id, err)
	}
	return nil
}

func (s *agentService) List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.Agent, error) {
	return s.agentRepo.List(ctx, workspaceID, limit, offset)
}

func (s *agentService) ListByDepartment(ctx context.Context, workspaceID, departmentID uuid.UUID, limit, offset int) ([]*models.Agent, error) {
	return s.agentRepo.ListByDepartment(ctx, workspaceID, departmentID, limit, offset)
}

func (s *agentService) Search(ctx context.Context, workspaceID uuid.UUID, query string, limit int) ([]search.AgentHit, error) {
	return s.searchSvc.SearchAgents(workspaceID, query, limit)
}

// Resync pushes an agent to its provider again, creating the remote assistant
// if the first push never landed.
func (s *agentService) Resync(ctx context.Context, workspaceID, id uuid.UUID) error {
	agent, err := s.agentRepo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return fmt.Errorf("agent not found: %w", err)
	}
	provider, err := s.providers.ForAgent(agent)
	if err != nil {
		return err
	}

	if agent.ProviderAgentID == nil {
		providerAgentID, err := provider.CreateAssistant(ctx, s.assistantParams(agent))
		if err != nil {
			return fmt.Errorf("failed to create provider assistant: %w", err)
		}
		agent.ProviderAgentID = &providerAgentID
		agent.Status = "active"
	} else {
		if err := provider.UpdateAssistant(ctx, *agent.ProviderAgentID, s.assistantParams(agent)); err != nil {
			return fmt.Errorf("failed to update provider assistant: %w", err)
		}
	}

	if err := s.agentRepo.Update(ctx, agent); err != nil {
		return fmt.Errorf("failed to store synced agent: %w", err)
	}
	if err := s.cacheSvc.DeleteAgent(ctx, workspaceID, id); err != nil {
		log.Printf("Failed to invalidate agent cache %s: %v", id, err)
	}
	return nil
}
