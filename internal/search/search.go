package search

import (
	"encoding/json"
	"fmt"
	"log"

	"genius365/internal/models"

	"github.com/google/uuid"
	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxLeads  = "genius365_leads"
	idxAgents = "genius365_agents"
)

// SearchService mirrors leads and agents into Meilisearch for typo-tolerant
// workspace-scoped search. Indexing is best effort; Postgres stays the source
// of truth.
type SearchService interface {
	IndexLead(lead *models.Lead) error
	DeleteLead(leadID uuid.UUID) error
	SearchLeads(workspaceID uuid.UUID, query string, limit int) ([]LeadHit, error)

	IndexAgent(agent *models.Agent) error
	DeleteAgent(agentID uuid.UUID) error
	SearchAgents(workspaceID uuid.UUID, query string, limit int) ([]AgentHit, error)

	Healthy() bool
}

type LeadHit struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	Status      string `json:"status"`
}

type AgentHit struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Status      string `json:"status"`
}

type meiliSearch struct {
	client meili.ServiceManager
}

// NewMeiliSearch creates the client and configures both indexes. A failed
// initial health check is logged, not fatal; callers keep working against
// Postgres.
func NewMeiliSearch(url, apiKey string) SearchService {
	client := meili.New(url, meili.WithAPIKey(apiKey))
	s := &meiliSearch{client: client}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		return s
	}
	s.configureIndexes()
	return s
}

func (s *meiliSearch) configureIndexes() {
	indexes := []struct {
		uid        string
		searchable []string
	}{
		{idxLeads, []string{"name", "phone", "email"}},
		{idxAgents, []string{"name", "provider"}},
	}

	for _, idx := range indexes {
		if _, err := s.client.CreateIndex(&meili.IndexConfig{Uid: idx.uid, PrimaryKey: "id"}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}
		index := s.client.Index(idx.uid)
		filterable := []interface{}{"workspaceId", "status"}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
		}
		searchable := idx.searchable
		if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (s *meiliSearch) Healthy() bool {
	_, err := s.client.Health()
	return err == nil
}

func (s *meiliSearch) IndexLead(lead *models.Lead) error {
	doc := LeadHit{
		ID:          lead.ID.String(),
		WorkspaceID: lead.WorkspaceID.String(),
		Name:        lead.Name,
		Phone:       lead.Phone,
		Status:      lead.Status,
	}
	if lead.Email != nil {
		doc.Email = *lead.Email
	}
	_, err := s.client.Index(idxLeads).AddDocuments([]LeadHit{doc}, nil)
	return err
}

func (s *meiliSearch) DeleteLead(leadID uuid.UUID) error {
	_, err := s.client.Index(idxLeads).DeleteDocument(leadID.String(), nil)
	return err
}

func (s *meiliSearch) SearchLeads(workspaceID uuid.UUID, query string, limit int) ([]LeadHit, error) {
	resp, err := s.client.Index(idxLeads).Search(query, &meili.SearchRequest{
		Filter: fmt.Sprintf("workspaceId = %q", workspaceID),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("lead search: %w", err)
	}

	hits := make([]LeadHit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		hits = append(hits, LeadHit{
			ID:          decodeString(raw, "id"),
			WorkspaceID: decodeString(raw, "workspaceId"),
			Name:        decodeString(raw, "name"),
			Phone:       decodeString(raw, "phone"),
			Email:       decodeString(raw, "email"),
			Status:      decodeString(raw, "status"),
		})
	}
	return hits, nil
}

func (s *meiliSearch) IndexAgent(agent *models.Agent) error {
	doc := AgentHit{
		ID:          agent.ID.String(),
		WorkspaceID: agent.WorkspaceID.String(),
		Name:        agent.Name,
		Provider:    agent.Provider,
		Status:      agent.Status,
	}
	_, err := s.client.Index(idxAgents).AddDocuments([]AgentHit{doc}, nil)
	return err
}

func (s *meiliSearch) DeleteAgent(agentID uuid.UUID) error {
	_, err := s.client.Index(idxAgents).DeleteDocument(agentID.String(), nil)
	return err
}

func (s *meiliSearch) SearchAgents(workspaceID uuid.UUID, query string, limit int) ([]AgentHit, error) {
	resp, err := s.client.Index(idxAgents).Search(query, &meili.SearchRequest{
		Filter: fmt.Sprintf("workspaceId = %q", workspaceID),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("agent search: %w", err)
	}

	hits := make([]AgentHit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		hits = append(hits, AgentHit{
			ID:          decodeString(raw, "id"),
			WorkspaceID: decodeString(raw, "workspaceId"),
			Name:        decodeString(raw, "name"),
			Provider:    decodeString(raw, "provider"),
			Status:      decodeString(raw, "status"),
		})
	}
	return hits, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
