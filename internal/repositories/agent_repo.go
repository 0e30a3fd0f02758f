package repositories

import (
	"context"

	"genius365/internal/models"

	"github.com/google/uuid"
)

type AgentRepository interface {
	Create(ctx context.Context, agent *models.Agent) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Agent, error)
	GetByProviderAgentID(ctx context.Context, provider, providerAgentID string) (*models.Agent, error)
	Update(ctx context.Context, agent *models.Agent) error
	SoftDelete(ctx context.Context, workspaceID, id uuid.UUID) error
	List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.Agent, error)
	ListByDepartment(ctx context.Context, workspaceID, departmentID uuid.UUID, limit, offset int) ([]*models.Agent, error)
}

type agentRepo struct {
	db Database
}

func NewAgentRepo(db Database) AgentRepository {
	return &agentRepo{db: db}
}

func (r *agentRepo) Create(ctx context.Context, agent *models.Agent) error {
	query := `
		INSERT INTO agents (id, workspace_id, department_id, name, provider, provider_agent_id, voice, language, system_prompt, first_message, max_duration_seconds, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, agent.ID, agent.WorkspaceID, agent.DepartmentID, agent.Name, agent.Provider, agent.ProviderAgentID, agent.Voice, agent.Language, agent.SystemPrompt, agent.FirstMessage, agent.MaxDurationSeconds, agent.Status)
	return err
}

func (r *agentRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Agent, error) {
	agent := &models.Agent{}
	query := `
		SELECT id, workspace_id, department_id, name, provider, provider_agent_id, voice, language, system_prompt, first_message, max_duration_seconds, status, created_at, updated_at, deleted_at
		FROM agents
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	err := r.db.QueryRow(ctx, query, workspaceID, id).Scan(&agent.ID, &agent.WorkspaceID, &agent.DepartmentID, &agent.Name, &agent.Provider, &agent.ProviderAgentID, &agent.Voice, &agent.Language, &agent.SystemPrompt, &agent.FirstMessage, &agent.MaxDurationSeconds, &agent.Status, &agent.CreatedAt, &agent.UpdatedAt, &agent.DeletedAt)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// GetByProviderAgentID resolves webhooks that only carry the provider's own
// assistant id, so it is not workspace scoped.
func (r *agentRepo) GetByProviderAgentID(ctx context.Context, provider, providerAgentID string) (*models.Agent, error) {
	agent := &models.Agent{}
	query := `
		SELECT id, workspace_id, department_id, name, provider, provider_agent_id, voice, language, system_prompt, first_message, max_duration_seconds, status, created_at, updated_at, deleted_at
		FROM agents
		WHERE provider = $1 AND provider_agent_id = $2 AND deleted_at IS NULL
	`
	err := r.db.QueryRow(ctx, query, provider, providerAgentID).Scan(&agent.ID, &agent.WorkspaceID, &agent.DepartmentID, &agent.Name, &agent.Provider, &agent.ProviderAgentID, &agent.Voice, &agent.Language, &agent.SystemPrompt, &agent.FirstMessage, &agent.MaxDurationSeconds, &agent.Status, &agent.CreatedAt, &agent.UpdatedAt, &agent.DeletedAt)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

func (r *agentRepo) Update(ctx context.Context, agent *models.Agent) error {
	query := `
		UPDATE agents
		SET department_id = $1, name = $2, provider = $3, provider_agent_id = $4, voice = $5, language = $6, system_prompt = $7, first_message = $8, max_duration_seconds = $9, status = $10, updated_at = NOW()
		WHERE workspace_id = $11 AND id = $12 AND deleted_at IS NULL
	`
	_, err := r.db.Exec(ctx, query, agent.DepartmentID, agent.Name, agent.Provider, agent.ProviderAgentID, agent.Voice, agent.Language, agent.SystemPrompt, agent.FirstMessage, agent.MaxDurationSeconds, agent.Status, agent.WorkspaceID, agent.ID)
	return err
}

func (r *agentRepo) SoftDelete(ctx context.Context, workspaceID, id uuid.UUID) error {
	query := `UPDATE agents SET deleted_at = NOW(), updated_at = NOW() WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, query, workspaceID, id)
	return err
}

func (r *agentRepo) List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.Agent, error) {
	query := `
		SELECT id, workspace_id, department_id, name, provider, provider_agent_id, voice, language, system_prompt, first_message, max_duration_seconds, status, created_at, updated_at, deleted_at
		FROM agents
		WHERE workspace_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		agent := &models.Agent{}
		if err := rows.Scan(&agent.ID, &agent.WorkspaceID, &agent.DepartmentID, &agent.Name, &agent.Provider, &agent.ProviderAgentID, &agent.Voice, &agent.Language, &agent.SystemPrompt, &agent.FirstMessage, &agent.MaxDurationSeconds, &agent.Status, &agent.CreatedAt, &agent.UpdatedAt, &agent.DeletedAt); err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

func (r *agentRepo) ListByDepartment(ctx context.Context, workspaceID, departmentID uuid.UUID, limit, offset int) ([]*models.Agent, error) {
	query := `
		SELECT id, workspace_id, department_id, name, provider, provider_agent_id, voice, language, system_prompt, first_message, max_duration_seconds, status, created_at, updated_at, deleted_at
		FROM agents
		WHERE workspace_id = $1 AND department_id = $2 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, workspaceID, departmentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		agent := &models.Agent{}
		if err := rows.Scan(&agent.ID, &agent.WorkspaceID, &agent.DepartmentID, &agent.Name, &agent.Provider, &agent.ProviderAgentID, &agent.Voice, &agent.Language, &agent.SystemPrompt, &agent.FirstMessage, &agent.MaxDurationSeconds, &agent.Status, &agent.CreatedAt, &agent.UpdatedAt, &agent.DeletedAt); err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}
