package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"genius365/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB creates a pooled connection for testing
func SetupTestDB(t *testing.T, connString string) *TestDB {
	t.Helper()

	if connString == "" {
		connString = os.Getenv("TEST_DATABASE_URL")
		if connString == "" {
			connString = "host=localhost port=5432 user=postgres password=postgres dbname=genius365_test sslmode=disable"
		}
	}

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SetupTestPartner creates a test partner for testing
func SetupTestPartner(t *testing.T, db *TestDB) uuid.UUID {
	t.Helper()

	partnerID := uuid.New()
	query := `
		INSERT INTO partners (id, name, subdomain, status, billing_mode, fallback_enabled, margin_percent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (subdomain) DO NOTHING
	`
	_, err := db.Pool.Exec(context.Background(), query, partnerID, "Test Partner", "test-partner", "active", models.PartnerBillingPrepaid, false, 0.0, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test partner: %v", err)
	}

	return partnerID
}

// SetupTestWorkspace creates a test workspace under the given partner
func SetupTestWorkspace(t *testing.T, db *TestDB, partnerID uuid.UUID) uuid.UUID {
	t.Helper()

	workspaceID := uuid.New()
	query := `
		INSERT INTO workspaces (id, partner_id, name, slug, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	_, err := db.Pool.Exec(context.Background(), query, workspaceID, partnerID, "Test Workspace", "test-workspace", "active", time.Now())
	if err != nil {
		t.Fatalf("Failed to create test workspace: %v", err)
	}

	return workspaceID
}

// SetupTestAgent creates a test agent for testing
func SetupTestAgent(t *testing.T, db *TestDB, workspaceID uuid.UUID) *models.Agent {
	t.Helper()

	providerAgentID := "asst_test_001"
	agent := &models.Agent{
		ID:                 uuid.New(),
		WorkspaceID:        workspaceID,
		Name:               "Test Agent",
		Provider:           models.ProviderVapi,
		ProviderAgentID:    &providerAgentID,
		Voice:              "alloy",
		Language:           "en-US",
		SystemPrompt:       "You are a helpful assistant.",
		FirstMessage:       "Hello, how can I help?",
		MaxDurationSeconds: 600,
		Status:             "active",
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	query := `
		INSERT INTO agents (id, workspace_id, department_id, name, provider, provider_agent_id, voice, language, system_prompt, first_message, max_duration_seconds, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		agent.ID, agent.WorkspaceID, agent.DepartmentID, agent.Name, agent.Provider,
		agent.ProviderAgentID, agent.Voice, agent.Language, agent.SystemPrompt,
		agent.FirstMessage, agent.MaxDurationSeconds, agent.Status, agent.CreatedAt, agent.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test agent: %v", err)
	}

	return agent
}

// SetupTestLead creates a test lead for testing
func SetupTestLead(t *testing.T, db *TestDB, workspaceID uuid.UUID) *models.Lead {
	t.Helper()

	lead := &models.Lead{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        "Test Lead",
		Phone:       "+14155550100",
		Source:      "import",
		Status:      "new",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	query := `
		INSERT INTO leads (id, workspace_id, name, phone, email, source, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		lead.ID, lead.WorkspaceID, lead.Name, lead.Phone, lead.Email,
		lead.Source, lead.Status, lead.Notes, lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test lead: %v", err)
	}

	return lead
}
