package repositories

import (
	"context"
	"testing"
	"time"

	"genius365/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ConversationRepoTestSuite struct {
	suite.Suite
	mock        pgxmock.PgxPoolIface
	repo        ConversationRepository
	workspaceID uuid.UUID
	agentID     uuid.UUID
	context     context.Context
}

func (suite *ConversationRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewConversationRepo(mock)
	suite.workspaceID = uuid.New()
	suite.agentID = uuid.New()
	suite.context = context.Background()
}

func (suite *ConversationRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestConversationRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ConversationRepoTestSuite))
}

func (suite *ConversationRepoTestSuite) TestMarkBilled_WinsStamp() {
	id := uuid.New()

	suite.mock.ExpectExec(`UPDATE conversations`).
		WithArgs(3, 150, models.BillingSourceCredits, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	billed, err := suite.repo.MarkBilled(suite.context, id, 3, 150, models.BillingSourceCredits)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), billed)
}

func (suite *ConversationRepoTestSuite) TestMarkBilled_AlreadyBilled() {
	id := uuid.New()

	suite.mock.ExpectExec(`UPDATE conversations`).
		WithArgs(3, 150, models.BillingSourceSubscription, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	billed, err := suite.repo.MarkBilled(suite.context, id, 3, 150, models.BillingSourceSubscription)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), billed)
}

func (suite *ConversationRepoTestSuite) TestGetByProviderCallID_Success() {
	id := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "workspace_id", "agent_id", "lead_id", "campaign_id", "provider", "provider_call_id",
		"direction", "status", "started_at", "ended_at", "duration_seconds", "recording_object",
		"transcript", "provider_cost_cents", "billed_minutes", "billed_amount_cents",
		"billing_source", "billed_at", "created_at", "updated_at",
	}).AddRow(
		id, suite.workspaceID, suite.agentID, nil, nil, models.ProviderVapi, "call-abc",
		"outbound", models.ConversationCompleted, &now, &now, 125, nil,
		nil, 42, 0, 0,
		nil, nil, now, now,
	)

	suite.mock.ExpectQuery(`SELECT (.+) FROM conversations`).
		WithArgs(models.ProviderVapi, "call-abc").
		WillReturnRows(rows)

	conversation, err := suite.repo.GetByProviderCallID(suite.context, models.ProviderVapi, "call-abc")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), id, conversation.ID)
	assert.Equal(suite.T(), suite.workspaceID, conversation.WorkspaceID)
	assert.Equal(suite.T(), 125, conversation.DurationSeconds)
	assert.Nil(suite.T(), conversation.BilledAt)
}

func (suite *ConversationRepoTestSuite) TestListUnbilledCompleted() {
	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "workspace_id", "agent_id", "lead_id", "campaign_id", "provider", "provider_call_id",
		"direction", "status", "started_at", "ended_at", "duration_seconds", "recording_object",
		"transcript", "provider_cost_cents", "billed_minutes", "billed_amount_cents",
		"billing_source", "billed_at", "created_at", "updated_at",
	}).AddRow(
		uuid.New(), suite.workspaceID, suite.agentID, nil, nil, models.ProviderRetell, "call-1",
		"outbound", models.ConversationCompleted, &now, &now, 61, nil,
		nil, 10, 0, 0,
		nil, nil, now, now,
	).AddRow(
		uuid.New(), suite.workspaceID, suite.agentID, nil, nil, models.ProviderRetell, "call-2",
		"outbound", models.ConversationCompleted, &now, &now, 240, nil,
		nil, 35, 0, 0,
		nil, nil, now, now,
	)

	suite.mock.ExpectQuery(`SELECT (.+) FROM conversations`).
		WithArgs(50).
		WillReturnRows(rows)

	conversations, err := suite.repo.ListUnbilledCompleted(suite.context, 50)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), conversations, 2)
	assert.Equal(suite.T(), "call-1", conversations[0].ProviderCallID)
}
