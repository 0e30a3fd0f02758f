package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"genius365/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockAgentRepository struct {
	mock.Mock
}

func (m *MockAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

func (m *MockAgentRepository) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Agent, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agent), args.Error(1)
}

func (m *MockAgentRepository) GetByProviderAgentID(ctx context.Context, provider, providerAgentID string) (*models.Agent, error) {
	args := m.Called(ctx, provider, providerAgentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agent), args.Error(1)
}

func (m *MockAgentRepository) Update(ctx context.Context, agent *models.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

func (m *MockAgentRepository) SoftDelete(ctx context.Context, workspaceID, id uuid.UUID) error {
	args := m.Called(ctx, workspaceID, id)
	return args.Error(0)
}

func (m *MockAgentRepository) List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.Agent, error) {
	args := m.Called(ctx, workspaceID, limit, offset)
	return args.Get(0).([]*models.Agent), args.Error(1)
}

func (m *MockAgentRepository) ListByDepartment(ctx context.Context, workspaceID, departmentID uuid.UUID, limit, offset int) ([]*models.Agent, error) {
	args := m.Called(ctx, workspaceID, departmentID, limit, offset)
	return args.Get(0).([]*models.Agent), args.Error(1)
}

type MockVoiceProvider struct {
	mock.Mock
	name string
}

func (m *MockVoiceProvider) Name() string {
	return m.name
}

func (m *MockVoiceProvider) CreateAssistant(ctx context.Context, params *AssistantParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *MockVoiceProvider) UpdateAssistant(ctx context.Context, providerAgentID string, params *AssistantParams) error {
	args := m.Called(ctx, providerAgentID, params)
	return args.Error(0)
}

func (m *MockVoiceProvider) DeleteAssistant(ctx context.Context, providerAgentID string) error {
	args := m.Called(ctx, providerAgentID)
	return args.Error(0)
}

func (m *MockVoiceProvider) StartCall(ctx context.Context, params *StartCallParams) (*ProviderCall, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProviderCall), args.Error(1)
}

func (m *MockVoiceProvider) GetCall(ctx context.Context, providerCallID string) (*ProviderCall, error) {
	args := m.Called(ctx, providerCallID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProviderCall), args.Error(1)
}

type MockRecordingService struct {
	mock.Mock
}

func (m *MockRecordingService) Archive(ctx context.Context, workspaceID, conversationID uuid.UUID, recordingURL string) (string, error) {
	args := m.Called(ctx, workspaceID, conversationID, recordingURL)
	return args.String(0), args.Error(1)
}

func (m *MockRecordingService) PresignedURL(ctx context.Context, object string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, object, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockRecordingService) Delete(ctx context.Context, object string) error {
	args := m.Called(ctx, object)
	return args.Error(0)
}

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) SettleConversation(ctx context.Context, conversation *models.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *MockBillingService) SettleUnbilled(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockBillingService) ListPlans() []PlanDetails {
	args := m.Called()
	return args.Get(0).([]PlanDetails)
}

func (m *MockBillingService) Subscribe(ctx context.Context, workspaceID uuid.UUID, planName string) (*models.WorkspaceSubscription, error) {
	args := m.Called(ctx, workspaceID, planName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkspaceSubscription), args.Error(1)
}

func (m *MockBillingService) CancelSubscription(ctx context.Context, workspaceID uuid.UUID) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

func (m *MockBillingService) GetSubscription(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceSubscription, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkspaceSubscription), args.Error(1)
}

func (m *MockBillingService) GetCredits(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceCredits, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkspaceCredits), args.Error(1)
}

func (m *MockBillingService) PurchaseCredits(ctx context.Context, workspaceID uuid.UUID, amountCents int) (*StripePaymentIntent, error) {
	args := m.Called(ctx, workspaceID, amountCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StripePaymentIntent), args.Error(1)
}

func (m *MockBillingService) ListCreditTransactions(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error) {
	args := m.Called(ctx, workspaceID, limit, offset)
	return args.Get(0).([]*models.CreditTransaction), args.Error(1)
}

func (m *MockBillingService) HandleStripeEvent(ctx context.Context, event *StripeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockBillingService) RollDuePeriods(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

type ConversationServiceTestSuite struct {
	suite.Suite
	conversationRepo *MockConversationRepository
	agentRepo        *MockAgentRepository
	vapi             *MockVoiceProvider
	retell           *MockVoiceProvider
	billingSvc       *MockBillingService
	recordingSvc     *MockRecordingService
	service          ConversationService

	workspaceID uuid.UUID
}

func (s *ConversationServiceTestSuite) SetupTest() {
	s.conversationRepo = new(MockConversationRepository)
	s.agentRepo = new(MockAgentRepository)
	s.vapi = &MockVoiceProvider{name: models.ProviderVapi}
	s.retell = &MockVoiceProvider{name: models.ProviderRetell}
	s.billingSvc = new(MockBillingService)
	s.recordingSvc = new(MockRecordingService)
	s.service = NewConversationService(
		s.conversationRepo,
		s.agentRepo,
		NewProviderRegistry(s.vapi, s.retell),
		s.billingSvc,
		s.recordingSvc,
	)
	s.workspaceID = uuid.New()
}

func (s *ConversationServiceTestSuite) syncedAgent() *models.Agent {
	providerAgentID := "asst_abc"
	return &models.Agent{
		ID:              uuid.New(),
		WorkspaceID:     s.workspaceID,
		Name:            "Support Agent",
		Provider:        models.ProviderVapi,
		ProviderAgentID: &providerAgentID,
		Status:          "active",
	}
}

func (s *ConversationServiceTestSuite) TestStartOutboundCall_CreatesQueuedConversation() {
	agent := s.syncedAgent()
	s.agentRepo.On("GetByID", mock.Anything, s.workspaceID, agent.ID).Return(agent, nil)
	s.vapi.On("StartCall", mock.Anything, mock.MatchedBy(func(p *StartCallParams) bool {
		return p.ProviderAgentID == "asst_abc" && p.ToNumber == "+14155550101"
	})).Return(&ProviderCall{ID: "call_123", Status: "queued"}, nil)
	s.conversationRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Conversation) bool {
		return c.Status == models.ConversationQueued &&
			c.ProviderCallID == "call_123" &&
			c.Provider == models.ProviderVapi &&
			c.Direction == "outbound"
	})).Return(nil)

	conversation, err := s.service.StartOutboundCall(context.Background(), s.workspaceID, agent.ID, nil, nil, "+14155550101")

	s.NoError(err)
	s.Equal(models.ConversationQueued, conversation.Status)
	s.conversationRepo.AssertExpectations(s.T())
}

func (s *ConversationServiceTestSuite) TestStartOutboundCall_RejectsUnsyncedAgent() {
	agent := s.syncedAgent()
	agent.ProviderAgentID = nil
	s.agentRepo.On("GetByID", mock.Anything, s.workspaceID, agent.ID).Return(agent, nil)

	conversation, err := s.service.StartOutboundCall(context.Background(), s.workspaceID, agent.ID, nil, nil, "+14155550101")

	s.Error(err)
	s.Nil(conversation)
	s.Contains(err.Error(), "not synced")
	s.vapi.AssertNotCalled(s.T(), "StartCall", mock.Anything, mock.Anything)
}

func (s *ConversationServiceTestSuite) TestStartOutboundCall_RejectsInactiveAgent() {
	agent := s.syncedAgent()
	agent.Status = "inactive"
	s.agentRepo.On("GetByID", mock.Anything, s.workspaceID, agent.ID).Return(agent, nil)

	_, err := s.service.StartOutboundCall(context.Background(), s.workspaceID, agent.ID, nil, nil, "+14155550101")

	s.Error(err)
	s.vapi.AssertNotCalled(s.T(), "StartCall", mock.Anything, mock.Anything)
}

func (s *ConversationServiceTestSuite) TestApplyCallStarted_MovesQueuedToInProgress() {
	conversation := &models.Conversation{
		ID:             uuid.New(),
		WorkspaceID:    s.workspaceID,
		Provider:       models.ProviderVapi,
		ProviderCallID: "call_123",
		Status:         models.ConversationQueued,
	}
	s.conversationRepo.On("GetByProviderCallID", mock.Anything, models.ProviderVapi, "call_123").Return(conversation, nil)
	s.conversationRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *models.Conversation) bool {
		return c.Status == models.ConversationInProgress && c.StartedAt != nil
	})).Return(nil)

	err := s.service.ApplyCallStarted(context.Background(), models.ProviderVapi, "call_123")

	s.NoError(err)
	s.conversationRepo.AssertExpectations(s.T())
}

func (s *ConversationServiceTestSuite) TestApplyCallStarted_IgnoresAlreadyStartedCall() {
	conversation := &models.Conversation{
		ID:             uuid.New(),
		Provider:       models.ProviderVapi,
		ProviderCallID: "call_123",
		Status:         models.ConversationInProgress,
	}
	s.conversationRepo.On("GetByProviderCallID", mock.Anything, models.ProviderVapi, "call_123").Return(conversation, nil)

	err := s.service.ApplyCallStarted(context.Background(), models.ProviderVapi, "call_123")

	s.NoError(err)
	s.conversationRepo.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
}

func (s *ConversationServiceTestSuite) TestApplyCallEnded_CompletesAndSettles() {
	conversation := &models.Conversation{
		ID:             uuid.New(),
		WorkspaceID:    s.workspaceID,
		Provider:       models.ProviderVapi,
		ProviderCallID: "call_123",
		Status:         models.ConversationInProgress,
	}
	s.conversationRepo.On("GetByProviderCallID", mock.Anything, models.ProviderVapi, "call_123").Return(conversation, nil)
	s.conversationRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *models.Conversation) bool {
		return c.Status == models.ConversationCompleted && c.DurationSeconds == 95 && c.ProviderCostCents == 42
	})).Return(nil)
	s.billingSvc.On("SettleConversation", mock.Anything, conversation).Return(nil)

	result, err := s.service.ApplyCallEnded(context.Background(), &CallEvent{
		Provider:        models.ProviderVapi,
		ProviderCallID:  "call_123",
		Status:          "completed",
		DurationSeconds: 95,
		CostCents:       42,
	})

	s.NoError(err)
	s.Equal(models.ConversationCompleted, result.Status)
	s.billingSvc.AssertExpectations(s.T())
}

func (s *ConversationServiceTestSuite) TestApplyCallEnded_FailedCallSkipsSettlement() {
	conversation := &models.Conversation{
		ID:             uuid.New(),
		WorkspaceID:    s.workspaceID,
		Provider:       models.ProviderRetell,
		ProviderCallID: "call_456",
		Status:         models.ConversationInProgress,
	}
	s.conversationRepo.On("GetByProviderCallID", mock.Anything, models.ProviderRetell, "call_456").Return(conversation, nil)
	s.conversationRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *models.Conversation) bool {
		return c.Status == models.ConversationFailed
	})).Return(nil)

	result, err := s.service.ApplyCallEnded(context.Background(), &CallEvent{
		Provider:       models.ProviderRetell,
		ProviderCallID: "call_456",
		Status:         "failed",
	})

	s.NoError(err)
	s.Equal(models.ConversationFailed, result.Status)
	s.billingSvc.AssertNotCalled(s.T(), "SettleConversation", mock.Anything, mock.Anything)
}

func (s *ConversationServiceTestSuite) TestApplyCallEnded_DuplicateWebhookIsNoop() {
	conversation := &models.Conversation{
		ID:             uuid.New(),
		Provider:       models.ProviderVapi,
		ProviderCallID: "call_123",
		Status:         models.ConversationCompleted,
	}
	s.conversationRepo.On("GetByProviderCallID", mock.Anything, models.ProviderVapi, "call_123").Return(conversation, nil)

	result, err := s.service.ApplyCallEnded(context.Background(), &CallEvent{
		Provider:       models.ProviderVapi,
		ProviderCallID: "call_123",
		Status:         "completed",
	})

	s.NoError(err)
	s.Equal(conversation, result)
	s.conversationRepo.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
	s.billingSvc.AssertNotCalled(s.T(), "SettleConversation", mock.Anything, mock.Anything)
}

func (s *ConversationServiceTestSuite) TestApplyCallEnded_ArchivesRecording() {
	recordingURL := "https://storage.vapi.ai/call_123.wav"
	conversation := &models.Conversation{
		ID:             uuid.New(),
		WorkspaceID:    s.workspaceID,
		Provider:       models.ProviderVapi,
		ProviderCallID: "call_123",
		Status:         models.ConversationInProgress,
	}
	s.conversationRepo.On("GetByProviderCallID", mock.Anything, models.ProviderVapi, "call_123").Return(conversation, nil)
	s.recordingSvc.On("Archive", mock.Anything, s.workspaceID, conversation.ID, recordingURL).
		Return("recordings/"+conversation.ID.String()+".wav", nil)
	s.conversationRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *models.Conversation) bool {
		return c.RecordingObject != nil
	})).Return(nil)
	s.billingSvc.On("SettleConversation", mock.Anything, conversation).Return(nil)

	_, err := s.service.ApplyCallEnded(context.Background(), &CallEvent{
		Provider:        models.ProviderVapi,
		ProviderCallID:  "call_123",
		Status:          "completed",
		DurationSeconds: 60,
		RecordingURL:    &recordingURL,
	})

	s.NoError(err)
	s.recordingSvc.AssertExpectations(s.T())
}

func (s *ConversationServiceTestSuite) TestApplyCallEnded_SettlementFailureDoesNotFailCall() {
	conversation := &models.Conversation{
		ID:             uuid.New(),
		WorkspaceID:    s.workspaceID,
		Provider:       models.ProviderVapi,
		ProviderCallID: "call_123",
		Status:         models.ConversationInProgress,
	}
	s.conversationRepo.On("GetByProviderCallID", mock.Anything, models.ProviderVapi, "call_123").Return(conversation, nil)
	s.conversationRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	s.billingSvc.On("SettleConversation", mock.Anything, conversation).
		Return(errors.New("no funding source"))

	result, err := s.service.ApplyCallEnded(context.Background(), &CallEvent{
		Provider:        models.ProviderVapi,
		ProviderCallID:  "call_123",
		Status:          "completed",
		DurationSeconds: 60,
	})

	s.NoError(err)
	s.Equal(models.ConversationCompleted, result.Status)
}

func (s *ConversationServiceTestSuite) TestReapStale_PullsFinalStateFromProvider() {
	conversation := &models.Conversation{
		ID:             uuid.New(),
		WorkspaceID:    s.workspaceID,
		Provider:       models.ProviderVapi,
		ProviderCallID: "call_123",
		Status:         models.ConversationInProgress,
	}
	s.conversationRepo.On("ListStaleInProgress", mock.Anything, mock.AnythingOfType("time.Time"), 10).
		Return([]*models.Conversation{conversation}, nil)
	s.vapi.On("GetCall", mock.Anything, "call_123").
		Return(&ProviderCall{ID: "call_123", Status: "ended", DurationSeconds: 120, CostCents: 30}, nil)
	s.conversationRepo.On("GetByProviderCallID", mock.Anything, models.ProviderVapi, "call_123").Return(conversation, nil)
	s.conversationRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	s.billingSvc.On("SettleConversation", mock.Anything, conversation).Return(nil)

	reaped, err := s.service.ReapStale(context.Background(), 2*time.Hour, 10)

	s.NoError(err)
	s.Equal(1, reaped)
	s.vapi.AssertExpectations(s.T())
}

func (s *ConversationServiceTestSuite) TestReapStale_FailsUnreachableCall() {
	conversation := &models.Conversation{
		ID:             uuid.New(),
		WorkspaceID:    s.workspaceID,
		Provider:       models.ProviderVapi,
		ProviderCallID: "call_999",
		Status:         models.ConversationInProgress,
	}
	s.conversationRepo.On("ListStaleInProgress", mock.Anything, mock.AnythingOfType("time.Time"), 10).
		Return([]*models.Conversation{conversation}, nil)
	s.vapi.On("GetCall", mock.Anything, "call_999").Return(nil, errors.New("not found"))
	s.conversationRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *models.Conversation) bool {
		return c.Status == models.ConversationFailed && c.EndedAt != nil
	})).Return(nil)

	reaped, err := s.service.ReapStale(context.Background(), 2*time.Hour, 10)

	s.NoError(err)
	s.Equal(1, reaped)
	s.conversationRepo.AssertExpectations(s.T())
}

func TestConversationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ConversationServiceTestSuite))
}
