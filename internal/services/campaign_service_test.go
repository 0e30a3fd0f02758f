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

type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Campaign, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *MockCampaignRepository) UpdateStatus(ctx context.Context, workspaceID, id uuid.UUID, status string) error {
	args := m.Called(ctx, workspaceID, id, status)
	return args.Error(0)
}

func (m *MockCampaignRepository) IncrementCompleted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCampaignRepository) IncrementFailed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCampaignRepository) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Campaign, error) {
	args := m.Called(ctx, workspaceID, status, limit, offset)
	return args.Get(0).([]*models.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) ListRunning(ctx context.Context, limit int) ([]*models.Campaign, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) GetProgress(ctx context.Context, workspaceID, id uuid.UUID) (*models.CampaignProgress, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CampaignProgress), args.Error(1)
}

type MockCampaignRecipientRepository struct {
	mock.Mock
}

func (m *MockCampaignRecipientRepository) CreateBatch(ctx context.Context, recipients []*models.CampaignRecipient) error {
	args := m.Called(ctx, recipients)
	return args.Error(0)
}

func (m *MockCampaignRecipientRepository) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.CampaignRecipient, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CampaignRecipient), args.Error(1)
}

func (m *MockCampaignRecipientRepository) GetByConversationID(ctx context.Context, conversationID uuid.UUID) (*models.CampaignRecipient, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CampaignRecipient), args.Error(1)
}

func (m *MockCampaignRecipientRepository) ListPending(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.CampaignRecipient, error) {
	args := m.Called(ctx, campaignID, limit)
	return args.Get(0).([]*models.CampaignRecipient), args.Error(1)
}

func (m *MockCampaignRecipientRepository) CountDialing(ctx context.Context, campaignID uuid.UUID) (int, error) {
	args := m.Called(ctx, campaignID)
	return args.Int(0), args.Error(1)
}

func (m *MockCampaignRecipientRepository) CountUnfinished(ctx context.Context, campaignID uuid.UUID) (int, error) {
	args := m.Called(ctx, campaignID)
	return args.Int(0), args.Error(1)
}

func (m *MockCampaignRecipientRepository) ListStaleDialing(ctx context.Context, olderThan time.Time, limit int) ([]*models.CampaignRecipient, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Get(0).([]*models.CampaignRecipient), args.Error(1)
}

func (m *MockCampaignRecipientRepository) MarkDialing(ctx context.Context, id, conversationID uuid.UUID) error {
	args := m.Called(ctx, id, conversationID)
	return args.Error(0)
}

func (m *MockCampaignRecipientRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCampaignRecipientRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	args := m.Called(ctx, id, lastError)
	return args.Error(0)
}

func (m *MockCampaignRecipientRepository) List(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.CampaignRecipient, error) {
	args := m.Called(ctx, workspaceID, campaignID, limit, offset)
	return args.Get(0).([]*models.CampaignRecipient), args.Error(1)
}

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Lead, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) GetByPhone(ctx context.Context, workspaceID uuid.UUID, phone string) (*models.Lead, error) {
	args := m.Called(ctx, workspaceID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) Update(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) SoftDelete(ctx context.Context, workspaceID, id uuid.UUID) error {
	args := m.Called(ctx, workspaceID, id)
	return args.Error(0)
}

func (m *MockLeadRepository) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Lead, error) {
	args := m.Called(ctx, workspaceID, status, limit, offset)
	return args.Get(0).([]*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListByIDs(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]*models.Lead, error) {
	args := m.Called(ctx, workspaceID, ids)
	return args.Get(0).([]*models.Lead), args.Error(1)
}

type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) StartOutboundCall(ctx context.Context, workspaceID, agentID uuid.UUID, leadID, campaignID *uuid.UUID, toNumber string) (*models.Conversation, error) {
	args := m.Called(ctx, workspaceID, agentID, leadID, campaignID, toNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) ApplyCallStarted(ctx context.Context, provider, providerCallID string) error {
	args := m.Called(ctx, provider, providerCallID)
	return args.Error(0)
}

func (m *MockConversationService) ApplyCallEnded(ctx context.Context, event *CallEvent) (*models.Conversation, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Conversation, error) {
	args := m.Called(ctx, workspaceID, status, limit, offset)
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockConversationService) ListByCampaign(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	args := m.Called(ctx, workspaceID, campaignID, limit, offset)
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockConversationService) RecordingLink(ctx context.Context, workspaceID, id uuid.UUID) (string, error) {
	args := m.Called(ctx, workspaceID, id)
	return args.String(0), args.Error(1)
}

func (m *MockConversationService) ReapStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Int(0), args.Error(1)
}

type CampaignServiceTestSuite struct {
	suite.Suite
	campaignRepo  *MockCampaignRepository
	recipientRepo *MockCampaignRecipientRepository
	leadRepo      *MockLeadRepository
	convSvc       *MockConversationService
	service       CampaignService

	workspaceID uuid.UUID
	agentID     uuid.UUID
}

func (s *CampaignServiceTestSuite) SetupTest() {
	s.campaignRepo = new(MockCampaignRepository)
	s.recipientRepo = new(MockCampaignRecipientRepository)
	s.leadRepo = new(MockLeadRepository)
	s.convSvc = new(MockConversationService)
	s.service = NewCampaignService(s.campaignRepo, s.recipientRepo, s.leadRepo, s.convSvc)
	s.workspaceID = uuid.New()
	s.agentID = uuid.New()
}

func (s *CampaignServiceTestSuite) runningCampaign(batchSize int) *models.Campaign {
	return &models.Campaign{
		ID:          uuid.New(),
		WorkspaceID: s.workspaceID,
		AgentID:     s.agentID,
		Name:        "q3-renewals",
		Status:      models.CampaignRunning,
		BatchSize:   batchSize,
	}
}

func (s *CampaignServiceTestSuite) pendingRecipient(campaignID uuid.UUID) *models.CampaignRecipient {
	return &models.CampaignRecipient{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		WorkspaceID: s.workspaceID,
		LeadID:      uuid.New(),
		Phone:       "+14155550101",
		Status:      models.RecipientPending,
	}
}

func (s *CampaignServiceTestSuite) TestCreate_RejectsMissingLeads() {
	leadIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	s.leadRepo.On("ListByIDs", mock.Anything, s.workspaceID, leadIDs).
		Return([]*models.Lead{{ID: leadIDs[0]}}, nil)

	campaign, err := s.service.Create(context.Background(), s.workspaceID, s.agentID, "q3-renewals", 3, leadIDs)

	s.Error(err)
	s.Nil(campaign)
	s.Contains(err.Error(), "2 of 3 leads not found")
	s.campaignRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *CampaignServiceTestSuite) TestCreate_DefaultsBatchSize() {
	leadID := uuid.New()
	s.leadRepo.On("ListByIDs", mock.Anything, s.workspaceID, []uuid.UUID{leadID}).
		Return([]*models.Lead{{ID: leadID, Phone: "+14155550101"}}, nil)
	s.campaignRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Campaign) bool {
		return c.BatchSize == defaultBatchSize && c.Status == models.CampaignDraft && c.TotalRecipients == 1
	})).Return(nil)
	s.recipientRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(rs []*models.CampaignRecipient) bool {
		return len(rs) == 1 && rs[0].Status == models.RecipientPending && rs[0].Phone == "+14155550101"
	})).Return(nil)

	campaign, err := s.service.Create(context.Background(), s.workspaceID, s.agentID, "q3-renewals", 0, []uuid.UUID{leadID})

	s.NoError(err)
	s.Equal(defaultBatchSize, campaign.BatchSize)
	s.campaignRepo.AssertExpectations(s.T())
	s.recipientRepo.AssertExpectations(s.T())
}

func (s *CampaignServiceTestSuite) TestDispatch_RespectsBatchSizeCap() {
	campaign := s.runningCampaign(3)

	// All three slots already occupied.
	s.recipientRepo.On("CountDialing", mock.Anything, campaign.ID).Return(3, nil)

	dispatched, err := s.service.DispatchNextBatch(context.Background(), campaign)

	s.NoError(err)
	s.Equal(0, dispatched)
	s.recipientRepo.AssertNotCalled(s.T(), "ListPending", mock.Anything, mock.Anything, mock.Anything)
	s.convSvc.AssertNotCalled(s.T(), "StartOutboundCall", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *CampaignServiceTestSuite) TestDispatch_FillsOpenSlots() {
	campaign := s.runningCampaign(3)
	first := s.pendingRecipient(campaign.ID)
	second := s.pendingRecipient(campaign.ID)

	s.recipientRepo.On("CountDialing", mock.Anything, campaign.ID).Return(1, nil)
	s.recipientRepo.On("ListPending", mock.Anything, campaign.ID, 2).
		Return([]*models.CampaignRecipient{first, second}, nil)
	for _, recipient := range []*models.CampaignRecipient{first, second} {
		conv := &models.Conversation{ID: uuid.New()}
		s.convSvc.On("StartOutboundCall", mock.Anything, s.workspaceID, s.agentID, &recipient.LeadID, &campaign.ID, recipient.Phone).
			Return(conv, nil)
		s.recipientRepo.On("MarkDialing", mock.Anything, recipient.ID, conv.ID).Return(nil)
	}

	dispatched, err := s.service.DispatchNextBatch(context.Background(), campaign)

	s.NoError(err)
	s.Equal(2, dispatched)
	s.convSvc.AssertExpectations(s.T())
	s.recipientRepo.AssertExpectations(s.T())
}

func (s *CampaignServiceTestSuite) TestDispatch_SkipsPausedCampaign() {
	campaign := s.runningCampaign(3)
	campaign.Status = models.CampaignPaused

	dispatched, err := s.service.DispatchNextBatch(context.Background(), campaign)

	s.NoError(err)
	s.Equal(0, dispatched)
	s.recipientRepo.AssertNotCalled(s.T(), "CountDialing", mock.Anything, mock.Anything)
}

func (s *CampaignServiceTestSuite) TestDispatch_FailedDialDoesNotWedgeBatch() {
	campaign := s.runningCampaign(2)
	recipient := s.pendingRecipient(campaign.ID)

	s.recipientRepo.On("CountDialing", mock.Anything, campaign.ID).Return(0, nil)
	s.recipientRepo.On("ListPending", mock.Anything, campaign.ID, 2).
		Return([]*models.CampaignRecipient{recipient}, nil)
	s.convSvc.On("StartOutboundCall", mock.Anything, s.workspaceID, s.agentID, &recipient.LeadID, &campaign.ID, recipient.Phone).
		Return(nil, errors.New("provider rejected number"))
	s.recipientRepo.On("MarkFailed", mock.Anything, recipient.ID, "provider rejected number").Return(nil)
	s.campaignRepo.On("IncrementFailed", mock.Anything, campaign.ID).Return(nil)

	dispatched, err := s.service.DispatchNextBatch(context.Background(), campaign)

	s.NoError(err)
	s.Equal(0, dispatched)
	s.recipientRepo.AssertExpectations(s.T())
	s.campaignRepo.AssertExpectations(s.T())
}

func (s *CampaignServiceTestSuite) TestDispatch_CompletesDrainedCampaign() {
	campaign := s.runningCampaign(3)

	s.recipientRepo.On("CountDialing", mock.Anything, campaign.ID).Return(0, nil)
	s.recipientRepo.On("ListPending", mock.Anything, campaign.ID, 3).
		Return([]*models.CampaignRecipient{}, nil)
	s.recipientRepo.On("CountUnfinished", mock.Anything, campaign.ID).Return(0, nil)
	s.campaignRepo.On("UpdateStatus", mock.Anything, s.workspaceID, campaign.ID, models.CampaignCompleted).Return(nil)

	dispatched, err := s.service.DispatchNextBatch(context.Background(), campaign)

	s.NoError(err)
	s.Equal(0, dispatched)
	s.campaignRepo.AssertExpectations(s.T())
}

func (s *CampaignServiceTestSuite) TestDispatch_WaitsForDialingBeforeCompleting() {
	campaign := s.runningCampaign(3)

	s.recipientRepo.On("CountDialing", mock.Anything, campaign.ID).Return(1, nil)
	s.recipientRepo.On("ListPending", mock.Anything, campaign.ID, 2).
		Return([]*models.CampaignRecipient{}, nil)
	s.recipientRepo.On("CountUnfinished", mock.Anything, campaign.ID).Return(1, nil)

	dispatched, err := s.service.DispatchNextBatch(context.Background(), campaign)

	s.NoError(err)
	s.Equal(0, dispatched)
	s.campaignRepo.AssertNotCalled(s.T(), "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *CampaignServiceTestSuite) TestStart_OnlyFromDraft() {
	campaignID := uuid.New()
	s.campaignRepo.On("GetByID", mock.Anything, s.workspaceID, campaignID).
		Return(&models.Campaign{ID: campaignID, WorkspaceID: s.workspaceID, Status: models.CampaignRunning}, nil)

	err := s.service.Start(context.Background(), s.workspaceID, campaignID)

	s.Error(err)
	s.campaignRepo.AssertNotCalled(s.T(), "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *CampaignServiceTestSuite) TestOnConversationFinished_CompletedCallRefillsBatch() {
	campaign := s.runningCampaign(2)
	recipient := s.pendingRecipient(campaign.ID)
	recipient.Status = models.RecipientDialing
	conversation := &models.Conversation{
		ID:          uuid.New(),
		WorkspaceID: s.workspaceID,
		CampaignID:  &campaign.ID,
		Status:      models.ConversationCompleted,
	}

	s.recipientRepo.On("GetByConversationID", mock.Anything, conversation.ID).Return(recipient, nil)
	s.recipientRepo.On("MarkCompleted", mock.Anything, recipient.ID).Return(nil)
	s.campaignRepo.On("IncrementCompleted", mock.Anything, campaign.ID).Return(nil)
	s.campaignRepo.On("GetByID", mock.Anything, s.workspaceID, campaign.ID).Return(campaign, nil)
	s.recipientRepo.On("CountDialing", mock.Anything, campaign.ID).Return(2, nil)

	err := s.service.OnConversationFinished(context.Background(), conversation)

	s.NoError(err)
	s.recipientRepo.AssertExpectations(s.T())
	s.campaignRepo.AssertExpectations(s.T())
}

func (s *CampaignServiceTestSuite) TestOnConversationFinished_FailedCallMarksRecipientFailed() {
	campaign := s.runningCampaign(2)
	recipient := s.pendingRecipient(campaign.ID)
	recipient.Status = models.RecipientDialing
	conversation := &models.Conversation{
		ID:          uuid.New(),
		WorkspaceID: s.workspaceID,
		CampaignID:  &campaign.ID,
		Status:      models.ConversationFailed,
	}

	s.recipientRepo.On("GetByConversationID", mock.Anything, conversation.ID).Return(recipient, nil)
	s.recipientRepo.On("MarkFailed", mock.Anything, recipient.ID, "call failed").Return(nil)
	s.campaignRepo.On("IncrementFailed", mock.Anything, campaign.ID).Return(nil)
	s.campaignRepo.On("GetByID", mock.Anything, s.workspaceID, campaign.ID).Return(campaign, nil)
	s.recipientRepo.On("CountDialing", mock.Anything, campaign.ID).Return(2, nil)

	err := s.service.OnConversationFinished(context.Background(), conversation)

	s.NoError(err)
	s.recipientRepo.AssertExpectations(s.T())
}

func (s *CampaignServiceTestSuite) TestOnConversationFinished_IgnoresNonCampaignCalls() {
	conversation := &models.Conversation{ID: uuid.New(), Status: models.ConversationCompleted}

	err := s.service.OnConversationFinished(context.Background(), conversation)

	s.NoError(err)
	s.recipientRepo.AssertNotCalled(s.T(), "GetByConversationID", mock.Anything, mock.Anything)
}

func (s *CampaignServiceTestSuite) TestOnConversationFinished_AlreadySettledRecipientIsNoop() {
	campaign := s.runningCampaign(2)
	recipient := s.pendingRecipient(campaign.ID)
	recipient.Status = models.RecipientCompleted
	conversation := &models.Conversation{
		ID:          uuid.New(),
		WorkspaceID: s.workspaceID,
		CampaignID:  &campaign.ID,
		Status:      models.ConversationCompleted,
	}

	s.recipientRepo.On("GetByConversationID", mock.Anything, conversation.ID).Return(recipient, nil)

	err := s.service.OnConversationFinished(context.Background(), conversation)

	s.NoError(err)
	s.recipientRepo.AssertNotCalled(s.T(), "MarkCompleted", mock.Anything, mock.Anything)
	s.campaignRepo.AssertNotCalled(s.T(), "IncrementCompleted", mock.Anything, mock.Anything)
}

func (s *CampaignServiceTestSuite) TestFailStaleDialing_TimesOutAndCounts() {
	campaignID := uuid.New()
	stale := []*models.CampaignRecipient{
		{ID: uuid.New(), CampaignID: campaignID, Status: models.RecipientDialing},
		{ID: uuid.New(), CampaignID: campaignID, Status: models.RecipientDialing},
	}

	s.recipientRepo.On("ListStaleDialing", mock.Anything, mock.AnythingOfType("time.Time"), 100).Return(stale, nil)
	for _, recipient := range stale {
		s.recipientRepo.On("MarkFailed", mock.Anything, recipient.ID, "no call result before timeout").Return(nil)
	}
	s.campaignRepo.On("IncrementFailed", mock.Anything, campaignID).Return(nil).Twice()

	failed, err := s.service.FailStaleDialing(context.Background(), 15*time.Minute, 100)

	s.NoError(err)
	s.Equal(2, failed)
	s.recipientRepo.AssertExpectations(s.T())
	s.campaignRepo.AssertExpectations(s.T())
}

func TestCampaignServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CampaignServiceTestSuite))
}
