package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"genius365/internal/common"
	"genius365/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// Mock repositories and services

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, conversation *models.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *MockConversationRepository) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationRepository) GetByProviderCallID(ctx context.Context, provider, providerCallID string) (*models.Conversation, error) {
	args := m.Called(ctx, provider, providerCallID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationRepository) Update(ctx context.Context, conversation *models.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *MockConversationRepository) MarkBilled(ctx context.Context, id uuid.UUID, billedMinutes, billedAmountCents int, source string) (bool, error) {
	args := m.Called(ctx, id, billedMinutes, billedAmountCents, source)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationRepository) List(ctx context.Context, workspaceID uuid.UUID, status string, limit, offset int) ([]*models.Conversation, error) {
	args := m.Called(ctx, workspaceID, status, limit, offset)
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByCampaign(ctx context.Context, workspaceID, campaignID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	args := m.Called(ctx, workspaceID, campaignID, limit, offset)
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListUnbilledCompleted(ctx context.Context, limit int) ([]*models.Conversation, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListStaleInProgress(ctx context.Context, olderThan time.Time, limit int) ([]*models.Conversation, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *models.WorkspaceSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetActiveByWorkspace(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceSubscription, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkspaceSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.WorkspaceSubscription, error) {
	args := m.Called(ctx, stripeSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkspaceSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, sub *models.WorkspaceSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) IncrementUsedMinutes(ctx context.Context, id uuid.UUID, minutes int) (bool, error) {
	args := m.Called(ctx, id, minutes)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) ReleaseMinutes(ctx context.Context, id uuid.UUID, minutes int) error {
	args := m.Called(ctx, id, minutes)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ResetPeriod(ctx context.Context, id uuid.UUID, periodStart time.Time, periodEnd *time.Time) error {
	args := m.Called(ctx, id, periodStart, periodEnd)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ListDuePeriodRoll(ctx context.Context, now time.Time, limit int) ([]*models.WorkspaceSubscription, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*models.WorkspaceSubscription), args.Error(1)
}

type MockCreditsRepository struct {
	mock.Mock
}

func (m *MockCreditsRepository) GetByWorkspace(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceCredits, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkspaceCredits), args.Error(1)
}

func (m *MockCreditsRepository) EnsureWallet(ctx context.Context, workspaceID uuid.UUID) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

func (m *MockCreditsRepository) Deduct(ctx context.Context, workspaceID uuid.UUID, amountCents int, reference string) (bool, error) {
	args := m.Called(ctx, workspaceID, amountCents, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockCreditsRepository) TopUp(ctx context.Context, workspaceID uuid.UUID, amountCents int, txType, reference string) error {
	args := m.Called(ctx, workspaceID, amountCents, txType, reference)
	return args.Error(0)
}

func (m *MockCreditsRepository) ListTransactions(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error) {
	args := m.Called(ctx, workspaceID, limit, offset)
	return args.Get(0).([]*models.CreditTransaction), args.Error(1)
}

func (m *MockCreditsRepository) GetTransactionByReference(ctx context.Context, workspaceID uuid.UUID, reference string) (*models.CreditTransaction, error) {
	args := m.Called(ctx, workspaceID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreditTransaction), args.Error(1)
}

type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) Create(ctx context.Context, record *models.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockUsageRepository) Summarize(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time) (*models.UsageSummary, error) {
	args := m.Called(ctx, workspaceID, periodStart, periodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UsageSummary), args.Error(1)
}

func (m *MockUsageRepository) List(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time, limit, offset int) ([]*models.UsageRecord, error) {
	args := m.Called(ctx, workspaceID, periodStart, periodEnd, limit, offset)
	return args.Get(0).([]*models.UsageRecord), args.Error(1)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Enqueue(ctx context.Context, entry *models.MeterOutbox) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOutboxRepository) ListPending(ctx context.Context, limit int) ([]*models.MeterOutbox, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.MeterOutbox), args.Error(1)
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, maxAttempts int) error {
	args := m.Called(ctx, id, maxAttempts)
	return args.Error(0)
}

type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) Create(ctx context.Context, workspace *models.Workspace) error {
	args := m.Called(ctx, workspace)
	return args.Error(0)
}

func (m *MockWorkspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) GetBySlug(ctx context.Context, partnerID uuid.UUID, slug string) (*models.Workspace, error) {
	args := m.Called(ctx, partnerID, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Workspace, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) Update(ctx context.Context, workspace *models.Workspace) error {
	args := m.Called(ctx, workspace)
	return args.Error(0)
}

func (m *MockWorkspaceRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWorkspaceRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*models.Workspace, error) {
	args := m.Called(ctx, partnerID, limit, offset)
	return args.Get(0).([]*models.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) ListActive(ctx context.Context, limit, offset int) ([]*models.Workspace, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Workspace), args.Error(1)
}

type MockPartnerRepository struct {
	mock.Mock
}

func (m *MockPartnerRepository) Create(ctx context.Context, partner *models.Partner) error {
	args := m.Called(ctx, partner)
	return args.Error(0)
}

func (m *MockPartnerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Partner), args.Error(1)
}

func (m *MockPartnerRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.Partner, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Partner), args.Error(1)
}

func (m *MockPartnerRepository) Update(ctx context.Context, partner *models.Partner) error {
	args := m.Called(ctx, partner)
	return args.Error(0)
}

func (m *MockPartnerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPartnerRepository) List(ctx context.Context, limit, offset int) ([]*models.Partner, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Partner), args.Error(1)
}

type MockStripeService struct {
	mock.Mock
}

func (m *MockStripeService) CreateCustomer(ctx context.Context, name, email string, metadata map[string]string) (*StripeCustomer, error) {
	args := m.Called(ctx, name, email, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StripeCustomer), args.Error(1)
}

func (m *MockStripeService) CreateSubscription(ctx context.Context, customerID, priceID string) (*StripeSubscription, error) {
	args := m.Called(ctx, customerID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StripeSubscription), args.Error(1)
}

func (m *MockStripeService) CancelSubscription(ctx context.Context, subscriptionID string) (*StripeSubscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StripeSubscription), args.Error(1)
}

func (m *MockStripeService) CreatePaymentIntent(ctx context.Context, customerID string, amountCents int, currency string, metadata map[string]string) (*StripePaymentIntent, error) {
	args := m.Called(ctx, customerID, amountCents, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StripePaymentIntent), args.Error(1)
}

func (m *MockStripeService) SendMeterEvent(ctx context.Context, meterName, customerID string, value int, timestamp time.Time) error {
	args := m.Called(ctx, meterName, customerID, value, timestamp)
	return args.Error(0)
}

func (m *MockStripeService) VerifyWebhook(payload []byte, sigHeader string, tolerance time.Duration) (*StripeEvent, error) {
	args := m.Called(payload, sigHeader, tolerance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StripeEvent), args.Error(1)
}

type BillingServiceTestSuite struct {
	suite.Suite
	conversationRepo *MockConversationRepository
	subscriptionRepo *MockSubscriptionRepository
	creditsRepo      *MockCreditsRepository
	usageRepo        *MockUsageRepository
	outboxRepo       *MockOutboxRepository
	workspaceRepo    *MockWorkspaceRepository
	partnerRepo      *MockPartnerRepository
	stripeSvc        *MockStripeService
	service          BillingService

	workspaceID uuid.UUID
	partnerID   uuid.UUID
}

func (s *BillingServiceTestSuite) SetupTest() {
	s.conversationRepo = new(MockConversationRepository)
	s.subscriptionRepo = new(MockSubscriptionRepository)
	s.creditsRepo = new(MockCreditsRepository)
	s.usageRepo = new(MockUsageRepository)
	s.outboxRepo = new(MockOutboxRepository)
	s.workspaceRepo = new(MockWorkspaceRepository)
	s.partnerRepo = new(MockPartnerRepository)
	s.stripeSvc = new(MockStripeService)
	s.service = NewBillingService(
		s.conversationRepo,
		s.subscriptionRepo,
		s.creditsRepo,
		s.usageRepo,
		s.outboxRepo,
		s.workspaceRepo,
		s.partnerRepo,
		s.stripeSvc,
		"voice_minutes",
	)
	s.workspaceID = uuid.New()
	s.partnerID = uuid.New()
}

func (s *BillingServiceTestSuite) conversation(durationSeconds int) *models.Conversation {
	return &models.Conversation{
		ID:              uuid.New(),
		WorkspaceID:     s.workspaceID,
		AgentID:         uuid.New(),
		Provider:        models.ProviderVapi,
		Status:          models.ConversationCompleted,
		DurationSeconds: durationSeconds,
	}
}

func (s *BillingServiceTestSuite) workspaceWithoutStripe() {
	s.workspaceRepo.On("GetByID", mock.Anything, s.workspaceID).
		Return(&models.Workspace{ID: s.workspaceID, PartnerID: s.partnerID}, nil)
}

func (s *BillingServiceTestSuite) TestSettle_AlreadyBilled_IsNoop() {
	conv := s.conversation(95)
	now := time.Now()
	conv.BilledAt = &now

	err := s.service.SettleConversation(context.Background(), conv)

	s.NoError(err)
	s.conversationRepo.AssertNotCalled(s.T(), "MarkBilled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.creditsRepo.AssertNotCalled(s.T(), "Deduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *BillingServiceTestSuite) TestSettle_ZeroDuration_StampsWithoutDeduction() {
	conv := s.conversation(0)

	s.conversationRepo.On("MarkBilled", mock.Anything, conv.ID, 0, 0, models.BillingSourceNone).
		Return(true, nil)

	err := s.service.SettleConversation(context.Background(), conv)

	s.NoError(err)
	s.subscriptionRepo.AssertNotCalled(s.T(), "GetActiveByWorkspace", mock.Anything, mock.Anything)
	s.creditsRepo.AssertNotCalled(s.T(), "Deduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.conversationRepo.AssertExpectations(s.T())
}

func (s *BillingServiceTestSuite) TestSettle_SubscriptionCoversCall() {
	conv := s.conversation(95) // 2 billed minutes
	sub := &models.WorkspaceSubscription{
		ID:              uuid.New(),
		WorkspaceID:     s.workspaceID,
		IncludedMinutes: 100,
		UsedMinutes:     50,
	}

	s.subscriptionRepo.On("GetActiveByWorkspace", mock.Anything, s.workspaceID).Return(sub, nil)
	s.subscriptionRepo.On("IncrementUsedMinutes", mock.Anything, sub.ID, 2).Return(true, nil)
	s.conversationRepo.On("MarkBilled", mock.Anything, conv.ID, 2, 0, models.BillingSourceSubscription).
		Return(true, nil)
	s.usageRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.UsageRecord) bool {
		return r.Minutes == 2 && r.AmountCents == 0 && r.Source == models.BillingSourceSubscription
	})).Return(nil)
	s.workspaceWithoutStripe()

	err := s.service.SettleConversation(context.Background(), conv)

	s.NoError(err)
	s.creditsRepo.AssertNotCalled(s.T(), "Deduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.subscriptionRepo.AssertExpectations(s.T())
	s.conversationRepo.AssertExpectations(s.T())
}

func (s *BillingServiceTestSuite) TestSettle_ShortSubscriptionFallsThroughToCredits() {
	conv := s.conversation(300) // 5 billed minutes
	sub := &models.WorkspaceSubscription{
		ID:              uuid.New(),
		WorkspaceID:     s.workspaceID,
		IncludedMinutes: 100,
		UsedMinutes:     97, // 3 left, call needs 5: skipped, not split
		PerMinuteCents:  20,
	}

	s.subscriptionRepo.On("GetActiveByWorkspace", mock.Anything, s.workspaceID).Return(sub, nil)
	s.creditsRepo.On("Deduct", mock.Anything, s.workspaceID, 100, "conversation:"+conv.ID.String()).
		Return(true, nil)
	s.conversationRepo.On("MarkBilled", mock.Anything, conv.ID, 5, 100, models.BillingSourceCredits).
		Return(true, nil)
	s.usageRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.UsageRecord) bool {
		return r.Minutes == 5 && r.AmountCents == 100 && r.Source == models.BillingSourceCredits
	})).Return(nil)
	s.workspaceWithoutStripe()

	err := s.service.SettleConversation(context.Background(), conv)

	s.NoError(err)
	s.subscriptionRepo.AssertNotCalled(s.T(), "IncrementUsedMinutes", mock.Anything, mock.Anything, mock.Anything)
	s.creditsRepo.AssertExpectations(s.T())
}

func (s *BillingServiceTestSuite) TestSettle_EmptyCreditsFallThroughToPostpaid() {
	conv := s.conversation(60) // 1 billed minute at the default rate

	s.subscriptionRepo.On("GetActiveByWorkspace", mock.Anything, s.workspaceID).
		Return(nil, errors.New("no active subscription"))
	s.creditsRepo.On("Deduct", mock.Anything, s.workspaceID, 15, "conversation:"+conv.ID.String()).
		Return(false, nil)
	s.workspaceRepo.On("GetByID", mock.Anything, s.workspaceID).
		Return(&models.Workspace{ID: s.workspaceID, PartnerID: s.partnerID}, nil)
	s.partnerRepo.On("GetByID", mock.Anything, s.partnerID).
		Return(&models.Partner{ID: s.partnerID, BillingMode: models.PartnerBillingPostpaid}, nil)
	s.conversationRepo.On("MarkBilled", mock.Anything, conv.ID, 1, 15, models.BillingSourcePostpaid).
		Return(true, nil)
	s.usageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := s.service.SettleConversation(context.Background(), conv)

	s.NoError(err)
	s.partnerRepo.AssertExpectations(s.T())
	s.conversationRepo.AssertExpectations(s.T())
}

func (s *BillingServiceTestSuite) TestSettle_PartnerFallbackWhenPrepaidExhausted() {
	conv := s.conversation(60)

	s.subscriptionRepo.On("GetActiveByWorkspace", mock.Anything, s.workspaceID).
		Return(nil, errors.New("no active subscription"))
	s.creditsRepo.On("Deduct", mock.Anything, s.workspaceID, 15, mock.Anything).Return(false, nil)
	s.workspaceRepo.On("GetByID", mock.Anything, s.workspaceID).
		Return(&models.Workspace{ID: s.workspaceID, PartnerID: s.partnerID}, nil)
	s.partnerRepo.On("GetByID", mock.Anything, s.partnerID).
		Return(&models.Partner{ID: s.partnerID, BillingMode: models.PartnerBillingPrepaid, FallbackEnabled: true}, nil)
	s.conversationRepo.On("MarkBilled", mock.Anything, conv.ID, 1, 15, models.BillingSourcePartner).
		Return(true, nil)
	s.usageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := s.service.SettleConversation(context.Background(), conv)

	s.NoError(err)
	s.conversationRepo.AssertExpectations(s.T())
}

func (s *BillingServiceTestSuite) TestSettle_NoFundingSource_Errors() {
	conv := s.conversation(60)

	s.subscriptionRepo.On("GetActiveByWorkspace", mock.Anything, s.workspaceID).
		Return(nil, errors.New("no active subscription"))
	s.creditsRepo.On("Deduct", mock.Anything, s.workspaceID, 15, mock.Anything).Return(false, nil)
	s.workspaceRepo.On("GetByID", mock.Anything, s.workspaceID).
		Return(&models.Workspace{ID: s.workspaceID, PartnerID: s.partnerID}, nil)
	s.partnerRepo.On("GetByID", mock.Anything, s.partnerID).
		Return(&models.Partner{ID: s.partnerID, BillingMode: models.PartnerBillingPrepaid, FallbackEnabled: false}, nil)

	err := s.service.SettleConversation(context.Background(), conv)

	s.Error(err)
	s.Contains(err.Error(), "no funding source")
	s.conversationRepo.AssertNotCalled(s.T(), "MarkBilled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *BillingServiceTestSuite) TestSettle_LostRace_RefundsCredits() {
	conv := s.conversation(60)

	s.subscriptionRepo.On("GetActiveByWorkspace", mock.Anything, s.workspaceID).
		Return(nil, errors.New("no active subscription"))
	s.creditsRepo.On("Deduct", mock.Anything, s.workspaceID, 15, "conversation:"+conv.ID.String()).
		Return(true, nil)
	// Another worker stamped billed_at first.
	s.conversationRepo.On("MarkBilled", mock.Anything, conv.ID, 1, 15, models.BillingSourceCredits).
		Return(false, nil)
	s.creditsRepo.On("TopUp", mock.Anything, s.workspaceID, 15, models.CreditRefund, "conversation-refund:"+conv.ID.String()).
		Return(nil)

	err := s.service.SettleConversation(context.Background(), conv)

	s.NoError(err)
	s.creditsRepo.AssertExpectations(s.T())
	s.usageRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *BillingServiceTestSuite) TestSettle_LostRace_ReleasesSubscriptionMinutes() {
	conv := s.conversation(120)
	sub := &models.WorkspaceSubscription{
		ID:              uuid.New(),
		WorkspaceID:     s.workspaceID,
		IncludedMinutes: 100,
	}

	s.subscriptionRepo.On("GetActiveByWorkspace", mock.Anything, s.workspaceID).Return(sub, nil)
	s.subscriptionRepo.On("IncrementUsedMinutes", mock.Anything, sub.ID, 2).Return(true, nil)
	s.conversationRepo.On("MarkBilled", mock.Anything, conv.ID, 2, 0, models.BillingSourceSubscription).
		Return(false, nil)
	s.subscriptionRepo.On("ReleaseMinutes", mock.Anything, sub.ID, 2).Return(nil)

	err := s.service.SettleConversation(context.Background(), conv)

	s.NoError(err)
	s.subscriptionRepo.AssertExpectations(s.T())
}

func (s *BillingServiceTestSuite) TestSettle_EnqueuesMeterEventForStripeCustomer() {
	conv := s.conversation(60)
	customerID := "cus_123"

	s.subscriptionRepo.On("GetActiveByWorkspace", mock.Anything, s.workspaceID).
		Return(nil, errors.New("no active subscription"))
	s.creditsRepo.On("Deduct", mock.Anything, s.workspaceID, 15, mock.Anything).Return(true, nil)
	s.conversationRepo.On("MarkBilled", mock.Anything, conv.ID, 1, 15, models.BillingSourceCredits).
		Return(true, nil)
	s.usageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	s.workspaceRepo.On("GetByID", mock.Anything, s.workspaceID).
		Return(&models.Workspace{ID: s.workspaceID, PartnerID: s.partnerID, StripeCustomerID: &customerID}, nil)
	s.outboxRepo.On("Enqueue", mock.Anything, mock.MatchedBy(func(e *models.MeterOutbox) bool {
		return e.MeterName == "voice_minutes" &&
			e.Payload["stripe_customer_id"] == customerID &&
			e.Payload["value"] == 1
	})).Return(nil)

	err := s.service.SettleConversation(context.Background(), conv)

	s.NoError(err)
	s.outboxRepo.AssertExpectations(s.T())
}

func (s *BillingServiceTestSuite) TestHandleStripeEvent_PaymentIntentTopUpIsIdempotent() {
	intentID := "pi_123"
	event := &StripeEvent{ID: "evt_1", Type: "payment_intent.succeeded"}
	event.Data.Object = map[string]interface{}{
		"id":     intentID,
		"amount": float64(5000),
		"metadata": map[string]interface{}{
			"workspace_id": s.workspaceID.String(),
			"purpose":      "credit_purchase",
		},
	}

	// Already credited: the reference lookup hits.
	s.creditsRepo.On("GetTransactionByReference", mock.Anything, s.workspaceID, "payment_intent:"+intentID).
		Return(&models.CreditTransaction{ID: uuid.New()}, nil)

	err := s.service.HandleStripeEvent(context.Background(), event)

	s.NoError(err)
	s.creditsRepo.AssertNotCalled(s.T(), "TopUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBillingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BillingServiceTestSuite))
}

func TestBilledMinutesRounding(t *testing.T) {
	cases := []struct {
		seconds int
		minutes int
	}{
		{0, 0},
		{1, 1},
		{59, 1},
		{60, 1},
		{61, 2},
		{95, 2},
		{600, 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.minutes, common.BilledMinutes(tc.seconds))
	}
}
