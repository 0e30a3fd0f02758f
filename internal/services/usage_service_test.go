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

type UsageServiceTestSuite struct {
	suite.Suite
	usageRepo  *MockUsageRepository
	outboxRepo *MockOutboxRepository
	stripeSvc  *MockStripeService
	service    UsageService

	workspaceID uuid.UUID
}

func (s *UsageServiceTestSuite) SetupTest() {
	s.usageRepo = new(MockUsageRepository)
	s.outboxRepo = new(MockOutboxRepository)
	s.stripeSvc = new(MockStripeService)
	s.service = NewUsageService(s.usageRepo, s.outboxRepo, s.stripeSvc)
	s.workspaceID = uuid.New()
}

func (s *UsageServiceTestSuite) outboxEntry(customerID string, value interface{}) *models.MeterOutbox {
	return &models.MeterOutbox{
		ID:          uuid.New(),
		WorkspaceID: s.workspaceID,
		MeterName:   "voice_minutes",
		Payload: models.JSONB{
			"stripe_customer_id": customerID,
			"value":              value,
		},
		CreatedAt: time.Now(),
	}
}

func (s *UsageServiceTestSuite) TestFlushOutbox_SendsAndMarksSent() {
	entry := s.outboxEntry("cus_123", float64(3))

	s.outboxRepo.On("ListPending", mock.Anything, 100).Return([]*models.MeterOutbox{entry}, nil)
	s.stripeSvc.On("SendMeterEvent", mock.Anything, "voice_minutes", "cus_123", 3, entry.CreatedAt).Return(nil)
	s.outboxRepo.On("MarkSent", mock.Anything, entry.ID).Return(nil)

	sent, err := s.service.FlushOutbox(context.Background(), 100)

	s.NoError(err)
	s.Equal(1, sent)
	s.stripeSvc.AssertExpectations(s.T())
	s.outboxRepo.AssertExpectations(s.T())
}

func (s *UsageServiceTestSuite) TestFlushOutbox_StripeFailureBumpsAttempts() {
	entry := s.outboxEntry("cus_123", float64(3))

	s.outboxRepo.On("ListPending", mock.Anything, 100).Return([]*models.MeterOutbox{entry}, nil)
	s.stripeSvc.On("SendMeterEvent", mock.Anything, "voice_minutes", "cus_123", 3, entry.CreatedAt).
		Return(errors.New("stripe unavailable"))
	s.outboxRepo.On("MarkFailed", mock.Anything, entry.ID, meterOutboxMaxAttempts).Return(nil)

	sent, err := s.service.FlushOutbox(context.Background(), 100)

	s.NoError(err)
	s.Equal(0, sent)
	s.outboxRepo.AssertNotCalled(s.T(), "MarkSent", mock.Anything, mock.Anything)
	s.outboxRepo.AssertExpectations(s.T())
}

func (s *UsageServiceTestSuite) TestFlushOutbox_ParksMalformedEntry() {
	entry := s.outboxEntry("", float64(3))

	s.outboxRepo.On("ListPending", mock.Anything, 100).Return([]*models.MeterOutbox{entry}, nil)
	s.outboxRepo.On("MarkFailed", mock.Anything, entry.ID, 0).Return(nil)

	sent, err := s.service.FlushOutbox(context.Background(), 100)

	s.NoError(err)
	s.Equal(0, sent)
	s.stripeSvc.AssertNotCalled(s.T(), "SendMeterEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *UsageServiceTestSuite) TestFlushOutbox_OneBadEntryDoesNotBlockOthers() {
	bad := s.outboxEntry("cus_bad", float64(2))
	good := s.outboxEntry("cus_good", float64(5))

	s.outboxRepo.On("ListPending", mock.Anything, 100).Return([]*models.MeterOutbox{bad, good}, nil)
	s.stripeSvc.On("SendMeterEvent", mock.Anything, "voice_minutes", "cus_bad", 2, bad.CreatedAt).
		Return(errors.New("customer deleted"))
	s.outboxRepo.On("MarkFailed", mock.Anything, bad.ID, meterOutboxMaxAttempts).Return(nil)
	s.stripeSvc.On("SendMeterEvent", mock.Anything, "voice_minutes", "cus_good", 5, good.CreatedAt).Return(nil)
	s.outboxRepo.On("MarkSent", mock.Anything, good.ID).Return(nil)

	sent, err := s.service.FlushOutbox(context.Background(), 100)

	s.NoError(err)
	s.Equal(1, sent)
	s.outboxRepo.AssertExpectations(s.T())
}

func (s *UsageServiceTestSuite) TestGetSummary_RejectsInvertedPeriod() {
	now := time.Now()

	summary, err := s.service.GetSummary(context.Background(), s.workspaceID, now, now.Add(-time.Hour))

	s.Error(err)
	s.Nil(summary)
	s.usageRepo.AssertNotCalled(s.T(), "Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *UsageServiceTestSuite) TestGetSummary_DelegatesToRepo() {
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()
	expected := &models.UsageSummary{TotalMinutes: 42, TotalAmountCents: 630}

	s.usageRepo.On("Summarize", mock.Anything, s.workspaceID, from, to).Return(expected, nil)

	summary, err := s.service.GetSummary(context.Background(), s.workspaceID, from, to)

	s.NoError(err)
	s.Equal(expected, summary)
}

func TestUsageServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UsageServiceTestSuite))
}
