package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

// UsageService reports billed usage and flushes the Stripe meter outbox.
type UsageService interface {
	GetSummary(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time) (*models.UsageSummary, error)
	ListRecords(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time, limit, offset int) ([]*models.UsageRecord, error)
	FlushOutbox(ctx context.Context, limit int) (int, error)
}

type usageService struct {
	usageRepo  repositories.UsageRepository
	outboxRepo repositories.OutboxRepository
	stripeSvc  StripeService
}

func NewUsageService(usageRepo repositories.UsageRepository, outboxRepo repositories.OutboxRepository, stripeSvc StripeService) UsageService {
	return &usageService{
		usageRepo:  usageRepo,
		outboxRepo: outboxRepo,
		stripeSvc:  stripeSvc,
	}
}

func (s *usageService) GetSummary(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time) (*models.UsageSummary, error) {
	if !periodEnd.After(periodStart) {
		return nil, fmt.Errorf("period end must be after period start")
	}
	return s.usageRepo.Summarize(ctx, workspaceID, periodStart, periodEnd)
}

func (s *usageService) ListRecords(ctx context.Context, workspaceID uuid.UUID, periodStart, periodEnd time.Time, limit, offset int) ([]*models.UsageRecord, error) {
	return s.usageRepo.List(ctx, workspaceID, periodStart, periodEnd, limit, offset)
}

// FlushOutbox pushes pending meter events to Stripe. Entries that keep
// failing park as failed after meterOutboxMaxAttempts.
func (s *usageService) FlushOutbox(ctx context.Context, limit int) (int, error) {
	entries, err := s.outboxRepo.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending meter events: %w", err)
	}

	sent := 0
	for _, entry := range entries {
		customerID, _ := entry.Payload["stripe_customer_id"].(string)
		value := 0
		switch v := entry.Payload["value"].(type) {
		case float64:
			value = int(v)
		case int:
			value = v
		}
		if customerID == "" || value <= 0 {
			log.Printf("Dropping malformed meter outbox entry %s", entry.ID)
			if err := s.outboxRepo.MarkFailed(ctx, entry.ID, 0); err != nil {
				log.Printf("Failed to park outbox entry %s: %v", entry.ID, err)
			}
			continue
		}

		if err := s.stripeSvc.SendMeterEvent(ctx, entry.MeterName, customerID, value, entry.CreatedAt); err != nil {
			log.Printf("Failed to send meter event %s: %v", entry.ID, err)
			if err := s.outboxRepo.MarkFailed(ctx, entry.ID, meterOutboxMaxAttempts); err != nil {
				log.Printf("Failed to bump attempts on outbox entry %s: %v", entry.ID, err)
			}
			continue
		}
		if err := s.outboxRepo.MarkSent(ctx, entry.ID); err != nil {
			log.Printf("Failed to mark outbox entry %s sent: %v", entry.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}
