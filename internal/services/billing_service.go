package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"genius365/internal/common"
	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

// PlanDetails is a predefined subscription plan.
type PlanDetails struct {
	Name            string
	StripePriceID   string
	IncludedMinutes int
	PriceCents      int
	PerMinuteCents  int
}

// PredefinedPlans are the plans a workspace can subscribe to.
var PredefinedPlans = map[string]PlanDetails{
	"starter": {
		Name:            "starter",
		StripePriceID:   "price_starter_monthly",
		IncludedMinutes: 500,
		PriceCents:      4900,
		PerMinuteCents:  12,
	},
	"growth": {
		Name:            "growth",
		StripePriceID:   "price_growth_monthly",
		IncludedMinutes: 2000,
		PriceCents:      14900,
		PerMinuteCents:  10,
	},
	"scale": {
		Name:            "scale",
		StripePriceID:   "price_scale_monthly",
		IncludedMinutes: 10000,
		PriceCents:      49900,
		PerMinuteCents:  8,
	},
}

// defaultPerMinuteCents applies when a workspace has no active plan to take a
// rate from.
const defaultPerMinuteCents = 15

const meterOutboxMaxAttempts = 5

// BillingService settles completed calls against the workspace's funding
// sources and manages plans, credits and Stripe reconciliation.
type BillingService interface {
	SettleConversation(ctx context.Context, conversation *models.Conversation) error
	SettleUnbilled(ctx context.Context, limit int) (int, error)

	ListPlans() []PlanDetails
	Subscribe(ctx context.Context, workspaceID uuid.UUID, planName string) (*models.WorkspaceSubscription, error)
	CancelSubscription(ctx context.Context, workspaceID uuid.UUID) error
	GetSubscription(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceSubscription, error)

	GetCredits(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceCredits, error)
	PurchaseCredits(ctx context.Context, workspaceID uuid.UUID, amountCents int) (*StripePaymentIntent, error)
	ListCreditTransactions(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error)

	HandleStripeEvent(ctx context.Context, event *StripeEvent) error
	RollDuePeriods(ctx context.Context, limit int) (int, error)
}

type billingService struct {
	conversationRepo repositories.ConversationRepository
	subscriptionRepo repositories.SubscriptionRepository
	creditsRepo      repositories.CreditsRepository
	usageRepo        repositories.UsageRepository
	outboxRepo       repositories.OutboxRepository
	workspaceRepo    repositories.WorkspaceRepository
	partnerRepo      repositories.PartnerRepository
	stripeSvc        StripeService
	meterName        string
}

func NewBillingService(
	conversationRepo repositories.ConversationRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	creditsRepo repositories.CreditsRepository,
	usageRepo repositories.UsageRepository,
	outboxRepo repositories.OutboxRepository,
	workspaceRepo repositories.WorkspaceRepository,
	partnerRepo repositories.PartnerRepository,
	stripeSvc StripeService,
	meterName string,
) BillingService {
	return &billingService{
		conversationRepo: conversationRepo,
		subscriptionRepo: subscriptionRepo,
		creditsRepo:      creditsRepo,
		usageRepo:        usageRepo,
		outboxRepo:       outboxRepo,
		workspaceRepo:    workspaceRepo,
		partnerRepo:      partnerRepo,
		stripeSvc:        stripeSvc,
		meterName:        meterName,
	}
}

// SettleConversation deducts a completed call from exactly one funding source,
// in order: subscription minutes, prepaid credits, postpaid, partner fallback.
// The whole amount comes from a single source; a subscription with fewer
// remaining minutes than the call needs is skipped, not split.
func (s *billingService) SettleConversation(ctx context.Context, conversation *models.Conversation) error {
	if conversation.BilledAt != nil {
		return nil
	}
	if conversation.Status != models.ConversationCompleted {
		return fmt.Errorf("conversation %s is not completed", conversation.ID)
	}

	minutes := common.BilledMinutes(conversation.DurationSeconds)
	if minutes == 0 {
		if _, err := s.conversationRepo.MarkBilled(ctx, conversation.ID, 0, 0, models.BillingSourceNone); err != nil {
			return fmt.Errorf("failed to mark zero-duration conversation billed: %w", err)
		}
		return nil
	}

	sub, err := s.subscriptionRepo.GetActiveByWorkspace(ctx, conversation.WorkspaceID)
	if err != nil {
		sub = nil
	}

	rate := defaultPerMinuteCents
	if sub != nil && sub.PerMinuteCents > 0 {
		rate = sub.PerMinuteCents
	}
	amount := minutes * rate

	source := ""
	billedAmount := 0

	// 1. Subscription minutes, only if the whole call fits.
	if sub != nil && sub.RemainingMinutes() >= minutes {
		consumed, err := s.subscriptionRepo.IncrementUsedMinutes(ctx, sub.ID, minutes)
		if err != nil {
			return fmt.Errorf("failed to consume subscription minutes: %w", err)
		}
		if consumed {
			source = models.BillingSourceSubscription
		}
	}

	// 2. Prepaid credits.
	if source == "" {
		reference := fmt.Sprintf("conversation:%s", conversation.ID)
		deducted, err := s.creditsRepo.Deduct(ctx, conversation.WorkspaceID, amount, reference)
		if err != nil {
			return fmt.Errorf("failed to deduct credits: %w", err)
		}
		if deducted {
			source = models.BillingSourceCredits
			billedAmount = amount
		}
	}

	// 3 and 4 need the partner's billing posture.
	if source == "" {
		workspace, err := s.workspaceRepo.GetByID(ctx, conversation.WorkspaceID)
		if err != nil {
			return fmt.Errorf("failed to load workspace for settlement: %w", err)
		}
		partner, err := s.partnerRepo.GetByID(ctx, workspace.PartnerID)
		if err != nil {
			return fmt.Errorf("failed to load partner for settlement: %w", err)
		}
		if partner.BillingMode == models.PartnerBillingPostpaid {
			source = models.BillingSourcePostpaid
			billedAmount = amount
		} else if partner.FallbackEnabled {
			source = models.BillingSourcePartner
			billedAmount = amount
		}
	}

	if source == "" {
		return fmt.Errorf("no funding source for conversation %s: %d minutes unpaid", conversation.ID, minutes)
	}

	billed, err := s.conversationRepo.MarkBilled(ctx, conversation.ID, minutes, billedAmount, source)
	if err != nil {
		s.compensate(ctx, conversation, sub, source, minutes, billedAmount)
		return fmt.Errorf("failed to stamp billed_at: %w", err)
	}
	if !billed {
		// Another worker settled first; give the consumption back.
		s.compensate(ctx, conversation, sub, source, minutes, billedAmount)
		return nil
	}

	s.recordUsage(ctx, conversation, minutes, billedAmount, source)
	return nil
}

func (s *billingService) compensate(ctx context.Context, conversation *models.Conversation, sub *models.WorkspaceSubscription, source string, minutes, amount int) {
	switch source {
	case models.BillingSourceSubscription:
		if sub != nil {
			if err := s.subscriptionRepo.ReleaseMinutes(ctx, sub.ID, minutes); err != nil {
				log.Printf("Failed to release %d minutes for subscription %s: %v", minutes, sub.ID, err)
			}
		}
	case models.BillingSourceCredits:
		reference := fmt.Sprintf("conversation-refund:%s", conversation.ID)
		if err := s.creditsRepo.TopUp(ctx, conversation.WorkspaceID, amount, models.CreditRefund, reference); err != nil {
			log.Printf("Failed to refund %d cents to workspace %s: %v", amount, conversation.WorkspaceID, err)
		}
	}
}

func (s *billingService) recordUsage(ctx context.Context, conversation *models.Conversation, minutes, amount int, source string) {
	record := &models.UsageRecord{
		ID:             uuid.New(),
		WorkspaceID:    conversation.WorkspaceID,
		ConversationID: conversation.ID,
		Minutes:        minutes,
		AmountCents:    amount,
		Source:         source,
	}
	if err := s.usageRepo.Create(ctx, record); err != nil {
		log.Printf("Failed to record usage for conversation %s: %v", conversation.ID, err)
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, conversation.WorkspaceID)
	if err != nil || workspace.StripeCustomerID == nil {
		return
	}
	entry := &models.MeterOutbox{
		ID:          uuid.New(),
		WorkspaceID: conversation.WorkspaceID,
		MeterName:   s.meterName,
		Payload: models.JSONB{
			"stripe_customer_id": *workspace.StripeCustomerID,
			"value":              minutes,
			"conversation_id":    conversation.ID.String(),
			"source":             source,
		},
	}
	if err := s.outboxRepo.Enqueue(ctx, entry); err != nil {
		log.Printf("Failed to enqueue meter event for conversation %s: %v", conversation.ID, err)
	}
}

// SettleUnbilled sweeps completed calls that never settled, typically because
// the end-of-call webhook handler died mid-settlement.
func (s *billingService) SettleUnbilled(ctx context.Context, limit int) (int, error) {
	conversations, err := s.conversationRepo.ListUnbilledCompleted(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unbilled conversations: %w", err)
	}

	settled := 0
	for _, conversation := range conversations {
		if err := s.SettleConversation(ctx, conversation); err != nil {
			log.Printf("Settlement sweep skipped conversation %s: %v", conversation.ID, err)
			continue
		}
		settled++
	}
	return settled, nil
}

func (s *billingService) ListPlans() []PlanDetails {
	plans := make([]PlanDetails, 0, len(PredefinedPlans))
	for _, plan := range PredefinedPlans {
		plans = append(plans, plan)
	}
	return plans
}

func (s *billingService) Subscribe(ctx context.Context, workspaceID uuid.UUID, planName string) (*models.WorkspaceSubscription, error) {
	plan, ok := PredefinedPlans[planName]
	if !ok {
		return nil, fmt.Errorf("unknown plan %q", planName)
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("workspace not found: %w", err)
	}
	if workspace.StripeCustomerID == nil {
		return nil, fmt.Errorf("workspace %s has no stripe customer", workspaceID)
	}

	if existing, err := s.subscriptionRepo.GetActiveByWorkspace(ctx, workspaceID); err == nil && existing != nil {
		return nil, fmt.Errorf("workspace %s already has an active subscription", workspaceID)
	}

	stripeSub, err := s.stripeSvc.CreateSubscription(ctx, *workspace.StripeCustomerID, plan.StripePriceID)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe subscription: %w", err)
	}

	now := time.Now()
	periodEnd := time.Unix(stripeSub.CurrentPeriodEnd, 0)
	sub := &models.WorkspaceSubscription{
		ID:                   uuid.New(),
		WorkspaceID:          workspaceID,
		StripeSubscriptionID: &stripeSub.ID,
		PlanName:             plan.Name,
		Status:               "active",
		IncludedMinutes:      plan.IncludedMinutes,
		UsedMinutes:          0,
		PriceCents:           plan.PriceCents,
		PerMinuteCents:       plan.PerMinuteCents,
		CurrentPeriodStart:   now,
		CurrentPeriodEnd:     &periodEnd,
	}
	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to store subscription: %w", err)
	}
	return sub, nil
}

func (s *billingService) CancelSubscription(ctx context.Context, workspaceID uuid.UUID) error {
	sub, err := s.subscriptionRepo.GetActiveByWorkspace(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("no active subscription for workspace %s", workspaceID)
	}
	if sub.StripeSubscriptionID != nil {
		if _, err := s.stripeSvc.CancelSubscription(ctx, *sub.StripeSubscriptionID); err != nil {
			return fmt.Errorf("failed to cancel stripe subscription: %w", err)
		}
	}
	sub.Status = "cancelled"
	return s.subscriptionRepo.Update(ctx, sub)
}

func (s *billingService) GetSubscription(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceSubscription, error) {
	return s.subscriptionRepo.GetActiveByWorkspace(ctx, workspaceID)
}

func (s *billingService) GetCredits(ctx context.Context, workspaceID uuid.UUID) (*models.WorkspaceCredits, error) {
	if err := s.creditsRepo.EnsureWallet(ctx, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return s.creditsRepo.GetByWorkspace(ctx, workspaceID)
}

func (s *billingService) PurchaseCredits(ctx context.Context, workspaceID uuid.UUID, amountCents int) (*StripePaymentIntent, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("workspace not found: %w", err)
	}
	if workspace.StripeCustomerID == nil {
		return nil, fmt.Errorf("workspace %s has no stripe customer", workspaceID)
	}

	intent, err := s.stripeSvc.CreatePaymentIntent(ctx, *workspace.StripeCustomerID, amountCents, "usd", map[string]string{
		"workspace_id": workspaceID.String(),
		"purpose":      "credit_purchase",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intent, nil
}

func (s *billingService) ListCreditTransactions(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error) {
	return s.creditsRepo.ListTransactions(ctx, workspaceID, limit, offset)
}

// HandleStripeEvent reconciles inbound Stripe webhooks. Credit top-ups are
// idempotent on the payment intent id.
func (s *billingService) HandleStripeEvent(ctx context.Context, event *StripeEvent) error {
	switch event.Type {
	case "payment_intent.succeeded":
		return s.handlePaymentIntentSucceeded(ctx, event)
	case "customer.subscription.updated", "customer.subscription.deleted":
		return s.handleSubscriptionChanged(ctx, event)
	case "invoice.paid":
		return s.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		return s.handleInvoicePaymentFailed(ctx, event)
	default:
		log.Printf("Ignoring stripe event type %s", event.Type)
		return nil
	}
}

func (s *billingService) handlePaymentIntentSucceeded(ctx context.Context, event *StripeEvent) error {
	object := event.Data.Object
	intentID, _ := object["id"].(string)
	amount, _ := object["amount"].(float64)
	metadata, _ := object["metadata"].(map[string]interface{})
	if metadata == nil {
		return nil
	}
	purpose, _ := metadata["purpose"].(string)
	if purpose != "credit_purchase" {
		return nil
	}
	workspaceIDStr, _ := metadata["workspace_id"].(string)
	workspaceID, err := uuid.Parse(workspaceIDStr)
	if err != nil {
		return fmt.Errorf("payment intent %s carries invalid workspace_id: %w", intentID, err)
	}

	reference := fmt.Sprintf("payment_intent:%s", intentID)
	if existing, err := s.creditsRepo.GetTransactionByReference(ctx, workspaceID, reference); err == nil && existing != nil {
		return nil
	}

	if err := s.creditsRepo.EnsureWallet(ctx, workspaceID); err != nil {
		return fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return s.creditsRepo.TopUp(ctx, workspaceID, int(amount), models.CreditPurchase, reference)
}

func (s *billingService) handleSubscriptionChanged(ctx context.Context, event *StripeEvent) error {
	object := event.Data.Object
	stripeSubID, _ := object["id"].(string)
	status, _ := object["status"].(string)
	if stripeSubID == "" {
		return nil
	}

	sub, err := s.subscriptionRepo.GetByStripeSubscriptionID(ctx, stripeSubID)
	if err != nil {
		log.Printf("Stripe subscription %s has no local record", stripeSubID)
		return nil
	}

	if event.Type == "customer.subscription.deleted" {
		sub.Status = "cancelled"
	} else if status != "" {
		sub.Status = status
	}
	return s.subscriptionRepo.Update(ctx, sub)
}

func (s *billingService) handleInvoicePaid(ctx context.Context, event *StripeEvent) error {
	object := event.Data.Object
	stripeSubID, _ := object["subscription"].(string)
	if stripeSubID == "" {
		return nil
	}
	sub, err := s.subscriptionRepo.GetByStripeSubscriptionID(ctx, stripeSubID)
	if err != nil {
		return nil
	}

	periodStart := time.Now()
	var periodEnd *time.Time
	if endUnix, ok := object["period_end"].(float64); ok && endUnix > 0 {
		t := time.Unix(int64(endUnix), 0)
		periodEnd = &t
	}
	return s.subscriptionRepo.ResetPeriod(ctx, sub.ID, periodStart, periodEnd)
}

func (s *billingService) handleInvoicePaymentFailed(ctx context.Context, event *StripeEvent) error {
	object := event.Data.Object
	stripeSubID, _ := object["subscription"].(string)
	if stripeSubID == "" {
		return nil
	}
	sub, err := s.subscriptionRepo.GetByStripeSubscriptionID(ctx, stripeSubID)
	if err != nil {
		return nil
	}
	sub.Status = "past_due"
	return s.subscriptionRepo.Update(ctx, sub)
}

// RollDuePeriods resets used minutes on subscriptions whose billing period
// lapsed without an invoice.paid event arriving.
func (s *billingService) RollDuePeriods(ctx context.Context, limit int) (int, error) {
	subs, err := s.subscriptionRepo.ListDuePeriodRoll(ctx, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	rolled := 0
	for _, sub := range subs {
		periodStart := time.Now()
		var periodEnd *time.Time
		if sub.CurrentPeriodEnd != nil {
			t := sub.CurrentPeriodEnd.AddDate(0, 1, 0)
			periodEnd = &t
		}
		if err := s.subscriptionRepo.ResetPeriod(ctx, sub.ID, periodStart, periodEnd); err != nil {
			log.Printf("Failed to roll period for subscription %s: %v", sub.ID, err)
			continue
		}
		rolled++
	}
	return rolled, nil
}
