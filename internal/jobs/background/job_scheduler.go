package background

import (
	"context"
	"log"
	"sync"
	"time"

	"genius365/internal/analytics"
	"genius365/internal/repositories"
	"genius365/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// JobScheduler runs the recurring control-plane work: campaign dispatch,
// billing settlement, meter outbox delivery and stale-call cleanup.
type JobScheduler struct {
	scheduler     gocron.Scheduler
	campaignSvc   services.CampaignService
	billingSvc    services.BillingService
	usageSvc      services.UsageService
	convSvc       services.ConversationService
	analyticsSvc  *analytics.AnalyticsService
	workspaceRepo repositories.WorkspaceRepository
	jobs          map[string]gocron.Job
	mu            sync.RWMutex
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(
	campaignSvc services.CampaignService,
	billingSvc services.BillingService,
	usageSvc services.UsageService,
	convSvc services.ConversationService,
	analyticsSvc *analytics.AnalyticsService,
	workspaceRepo repositories.WorkspaceRepository,
) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:     scheduler,
		campaignSvc:   campaignSvc,
		billingSvc:    billingSvc,
		usageSvc:      usageSvc,
		convSvc:       convSvc,
		analyticsSvc:  analyticsSvc,
		workspaceRepo: workspaceRepo,
		jobs:          make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	register := func(name string, interval time.Duration, task interface{}) {
		job, err := js.scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(task, context.Background()),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			log.Printf("Failed to create %s job: %v", name, err)
			return
		}
		js.mu.Lock()
		js.jobs[name] = job
		js.mu.Unlock()
	}

	// Campaign dispatch sweep keeps running campaigns moving even when the
	// per-call webhook refill path misses an event.
	register("campaign-dispatch", 30*time.Second, js.dispatchCampaigns)

	// Meter outbox delivery to Stripe.
	register("meter-outbox-flush", time.Minute, js.flushMeterOutbox)

	// Settlement sweep for completed calls the synchronous path missed.
	register("billing-settlement-sweep", 2*time.Minute, js.settleUnbilled)

	// Recipients stuck in dialing beyond the call duration cap.
	register("stale-dialing-cleanup", 2*time.Minute, js.failStaleDialing)

	// Calls stuck in progress; reconcile against the provider.
	register("stale-call-reaper", 5*time.Minute, js.reapStaleCalls)

	// Dashboard aggregates.
	register("workspace-analytics-refresh", 5*time.Minute, js.refreshWorkspaceAnalytics)

	// Subscription periods past their end roll over hourly.
	register("subscription-period-roll", time.Hour, js.rollSubscriptionPeriods)

	js.mu.RLock()
	log.Printf("Registered %d background jobs", len(js.jobs))
	js.mu.RUnlock()
}

func (js *JobScheduler) dispatchCampaigns(ctx context.Context) {
	if err := js.campaignSvc.DispatchRunning(ctx, 50); err != nil {
		log.Printf("Campaign dispatch sweep failed: %v", err)
	}
}

func (js *JobScheduler) flushMeterOutbox(ctx context.Context) {
	sent, err := js.usageSvc.FlushOutbox(ctx, 100)
	if err != nil {
		log.Printf("Meter outbox flush failed: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("Flushed %d meter events to Stripe", sent)
	}
}

func (js *JobScheduler) settleUnbilled(ctx context.Context) {
	settled, err := js.billingSvc.SettleUnbilled(ctx, 50)
	if err != nil {
		log.Printf("Settlement sweep failed: %v", err)
		return
	}
	if settled > 0 {
		log.Printf("Settlement sweep billed %d conversations", settled)
	}
}

func (js *JobScheduler) failStaleDialing(ctx context.Context) {
	failed, err := js.campaignSvc.FailStaleDialing(ctx, 15*time.Minute, 100)
	if err != nil {
		log.Printf("Stale dialing cleanup failed: %v", err)
		return
	}
	if failed > 0 {
		log.Printf("Marked %d stale dialing recipients as failed", failed)
	}
}

func (js *JobScheduler) reapStaleCalls(ctx context.Context) {
	reaped, err := js.convSvc.ReapStale(ctx, 2*time.Hour, 100)
	if err != nil {
		log.Printf("Stale call reaper failed: %v", err)
		return
	}
	if reaped > 0 {
		log.Printf("Reconciled %d stale in-progress calls", reaped)
	}
}

// refreshWorkspaceAnalytics warms the dashboard cache for all active
// workspaces with bounded concurrency.
func (js *JobScheduler) refreshWorkspaceAnalytics(ctx context.Context) {
	workspaces, err := js.workspaceRepo.ListActive(ctx, 1000, 0)
	if err != nil {
		log.Printf("Failed to list workspaces for analytics refresh: %v", err)
		return
	}

	semaphore := make(chan struct{}, 5)
	var wg sync.WaitGroup
	for _, workspace := range workspaces {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(id uuid.UUID) {
			defer wg.Done()
			defer func() { <-semaphore }()
			if _, err := js.analyticsSvc.RefreshWorkspaceCallStats(ctx, id); err != nil {
				log.Printf("Analytics refresh failed for workspace %s: %v", id, err)
			}
		}(workspace.ID)
	}
	wg.Wait()
}

func (js *JobScheduler) rollSubscriptionPeriods(ctx context.Context) {
	rolled, err := js.billingSvc.RollDuePeriods(ctx, 100)
	if err != nil {
		log.Printf("Subscription period roll failed: %v", err)
		return
	}
	if rolled > 0 {
		log.Printf("Rolled %d subscription periods", rolled)
	}
}
