package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"genius365/internal/caching"
	"genius365/internal/models"
	"genius365/internal/repositories"

	"github.com/google/uuid"
)

const analyticsCacheTTL = 5 * time.Minute

// AnalyticsService computes and caches per-workspace call metrics.
type AnalyticsService struct {
	usageRepo        repositories.UsageRepository
	conversationRepo repositories.ConversationRepository
	campaignRepo     repositories.CampaignRepository
	cacheService     caching.CacheService
}

// WorkspaceCallStats is the dashboard aggregate for one workspace.
type WorkspaceCallStats struct {
	WorkspaceID      uuid.UUID      `json:"workspace_id"`
	PeriodStart      time.Time      `json:"period_start"`
	PeriodEnd        time.Time      `json:"period_end"`
	TotalCalls       int            `json:"total_calls"`
	TotalMinutes     int            `json:"total_minutes"`
	TotalAmountCents int            `json:"total_amount_cents"`
	MinutesBySource  map[string]int `json:"minutes_by_source"`
	LastUpdated      time.Time      `json:"last_updated"`
}

func NewAnalyticsService(
	usageRepo repositories.UsageRepository,
	conversationRepo repositories.ConversationRepository,
	campaignRepo repositories.CampaignRepository,
	cacheService caching.CacheService,
) *AnalyticsService {
	return &AnalyticsService{
		usageRepo:        usageRepo,
		conversationRepo: conversationRepo,
		campaignRepo:     campaignRepo,
		cacheService:     cacheService,
	}
}

// GetWorkspaceCallStats returns the current month's stats, from cache when
// fresh.
func (s *AnalyticsService) GetWorkspaceCallStats(ctx context.Context, workspaceID uuid.UUID) (*WorkspaceCallStats, error) {
	if cached, err := s.cacheService.GetWorkspaceAnalytics(ctx, workspaceID); err == nil && cached != nil {
		stats := statsFromCache(workspaceID, cached)
		if stats != nil {
			return stats, nil
		}
	}
	return s.RefreshWorkspaceCallStats(ctx, workspaceID)
}

// RefreshWorkspaceCallStats recomputes and recaches the aggregate.
func (s *AnalyticsService) RefreshWorkspaceCallStats(ctx context.Context, workspaceID uuid.UUID) (*WorkspaceCallStats, error) {
	now := time.Now()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	summary, err := s.usageRepo.Summarize(ctx, workspaceID, periodStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}

	stats := &WorkspaceCallStats{
		WorkspaceID:      workspaceID,
		PeriodStart:      periodStart,
		PeriodEnd:        now,
		TotalCalls:       summary.TotalCalls,
		TotalMinutes:     summary.TotalMinutes,
		TotalAmountCents: summary.TotalAmountCents,
		MinutesBySource:  summary.BySource,
		LastUpdated:      now,
	}

	cachePayload := map[string]interface{}{
		"period_start":       stats.PeriodStart.Format(time.RFC3339),
		"period_end":         stats.PeriodEnd.Format(time.RFC3339),
		"total_calls":        stats.TotalCalls,
		"total_minutes":      stats.TotalMinutes,
		"total_amount_cents": stats.TotalAmountCents,
		"minutes_by_source":  stats.MinutesBySource,
		"last_updated":       stats.LastUpdated.Format(time.RFC3339),
	}
	if err := s.cacheService.SetWorkspaceAnalytics(ctx, workspaceID, cachePayload, analyticsCacheTTL); err != nil {
		log.Printf("Failed to cache analytics for workspace %s: %v", workspaceID, err)
	}
	return stats, nil
}

func statsFromCache(workspaceID uuid.UUID, cached map[string]interface{}) *WorkspaceCallStats {
	lastUpdatedStr, ok := cached["last_updated"].(string)
	if !ok {
		return nil
	}
	lastUpdated, err := time.Parse(time.RFC3339, lastUpdatedStr)
	if err != nil || time.Since(lastUpdated) > analyticsCacheTTL {
		return nil
	}

	stats := &WorkspaceCallStats{WorkspaceID: workspaceID, LastUpdated: lastUpdated, MinutesBySource: map[string]int{}}
	if v, ok := cached["total_calls"].(float64); ok {
		stats.TotalCalls = int(v)
	}
	if v, ok := cached["total_minutes"].(float64); ok {
		stats.TotalMinutes = int(v)
	}
	if v, ok := cached["total_amount_cents"].(float64); ok {
		stats.TotalAmountCents = int(v)
	}
	if v, ok := cached["period_start"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			stats.PeriodStart = t
		}
	}
	if v, ok := cached["period_end"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			stats.PeriodEnd = t
		}
	}
	if m, ok := cached["minutes_by_source"].(map[string]interface{}); ok {
		for source, minutes := range m {
			if f, ok := minutes.(float64); ok {
				stats.MinutesBySource[source] = int(f)
			}
		}
	}
	return stats
}

// CampaignSnapshot folds recipient progress into the dashboard payload.
func (s *AnalyticsService) CampaignSnapshot(ctx context.Context, workspaceID, campaignID uuid.UUID) (*models.CampaignProgress, error) {
	progress, err := s.campaignRepo.GetProgress(ctx, workspaceID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign progress: %w", err)
	}
	campaign, err := s.campaignRepo.GetByID(ctx, workspaceID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign not found: %w", err)
	}
	progress.Status = campaign.Status
	return progress, nil
}
