// Package service contains business logic for docketwatch.
//
// This file implements the quota service for enforcing subscription
// tier limits: how many dockets a user may watch at once and how many
// automatic downloads their tier includes per month.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/repository"
)

// JobTypeAutoDownload matches the worker package's job type for
// fetching new free filings on a monitored docket.
const JobTypeAutoDownload = "auto_download"

// =============================================================================
// Store Interface
// =============================================================================

// QuotaStore is the subset of repository queries the quota service
// uses. *repository.Queries satisfies it.
type QuotaStore interface {
	CountMonitoredCasesByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	CountCompletedJobsByUserAndType(ctx context.Context, arg repository.CountCompletedJobsByUserAndTypeParams) (int64, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService defines operations for checking tier limits.
type QuotaService interface {
	// GetUsage reports how much of each tier budget the user has
	// consumed.
	GetUsage(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.QuotaUsage, error)

	// CheckMonitorQuota checks whether the user may watch one more
	// docket. Returns nil if so, or a QuotaExceeded error if not.
	CheckMonitorQuota(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) error

	// CheckAutoDownloadQuota checks whether the user has automatic
	// downloads left this month. Returns nil if so, or a
	// QuotaExceeded error if not.
	CheckAutoDownloadQuota(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) error
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	store  QuotaStore
	logger *slog.Logger
}

// NewQuotaService returns the store-backed QuotaService.
func NewQuotaService(store QuotaStore, logger *slog.Logger) QuotaService {
	return &quotaService{
		store:  store,
		logger: logger,
	}
}

// GetUsage counts current watches and this month's automatic
// downloads against the tier's budgets.
func (s *quotaService) GetUsage(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.QuotaUsage, error) {
	const op = "quota.get_usage"

	watched, err := s.store.CountMonitoredCasesByUserID(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count watches")
	}

	downloads, err := s.countAutoDownloadsThisMonth(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count auto-downloads")
	}

	return &domain.QuotaUsage{
		MonitoredCases:     int(watched),
		AutoDownloadsMonth: int(downloads),
	}, nil
}

// CheckMonitorQuota checks whether the user may watch one more docket.
func (s *quotaService) CheckMonitorQuota(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) error {
	const op = "quota.check_monitor"

	quota := domain.GetTierQuota(tier)
	if quota.UnlimitedMonitoring {
		return nil
	}

	count, err := s.store.CountMonitoredCasesByUserID(ctx, userID)
	if err != nil {
		return domain.Internal(err, op, "failed to count watches")
	}

	if count >= int64(quota.MaxMonitoredCases) {
		s.logger.Info("Monitor quota exceeded",
			"user_id", userID,
			"tier", tier,
			"used", count,
			"limit", quota.MaxMonitoredCases,
		)
		return domain.QuotaExceeded(op, domain.QuotaTypeMonitor, int(count), quota.MaxMonitoredCases)
	}

	return nil
}

// CheckAutoDownloadQuota checks whether the user has automatic
// downloads left this month.
func (s *quotaService) CheckAutoDownloadQuota(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) error {
	const op = "quota.check_auto_download"

	quota := domain.GetTierQuota(tier)
	if !quota.AutoDownloadEnabled {
		return domain.QuotaExceeded(op, domain.QuotaTypeAutoDownload, 0, 0)
	}

	count, err := s.countAutoDownloadsThisMonth(ctx, userID)
	if err != nil {
		return domain.Internal(err, op, "failed to count auto-downloads")
	}

	if count >= int64(quota.AutoDownloadsPerMonth) {
		s.logger.Info("Auto-download quota exceeded",
			"user_id", userID,
			"tier", tier,
			"used", count,
			"limit", quota.AutoDownloadsPerMonth,
		)
		return domain.QuotaExceeded(op, domain.QuotaTypeAutoDownload, int(count), quota.AutoDownloadsPerMonth)
	}

	return nil
}

func (s *quotaService) countAutoDownloadsThisMonth(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.CountCompletedJobsByUserAndType(ctx, repository.CountCompletedJobsByUserAndTypeParams{
		UserID:      uuid.NullUUID{UUID: userID, Valid: true},
		JobType:     JobTypeAutoDownload,
		CompletedAt: startOfCurrentMonth(),
	})
}

// startOfCurrentMonth returns the first instant of the current month
// in UTC. Monthly quotas reset on this boundary.
func startOfCurrentMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
