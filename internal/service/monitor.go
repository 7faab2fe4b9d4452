// Package service contains the business logic layer.
//
// This file implements monitored cases: watches on dockets for new
// filings. The archive's subscription list is the source of truth; a
// watch is only recorded locally after the archive confirms it, and
// reconciliation replaces local state with whatever the archive
// reports. A background poller checks watched dockets for updates on
// an interval and runs only while at least one case is monitored.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/metrics"
	"github.com/thorsby/docketwatch/internal/repository"
)

const defaultUpdateInterval = 30 * time.Second

// =============================================================================
// Store and Collaborator Interfaces
// =============================================================================

// MonitorStore is the subset of repository queries the monitor service
// uses. *repository.Queries satisfies it.
type MonitorStore interface {
	CreateMonitoredCase(ctx context.Context, arg repository.CreateMonitoredCaseParams) (repository.MonitoredCase, error)
	GetMonitoredCaseByUserAndDocket(ctx context.Context, arg repository.GetMonitoredCaseByUserAndDocketParams) (repository.MonitoredCase, error)
	DeleteMonitoredCaseByUserAndDocket(ctx context.Context, arg repository.DeleteMonitoredCaseByUserAndDocketParams) (int64, error)
	ListMonitoredCasesByUserID(ctx context.Context, userID uuid.UUID) ([]repository.MonitoredCase, error)
	ListUsersWithMonitoredCases(ctx context.Context) ([]repository.User, error)
	UpdateMonitoredCaseSignal(ctx context.Context, arg repository.UpdateMonitoredCaseSignalParams) error
}

// AutoDownloadEnqueuer schedules background fetching of new free
// filings on a docket that reported updates.
type AutoDownloadEnqueuer interface {
	EnqueueAutoDownload(ctx context.Context, userID uuid.UUID, docketID string) error
}

// AlertSender delivers new-filing notifications.
type AlertSender interface {
	SendFilingAlert(ctx context.Context, to, name, caseName string, newEntries int) error
}

// =============================================================================
// Configuration
// =============================================================================

// MonitorConfig tunes the update poller. Tests inject short intervals;
// production uses the default.
type MonitorConfig struct {
	UpdateInterval time.Duration // Delay between update sweeps
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = defaultUpdateInterval
	}
	return c
}

// =============================================================================
// Interface Definition
// =============================================================================

// MonitorService defines operations for watching dockets.
type MonitorService interface {
	// Start begins watching a docket. Recorded locally only after the
	// archive confirms the subscription; starting an already watched
	// docket is a no-op.
	// Returns EINVALID if no archive token is configured, EPAYMENT if
	// the tier's watch quota is exhausted, ENOTFOUND if the docket
	// does not exist.
	Start(ctx context.Context, user *domain.User, docketID string) (*domain.MonitoredCase, error)

	// Stop ends a watch. Removed locally only after the archive
	// confirms the subscription is gone; stopping an unwatched docket
	// is a no-op.
	Stop(ctx context.Context, user *domain.User, docketID string) error

	// List returns the user's watches from local state. It never
	// contacts the archive.
	List(ctx context.Context, user *domain.User) ([]domain.MonitoredCase, error)

	// Reconcile replaces local watch state with the archive's
	// subscription list and returns the result. Watches the archive
	// no longer reports are dropped; ones it reports that are missing
	// locally are added.
	Reconcile(ctx context.Context, user *domain.User) ([]domain.MonitoredCase, error)

	// RefreshUpdates checks every watched docket for new filings now,
	// without waiting for the poller. It uses the same underlying
	// check as the poller, so signals and alerts stay consistent.
	RefreshUpdates(ctx context.Context, user *domain.User) ([]domain.UpdateSignal, error)

	// Close stops the update poller and waits for a sweep in flight
	// to finish.
	Close()
}

// =============================================================================
// Implementation
// =============================================================================

type monitorService struct {
	store    MonitorStore
	archive  courtdata.Service
	quota    QuotaService
	enqueuer AutoDownloadEnqueuer // may be nil; disables auto-download
	alerts   AlertSender          // may be nil; disables email alerts
	config   MonitorConfig
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	polling bool
}

// NewMonitorService creates a new MonitorService. Close must be called
// to stop the update poller.
func NewMonitorService(store MonitorStore, archive courtdata.Service, quota QuotaService, enqueuer AutoDownloadEnqueuer, alerts AlertSender, config MonitorConfig, logger *slog.Logger) MonitorService {
	ctx, cancel := context.WithCancel(context.Background())
	return &monitorService{
		store:    store,
		archive:  archive,
		quota:    quota,
		enqueuer: enqueuer,
		alerts:   alerts,
		config:   config.withDefaults(),
		logger:   logger,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// =============================================================================
// Start / Stop
// =============================================================================

// Start begins watching a docket.
func (s *monitorService) Start(ctx context.Context, user *domain.User, docketID string) (*domain.MonitoredCase, error) {
	const op = "monitor.start"

	if docketID == "" {
		return nil, domain.Invalid(op, "Docket ID is required.")
	}

	// Already watching: nothing to do, remotely or locally.
	if row, err := s.store.GetMonitoredCaseByUserAndDocket(ctx, repository.GetMonitoredCaseByUserAndDocketParams{
		UserID:   user.ID,
		DocketID: docketID,
	}); err == nil {
		return monitoredCaseFromRow(row), nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check watch state")
	}

	acct, err := requireArchiveToken(op, user)
	if err != nil {
		return nil, err
	}

	if err := s.quota.CheckMonitorQuota(ctx, user.ID, user.EffectiveTier()); err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.archive.MonitorStart(ctx, acct, docketID)
	observeArchive("monitor_start", start, err)
	if err != nil {
		return nil, mapArchiveError(op, "docket", docketID, err)
	}

	// Confirm against the archive's own list before recording
	// anything. The list is also where the docket metadata comes
	// from, so nothing client-supplied is stored.
	docket, err := s.confirmWatched(ctx, op, acct, docketID, true)
	if err != nil {
		return nil, err
	}

	row, err := s.store.CreateMonitoredCase(ctx, repository.CreateMonitoredCaseParams{
		UserID:       user.ID,
		DocketID:     docketID,
		CaseName:     docket.CaseName,
		DocketNumber: docket.DocketNumber,
		Court:        docket.Court,
		DateFiled:    toNullTime(docket.DateFiled),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to record watch")
	}

	s.ensurePoller()

	s.logger.Info("Watch started",
		"user_id", user.ID,
		"docket_id", docketID,
		"case_name", docket.CaseName,
	)

	return monitoredCaseFromRow(row), nil
}

// Stop ends a watch.
func (s *monitorService) Stop(ctx context.Context, user *domain.User, docketID string) error {
	const op = "monitor.stop"

	if docketID == "" {
		return domain.Invalid(op, "Docket ID is required.")
	}

	acct, err := requireArchiveToken(op, user)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.archive.MonitorStop(ctx, acct, docketID)
	observeArchive("monitor_stop", start, err)
	if err != nil {
		return mapArchiveError(op, "docket", docketID, err)
	}

	// Confirm the archive no longer lists the docket before dropping
	// the local row; otherwise the next reconcile would resurrect it.
	if _, err := s.confirmWatched(ctx, op, acct, docketID, false); err != nil {
		return err
	}

	if _, err := s.store.DeleteMonitoredCaseByUserAndDocket(ctx, repository.DeleteMonitoredCaseByUserAndDocketParams{
		UserID:   user.ID,
		DocketID: docketID,
	}); err != nil {
		return domain.Internal(err, op, "failed to remove watch")
	}

	s.logger.Info("Watch stopped",
		"user_id", user.ID,
		"docket_id", docketID,
	)

	return nil
}

// confirmWatched reads the archive's subscription list and checks
// whether the docket appears in it, returning the docket entry when
// wantPresent is true.
func (s *monitorService) confirmWatched(ctx context.Context, op string, acct courtdata.Account, docketID string, wantPresent bool) (domain.Docket, error) {
	start := time.Now()
	dockets, err := s.archive.MonitorList(ctx, acct)
	observeArchive("monitor_list", start, err)
	if err != nil {
		return domain.Docket{}, mapArchiveError(op, "subscription list", "", err)
	}

	for _, d := range dockets {
		if d.ID == docketID {
			if !wantPresent {
				return domain.Docket{}, domain.Internal(nil, op, "the archive still lists the docket as watched")
			}
			return d, nil
		}
	}
	if wantPresent {
		return domain.Docket{}, domain.Internal(nil, op, "the archive did not confirm the watch")
	}
	return domain.Docket{}, nil
}

// =============================================================================
// List / Reconcile
// =============================================================================

// List returns the user's watches from local state.
func (s *monitorService) List(ctx context.Context, user *domain.User) ([]domain.MonitoredCase, error) {
	const op = "monitor.list"

	rows, err := s.store.ListMonitoredCasesByUserID(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list watches")
	}

	cases := make([]domain.MonitoredCase, 0, len(rows))
	for _, row := range rows {
		cases = append(cases, *monitoredCaseFromRow(row))
	}
	return cases, nil
}

// Reconcile replaces local watch state with the archive's list.
func (s *monitorService) Reconcile(ctx context.Context, user *domain.User) ([]domain.MonitoredCase, error) {
	const op = "monitor.reconcile"

	acct, err := requireArchiveToken(op, user)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	remote, err := s.archive.MonitorList(ctx, acct)
	observeArchive("monitor_list", start, err)
	if err != nil {
		return nil, mapArchiveError(op, "subscription list", "", err)
	}

	local, err := s.store.ListMonitoredCasesByUserID(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list watches")
	}

	remoteByID := make(map[string]domain.Docket, len(remote))
	for _, d := range remote {
		remoteByID[d.ID] = d
	}

	// Local rows the archive no longer reports are stale and go.
	removed := 0
	for _, row := range local {
		if _, ok := remoteByID[row.DocketID]; ok {
			continue
		}
		if _, err := s.store.DeleteMonitoredCaseByUserAndDocket(ctx, repository.DeleteMonitoredCaseByUserAndDocketParams{
			UserID:   user.ID,
			DocketID: row.DocketID,
		}); err != nil {
			return nil, domain.Internal(err, op, "failed to remove stale watch")
		}
		removed++
	}

	// Everything the archive reports is upserted, refreshing metadata
	// for rows that already exist.
	for _, d := range remote {
		if _, err := s.store.CreateMonitoredCase(ctx, repository.CreateMonitoredCaseParams{
			UserID:       user.ID,
			DocketID:     d.ID,
			CaseName:     d.CaseName,
			DocketNumber: d.DocketNumber,
			Court:        d.Court,
			DateFiled:    toNullTime(d.DateFiled),
		}); err != nil {
			return nil, domain.Internal(err, op, "failed to record watch")
		}
	}

	if len(remote) > 0 {
		s.ensurePoller()
	}

	s.logger.Info("Watches reconciled",
		"user_id", user.ID,
		"remote", len(remote),
		"removed", removed,
	)

	return s.List(ctx, user)
}

// =============================================================================
// Update Checks
// =============================================================================

// RefreshUpdates checks every watched docket for new filings now. The
// watch set is reconciled against the archive first, so an on-demand
// check and the background poller always observe the same subscriptions.
func (s *monitorService) RefreshUpdates(ctx context.Context, user *domain.User) ([]domain.UpdateSignal, error) {
	const op = "monitor.refresh_updates"

	acct, err := requireArchiveToken(op, user)
	if err != nil {
		return nil, err
	}

	if _, err := s.Reconcile(ctx, user); err != nil {
		return nil, err
	}

	rows, err := s.store.ListMonitoredCasesByUserID(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list watches")
	}

	return s.checkCases(ctx, user, acct, rows), nil
}

// checkCases runs one update check per watched docket. Failures on one
// docket never block the rest of the sweep.
func (s *monitorService) checkCases(ctx context.Context, user *domain.User, acct courtdata.Account, rows []repository.MonitoredCase) []domain.UpdateSignal {
	signals := make([]domain.UpdateSignal, 0, len(rows))

	for _, row := range rows {
		start := time.Now()
		signal, err := s.archive.CheckUpdates(ctx, acct, row.DocketID)
		observeArchive("check_updates", start, err)
		if err != nil {
			metrics.MonitorChecks.WithLabelValues("error").Inc()
			s.logger.Warn("Update check failed",
				"user_id", user.ID,
				"docket_id", row.DocketID,
				"error", err,
			)
			continue
		}

		if signal.HasUpdates {
			metrics.MonitorChecks.WithLabelValues("updates").Inc()
			if err := s.store.UpdateMonitoredCaseSignal(ctx, repository.UpdateMonitoredCaseSignalParams{
				UserID:       user.ID,
				DocketID:     row.DocketID,
				LastSignalAt: sql.NullTime{Time: signal.CheckedAt, Valid: true},
			}); err != nil {
				s.logger.Error("Failed to record update signal",
					"user_id", user.ID,
					"docket_id", row.DocketID,
					"error", err,
				)
			}
			s.notify(ctx, user, row, signal)
		} else {
			metrics.MonitorChecks.WithLabelValues("none").Inc()
		}

		signals = append(signals, *signal)
	}

	return signals
}

// notify handles one docket that reported new filings: an email alert
// and, for tiers that include it, a queued auto-download of the new
// free documents.
func (s *monitorService) notify(ctx context.Context, user *domain.User, row repository.MonitoredCase, signal *domain.UpdateSignal) {
	s.logger.Info("New filings detected",
		"user_id", user.ID,
		"docket_id", row.DocketID,
		"case_name", row.CaseName,
		"new_entries", signal.UpdateCount,
	)

	if s.alerts != nil && user.Email != "" {
		if err := s.alerts.SendFilingAlert(ctx, user.Email, user.DisplayName(), row.CaseName, signal.UpdateCount); err != nil {
			s.logger.Warn("Filing alert email failed",
				"user_id", user.ID,
				"docket_id", row.DocketID,
				"error", err,
			)
		} else {
			metrics.FilingAlertsSent.Inc()
		}
	}

	tier := user.EffectiveTier()
	if s.enqueuer == nil || !domain.GetTierQuota(tier).AutoDownloadEnabled {
		return
	}
	if err := s.quota.CheckAutoDownloadQuota(ctx, user.ID, tier); err != nil {
		s.logger.Info("Auto-download skipped",
			"user_id", user.ID,
			"docket_id", row.DocketID,
			"reason", domain.ErrorMessage(err),
		)
		return
	}
	if err := s.enqueuer.EnqueueAutoDownload(ctx, user.ID, row.DocketID); err != nil {
		s.logger.Error("Failed to enqueue auto-download",
			"user_id", user.ID,
			"docket_id", row.DocketID,
			"error", err,
		)
	}
}

// =============================================================================
// Poller Lifecycle
// =============================================================================

// ensurePoller starts the update poller if it is not already running.
func (s *monitorService) ensurePoller() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polling {
		return
	}
	s.polling = true
	s.wg.Add(1)
	go s.runPoller()
}

// runPoller sweeps all monitored cases on an interval. It exits when
// the service closes or when a sweep finds no monitored cases left;
// the next Start or Reconcile brings it back.
func (s *monitorService) runPoller() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.UpdateInterval)
	defer ticker.Stop()

	s.logger.Info("Update poller started", "interval", s.config.UpdateInterval)

	for {
		select {
		case <-s.baseCtx.Done():
			s.setPolling(false)
			return
		case <-ticker.C:
			if !s.sweep(s.baseCtx) {
				s.setPolling(false)
				s.logger.Info("Update poller stopped, no monitored cases")
				return
			}
		}
	}
}

// sweep runs one pass over every user with monitored cases. Returns
// false when there is nothing left to poll.
func (s *monitorService) sweep(ctx context.Context) bool {
	users, err := s.store.ListUsersWithMonitoredCases(ctx)
	if err != nil {
		s.logger.Error("Update sweep failed to list users", "error", err)
		return true
	}
	if len(users) == 0 {
		return false
	}

	for _, userRow := range users {
		user := userFromRow(userRow)
		if user.CourtToken == "" {
			// Checks bill against the user's archive account; without
			// a token this user's watches sit idle.
			continue
		}

		rows, err := s.store.ListMonitoredCasesByUserID(ctx, user.ID)
		if err != nil {
			s.logger.Error("Update sweep failed to list watches",
				"user_id", user.ID, "error", err)
			continue
		}

		s.checkCases(ctx, user, archiveAccount(user), rows)
	}

	return true
}

func (s *monitorService) setPolling(v bool) {
	s.mu.Lock()
	s.polling = v
	s.mu.Unlock()
}

// pollerRunning reports whether the update poller is active.
func (s *monitorService) pollerRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polling
}

// Close stops the update poller and waits for a sweep in flight.
func (s *monitorService) Close() {
	s.cancel()
	s.wg.Wait()
}

// =============================================================================
// Helpers
// =============================================================================

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// monitoredCaseFromRow converts a repository row to the domain type.
func monitoredCaseFromRow(row repository.MonitoredCase) *domain.MonitoredCase {
	c := &domain.MonitoredCase{
		ID:           row.ID,
		UserID:       row.UserID,
		DocketID:     row.DocketID,
		CaseName:     row.CaseName,
		DocketNumber: row.DocketNumber,
		Court:        row.Court,
		CreatedAt:    row.CreatedAt,
		LastSignalAt: domain.NullTimeValue(row.LastSignalAt),
	}
	if row.DateFiled.Valid {
		c.DateFiled = row.DateFiled.Time
	}
	return c
}
