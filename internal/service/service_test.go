package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/repository"
)

// =============================================================================
// Shared Test Fixtures
// =============================================================================

// testLogger returns a logger that discards output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testUser builds an active user on the given tier with an archive token.
func testUser(tier domain.SubscriptionTier) *domain.User {
	return &domain.User{
		ID:                 uuid.New(),
		Email:              "casey@example.com",
		Name:               "Casey",
		CourtToken:         "archive-token-1",
		SubscriptionStatus: domain.SubscriptionStatusActive,
		SubscriptionTier:   tier,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
}

// repoUserFor mirrors a domain user into the repository row shape so
// background sweeps that re-load users see the same account.
func repoUserFor(u *domain.User) repository.User {
	return repository.User{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		CourtToken:         domain.ToNullString(u.CourtToken),
		SubscriptionStatus: string(u.SubscriptionStatus),
		SubscriptionTier:   string(u.SubscriptionTier),
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// waitFor polls cond until it reports true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out after %v waiting for %s", timeout, what)
}

// =============================================================================
// In-Memory Store
// =============================================================================

// fakeStore is an in-memory stand-in for *repository.Queries. It keeps
// the same uniqueness rules the schema enforces: one download row per
// user and document, one pending purchase per user and document, one
// watch per user and docket.
type fakeStore struct {
	mu sync.Mutex

	users     map[uuid.UUID]repository.User
	downloads map[string]repository.DownloadedDocument
	analyses  map[string]repository.AnalysisRecord
	purchases map[uuid.UUID]repository.PurchaseJob
	monitors  map[string]repository.MonitoredCase

	// completedJobs feeds the auto-download quota count.
	completedJobs map[uuid.UUID]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[uuid.UUID]repository.User),
		downloads:     make(map[string]repository.DownloadedDocument),
		analyses:      make(map[string]repository.AnalysisRecord),
		purchases:     make(map[uuid.UUID]repository.PurchaseJob),
		monitors:      make(map[string]repository.MonitoredCase),
		completedJobs: make(map[uuid.UUID]int64),
	}
}

func (f *fakeStore) addUser(u *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = repoUserFor(u)
}

// seedDownload inserts a stored-copy row with explicit timestamps,
// bypassing CreateDownloadedDocument's time.Now().
func (f *fakeStore) seedDownload(row repository.DownloadedDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads[docKey(row.UserID, row.DocumentID)] = row
}

// seedPurchase inserts a purchase job row as-is.
func (f *fakeStore) seedPurchase(row repository.PurchaseJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.purchases[row.ID] = row
}

func docKey(userID uuid.UUID, documentID string) string {
	return userID.String() + "/" + documentID
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func (f *fakeStore) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

// -----------------------------------------------------------------------------
// Downloaded documents
// -----------------------------------------------------------------------------

func (f *fakeStore) CreateDownloadedDocument(ctx context.Context, arg repository.CreateDownloadedDocumentParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := docKey(arg.UserID, arg.DocumentID)
	if _, ok := f.downloads[key]; ok {
		return nil // ON CONFLICT DO NOTHING
	}
	f.downloads[key] = repository.DownloadedDocument{
		UserID:      arg.UserID,
		DocumentID:  arg.DocumentID,
		DocketID:    arg.DocketID,
		EntryNumber: arg.EntryNumber,
		Description: arg.Description,
		StorageKey:  arg.StorageKey,
		Filename:    arg.Filename,
		SizeBytes:   arg.SizeBytes,
		PageCount:   arg.PageCount,
		Method:      arg.Method,
		CreatedAt:   time.Now(),
	}
	return nil
}

func (f *fakeStore) GetDownloadedDocument(ctx context.Context, arg repository.GetDownloadedDocumentParams) (repository.DownloadedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.downloads[docKey(arg.UserID, arg.DocumentID)]
	if !ok {
		return repository.DownloadedDocument{}, sql.ErrNoRows
	}
	return row, nil
}

func (f *fakeStore) ListDownloadedDocumentsByDocket(ctx context.Context, arg repository.ListDownloadedDocumentsByDocketParams) ([]repository.DownloadedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []repository.DownloadedDocument
	for _, row := range f.downloads {
		if row.UserID == arg.UserID && row.DocketID == arg.DocketID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeStore) ListDownloadedDocumentsByUserID(ctx context.Context, arg repository.ListDownloadedDocumentsByUserIDParams) ([]repository.DownloadedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []repository.DownloadedDocument
	for _, row := range f.downloads {
		if row.UserID == arg.UserID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return pageOf(rows, arg.Limit, arg.Offset), nil
}

func (f *fakeStore) CountDownloadedDocumentsByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.downloads {
		if row.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListDownloadedDocumentsInPeriod(ctx context.Context, arg repository.ListDownloadedDocumentsInPeriodParams) ([]repository.DownloadedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []repository.DownloadedDocument
	for _, row := range f.downloads {
		if row.UserID != arg.UserID {
			continue
		}
		if row.CreatedAt.Before(arg.PeriodStart) || !row.CreatedAt.Before(arg.PeriodEnd) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return rows, nil
}

// -----------------------------------------------------------------------------
// Analysis records
// -----------------------------------------------------------------------------

func (f *fakeStore) CreateAnalysisRecord(ctx context.Context, arg repository.CreateAnalysisRecordParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := arg.UserID.String() + "/" + arg.AnalysisKey
	if _, ok := f.analyses[key]; ok {
		return nil // ON CONFLICT DO NOTHING
	}
	f.analyses[key] = repository.AnalysisRecord{
		UserID:      arg.UserID,
		AnalysisKey: arg.AnalysisKey,
		DocumentID:  arg.DocumentID,
		CreatedAt:   time.Now(),
	}
	return nil
}

func (f *fakeStore) GetAnalysisRecord(ctx context.Context, arg repository.GetAnalysisRecordParams) (repository.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.analyses[arg.UserID.String()+"/"+arg.AnalysisKey]
	if !ok {
		return repository.AnalysisRecord{}, sql.ErrNoRows
	}
	return row, nil
}

// -----------------------------------------------------------------------------
// Purchase jobs
// -----------------------------------------------------------------------------

func (f *fakeStore) CreatePurchaseJob(ctx context.Context, arg repository.CreatePurchaseJobParams) (repository.PurchaseJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.purchases {
		if job.UserID == arg.UserID && job.DocumentID == arg.DocumentID && job.Status == string(domain.PurchaseStatusPending) {
			return repository.PurchaseJob{}, errors.New(`duplicate key value violates unique constraint "purchase_jobs_pending_unique"`)
		}
	}
	now := time.Now()
	job := repository.PurchaseJob{
		ID:                 uuid.New(),
		UserID:             arg.UserID,
		RemoteID:           arg.RemoteID,
		DocumentID:         arg.DocumentID,
		DocketID:           arg.DocketID,
		Status:             arg.Status,
		EstimatedCostCents: arg.EstimatedCostCents,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.purchases[job.ID] = job
	return job, nil
}

func (f *fakeStore) GetPendingPurchaseForDocument(ctx context.Context, arg repository.GetPendingPurchaseForDocumentParams) (repository.PurchaseJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.purchases {
		if job.UserID == arg.UserID && job.DocumentID == arg.DocumentID && job.Status == string(domain.PurchaseStatusPending) {
			return job, nil
		}
	}
	return repository.PurchaseJob{}, sql.ErrNoRows
}

func (f *fakeStore) GetPurchaseJobByIDAndUserID(ctx context.Context, arg repository.GetPurchaseJobByIDAndUserIDParams) (repository.PurchaseJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.purchases[arg.ID]
	if !ok || job.UserID != arg.UserID {
		return repository.PurchaseJob{}, sql.ErrNoRows
	}
	return job, nil
}

func (f *fakeStore) ListPurchaseJobsByUserID(ctx context.Context, arg repository.ListPurchaseJobsByUserIDParams) ([]repository.PurchaseJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []repository.PurchaseJob
	for _, job := range f.purchases {
		if job.UserID == arg.UserID {
			rows = append(rows, job)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return pageOf(rows, arg.Limit, arg.Offset), nil
}

func (f *fakeStore) CountPurchaseJobsByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, job := range f.purchases {
		if job.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListSettledPurchaseJobsInPeriod(ctx context.Context, arg repository.ListSettledPurchaseJobsInPeriodParams) ([]repository.PurchaseJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []repository.PurchaseJob
	for _, job := range f.purchases {
		if job.UserID != arg.UserID {
			continue
		}
		if job.Status != string(domain.PurchaseStatusCompleted) && job.Status != string(domain.PurchaseStatusFailed) {
			continue
		}
		if !job.CompletedAt.Valid {
			continue
		}
		settled := job.CompletedAt.Time
		if settled.Before(arg.PeriodStart) || !settled.Before(arg.PeriodEnd) {
			continue
		}
		rows = append(rows, job)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CompletedAt.Time.Before(rows[j].CompletedAt.Time) })
	return rows, nil
}

func (f *fakeStore) ListPendingPurchaseJobs(ctx context.Context) ([]repository.PurchaseJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []repository.PurchaseJob
	for _, job := range f.purchases {
		if job.Status == string(domain.PurchaseStatusPending) {
			rows = append(rows, job)
		}
	}
	return rows, nil
}

func (f *fakeStore) UpdatePurchaseJobStatus(ctx context.Context, arg repository.UpdatePurchaseJobStatusParams) (repository.PurchaseJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.purchases[arg.ID]
	if !ok {
		return repository.PurchaseJob{}, sql.ErrNoRows
	}
	job.Status = arg.Status
	job.ActualCostCents = arg.ActualCostCents
	job.ErrorMessage = arg.ErrorMessage
	job.StorageKey = arg.StorageKey
	job.RemoteResponse = arg.RemoteResponse
	job.CompletedAt = arg.CompletedAt
	job.UpdatedAt = time.Now()
	f.purchases[arg.ID] = job
	return job, nil
}

// purchaseJob reads a job row outside any service, for assertions.
func (f *fakeStore) purchaseJob(id uuid.UUID) (repository.PurchaseJob, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.purchases[id]
	return job, ok
}

// -----------------------------------------------------------------------------
// Monitored cases
// -----------------------------------------------------------------------------

func (f *fakeStore) CreateMonitoredCase(ctx context.Context, arg repository.CreateMonitoredCaseParams) (repository.MonitoredCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := arg.UserID.String() + "/" + arg.DocketID
	row, ok := f.monitors[key]
	if !ok {
		row = repository.MonitoredCase{
			ID:        uuid.New(),
			UserID:    arg.UserID,
			DocketID:  arg.DocketID,
			CreatedAt: time.Now(),
		}
	}
	// ON CONFLICT DO UPDATE: metadata refreshes, identity and signal stay.
	row.CaseName = arg.CaseName
	row.DocketNumber = arg.DocketNumber
	row.Court = arg.Court
	row.DateFiled = arg.DateFiled
	f.monitors[key] = row
	return row, nil
}

func (f *fakeStore) GetMonitoredCaseByUserAndDocket(ctx context.Context, arg repository.GetMonitoredCaseByUserAndDocketParams) (repository.MonitoredCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.monitors[arg.UserID.String()+"/"+arg.DocketID]
	if !ok {
		return repository.MonitoredCase{}, sql.ErrNoRows
	}
	return row, nil
}

func (f *fakeStore) DeleteMonitoredCaseByUserAndDocket(ctx context.Context, arg repository.DeleteMonitoredCaseByUserAndDocketParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := arg.UserID.String() + "/" + arg.DocketID
	if _, ok := f.monitors[key]; !ok {
		return 0, nil
	}
	delete(f.monitors, key)
	return 1, nil
}

func (f *fakeStore) ListMonitoredCasesByUserID(ctx context.Context, userID uuid.UUID) ([]repository.MonitoredCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []repository.MonitoredCase
	for _, row := range f.monitors {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DocketID < rows[j].DocketID })
	return rows, nil
}

func (f *fakeStore) ListUsersWithMonitoredCases(ctx context.Context) ([]repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var rows []repository.User
	for _, row := range f.monitors {
		if seen[row.UserID] {
			continue
		}
		seen[row.UserID] = true
		if u, ok := f.users[row.UserID]; ok {
			rows = append(rows, u)
		}
	}
	return rows, nil
}

func (f *fakeStore) UpdateMonitoredCaseSignal(ctx context.Context, arg repository.UpdateMonitoredCaseSignalParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := arg.UserID.String() + "/" + arg.DocketID
	row, ok := f.monitors[key]
	if !ok {
		return sql.ErrNoRows
	}
	row.LastSignalAt = arg.LastSignalAt
	f.monitors[key] = row
	return nil
}

// CountMonitoredCasesByUserID feeds the monitor quota check.
func (f *fakeStore) CountMonitoredCasesByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.monitors {
		if row.UserID == userID {
			n++
		}
	}
	return n, nil
}

// monitoredCase reads a watch row outside any service, for assertions.
func (f *fakeStore) monitoredCase(userID uuid.UUID, docketID string) (repository.MonitoredCase, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.monitors[userID.String()+"/"+docketID]
	return row, ok
}

// -----------------------------------------------------------------------------
// Job counts
// -----------------------------------------------------------------------------

func (f *fakeStore) CountCompletedJobsByUserAndType(ctx context.Context, arg repository.CountCompletedJobsByUserAndTypeParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completedJobs[arg.UserID.UUID], nil
}

func (f *fakeStore) setCompletedJobs(userID uuid.UUID, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completedJobs[userID] = n
}

func pageOf[T any](rows []T, limit, offset int32) []T {
	if int(offset) >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if int(limit) < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// Interface checks: the fake must track the repository surface the
// services compile against.
var (
	_ AcquisitionStore = (*fakeStore)(nil)
	_ PurchaseStore    = (*fakeStore)(nil)
	_ MonitorStore     = (*fakeStore)(nil)
	_ QuotaStore       = (*fakeStore)(nil)
	_ StatementStore   = (*fakeStore)(nil)
)

// =============================================================================
// Collaborator Fakes
// =============================================================================

// fakeEnqueuer records auto-download enqueue requests.
type fakeEnqueuer struct {
	mu    sync.Mutex
	calls []string // docket IDs
	err   error
}

func (f *fakeEnqueuer) EnqueueAutoDownload(ctx context.Context, userID uuid.UUID, docketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, docketID)
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeAlerts records filing alert emails.
type fakeAlerts struct {
	mu    sync.Mutex
	sent  []string // case names
	to    []string
	err   error
	count int
}

func (f *fakeAlerts) SendFilingAlert(ctx context.Context, to, name, caseName string, newEntries int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.count++
	f.to = append(f.to, to)
	f.sent = append(f.sent, caseName)
	return nil
}

func (f *fakeAlerts) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}
