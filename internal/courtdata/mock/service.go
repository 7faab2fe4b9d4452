// Package mock provides a courtdata.Service for tests and local
// development. Responses are canned but the monitored-docket set is
// stateful, so reconciliation paths behave like the real archive.
package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/domain"
)

// Service is a mock archive client for testing and development
type Service struct {
	logger *slog.Logger
	mu     sync.Mutex

	// Configurable responses for testing
	SearchDocketsResponse      []domain.Docket
	SearchDocketsError         error
	GetDocketDocumentsResponse []domain.AcquirableDocument
	GetDocketDocumentsError    error
	DownloadResponse           *courtdata.Download
	DownloadError              error
	BalanceCents               int64
	BalanceError               error
	SubmitPurchaseResponse     *courtdata.PurchaseReceipt
	SubmitPurchaseError        error
	PurchaseStatusQueue        []*courtdata.PurchaseState
	PurchaseStatusError        error
	MonitorStartError          error
	MonitorStopError           error
	MonitorListResponse        []domain.Docket
	MonitorListError           error
	CheckUpdatesResponse       *domain.UpdateSignal
	CheckUpdatesError          error
	SubmitAnalysisError        error

	// Call tracking for testing
	SearchDocketsCalls      int
	GetDocketDocumentsCalls int
	DownloadCalls           int
	BalanceCalls            int
	SubmitPurchaseCalls     int
	PurchaseStatusCalls     int
	MonitorStartCalls       int
	MonitorStopCalls        int
	MonitorListCalls        int
	CheckUpdatesCalls       int
	SubmitAnalysisCalls     int

	monitored map[string]domain.Docket
}

// New creates a new mock archive client
func New(logger *slog.Logger) *Service {
	return &Service{
		logger:       logger,
		BalanceCents: 50_000, // $500 unless a test says otherwise
		monitored:    make(map[string]domain.Docket),
	}
}

// SearchDockets returns canned docket results
func (s *Service) SearchDockets(ctx context.Context, acct courtdata.Account, params courtdata.SearchParams) ([]domain.Docket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchDocketsCalls++

	if s.SearchDocketsError != nil {
		return nil, s.SearchDocketsError
	}
	if s.SearchDocketsResponse != nil {
		return s.SearchDocketsResponse, nil
	}

	return []domain.Docket{
		{
			ID:           "65748",
			CaseName:     "Smith v. Acme Corp",
			DocketNumber: "1:23-cv-00123",
			Court:        "nysd",
			CourtName:    "Southern District of New York",
			PacerCaseID:  "500123",
			DateFiled:    time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			EntryCount:   47,
		},
		{
			ID:           "88102",
			CaseName:     "United States v. Jones",
			DocketNumber: "2:24-cr-00456",
			Court:        "cacd",
			CourtName:    "Central District of California",
			PacerCaseID:  "612345",
			DateFiled:    time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			EntryCount:   12,
		},
	}, nil
}

// GetDocketDocuments returns one free and one billable document
func (s *Service) GetDocketDocuments(ctx context.Context, acct courtdata.Account, docketID string) ([]domain.AcquirableDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetDocketDocumentsCalls++

	if s.GetDocketDocumentsError != nil {
		return nil, s.GetDocketDocumentsError
	}
	if s.GetDocketDocumentsResponse != nil {
		return s.GetDocketDocumentsResponse, nil
	}

	return []domain.AcquirableDocument{
		{
			DocumentID:  "90012345",
			DocketID:    docketID,
			Court:       "nysd",
			PacerCaseID: "500123",
			EntryNumber: 1,
			Description: "Complaint",
			DateFiled:   time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			PageCount:   23,
			IsAvailable: true,
			FilePath:    "recap/gov.uscourts.nysd.500123.1.0.pdf",
		},
		{
			DocumentID:  "90012399",
			DocketID:    docketID,
			Court:       "nysd",
			PacerCaseID: "500123",
			EntryNumber: 45,
			Description: "Memorandum Opinion and Order",
			DateFiled:   time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
			PageCount:   12,
			IsAvailable: false,
		},
	}, nil
}

// DownloadFreeDocument returns a tiny placeholder PDF body
func (s *Service) DownloadFreeDocument(ctx context.Context, acct courtdata.Account, filePath string) (*courtdata.Download, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DownloadCalls++

	if s.DownloadError != nil {
		return nil, s.DownloadError
	}
	if s.DownloadResponse != nil {
		return s.DownloadResponse, nil
	}

	data := []byte("%PDF-1.4\n% mock court document\n%%EOF\n")
	return &courtdata.Download{
		Data:        data,
		ContentType: "application/pdf",
		SizeBytes:   int64(len(data)),
	}, nil
}

// GetCreditBalance returns the configured balance
func (s *Service) GetCreditBalance(ctx context.Context, acct courtdata.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BalanceCalls++

	if s.BalanceError != nil {
		return 0, s.BalanceError
	}
	return s.BalanceCents, nil
}

// SubmitPurchase acknowledges the fetch with a generated remote id
func (s *Service) SubmitPurchase(ctx context.Context, acct courtdata.Account, params courtdata.PurchaseParams) (*courtdata.PurchaseReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SubmitPurchaseCalls++

	if s.SubmitPurchaseError != nil {
		return nil, s.SubmitPurchaseError
	}
	if s.SubmitPurchaseResponse != nil {
		return s.SubmitPurchaseResponse, nil
	}

	return &courtdata.PurchaseReceipt{
		RemoteID:   uuid.NewString(),
		AcceptedAt: time.Now(),
	}, nil
}

// GetPurchaseStatus pops the configured status queue; the last entry
// repeats once the queue is drained so pollers always see something.
func (s *Service) GetPurchaseStatus(ctx context.Context, acct courtdata.Account, remoteID string) (*courtdata.PurchaseState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PurchaseStatusCalls++

	if s.PurchaseStatusError != nil {
		return nil, s.PurchaseStatusError
	}
	if len(s.PurchaseStatusQueue) > 0 {
		state := s.PurchaseStatusQueue[0]
		if len(s.PurchaseStatusQueue) > 1 {
			s.PurchaseStatusQueue = s.PurchaseStatusQueue[1:]
		}
		return state, nil
	}

	return &courtdata.PurchaseState{
		RemoteID:  remoteID,
		Status:    courtdata.RemoteStatusSuccess,
		CostCents: 120,
		FilePath:  "recap/gov.uscourts.nysd.500123.45.0.pdf",
	}, nil
}

// MonitorStart records the subscription
func (s *Service) MonitorStart(ctx context.Context, acct courtdata.Account, docketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MonitorStartCalls++

	if s.MonitorStartError != nil {
		return s.MonitorStartError
	}
	if _, ok := s.monitored[docketID]; !ok {
		s.monitored[docketID] = domain.Docket{ID: docketID}
	}
	return nil
}

// MonitorStop removes the subscription; absent dockets are a no-op
func (s *Service) MonitorStop(ctx context.Context, acct courtdata.Account, docketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MonitorStopCalls++

	if s.MonitorStopError != nil {
		return s.MonitorStopError
	}
	delete(s.monitored, docketID)
	return nil
}

// MonitorList returns the configured response, or the stateful set
func (s *Service) MonitorList(ctx context.Context, acct courtdata.Account) ([]domain.Docket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MonitorListCalls++

	if s.MonitorListError != nil {
		return nil, s.MonitorListError
	}
	if s.MonitorListResponse != nil {
		return s.MonitorListResponse, nil
	}

	dockets := make([]domain.Docket, 0, len(s.monitored))
	for _, d := range s.monitored {
		dockets = append(dockets, d)
	}
	return dockets, nil
}

// CheckUpdates reports no updates unless configured otherwise
func (s *Service) CheckUpdates(ctx context.Context, acct courtdata.Account, docketID string) (*domain.UpdateSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CheckUpdatesCalls++

	if s.CheckUpdatesError != nil {
		return nil, s.CheckUpdatesError
	}
	if s.CheckUpdatesResponse != nil {
		return s.CheckUpdatesResponse, nil
	}

	return &domain.UpdateSignal{
		DocketID:   docketID,
		HasUpdates: false,
		CheckedAt:  time.Now(),
	}, nil
}

// SubmitAnalysis accepts the submission
func (s *Service) SubmitAnalysis(ctx context.Context, acct courtdata.Account, params courtdata.AnalysisParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SubmitAnalysisCalls++

	return s.SubmitAnalysisError
}

// Monitored reports whether the mock archive has a subscription for the docket
func (s *Service) Monitored(docketID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.monitored[docketID]
	return ok
}

// CheckUpdatesCallCount reads the update-check counter under the lock,
// for assertions that run while a background poller is live.
func (s *Service) CheckUpdatesCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CheckUpdatesCalls
}

// Reset clears call counters, custom responses, and the monitored set
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SearchDocketsCalls = 0
	s.GetDocketDocumentsCalls = 0
	s.DownloadCalls = 0
	s.BalanceCalls = 0
	s.SubmitPurchaseCalls = 0
	s.PurchaseStatusCalls = 0
	s.MonitorStartCalls = 0
	s.MonitorStopCalls = 0
	s.MonitorListCalls = 0
	s.CheckUpdatesCalls = 0
	s.SubmitAnalysisCalls = 0

	s.SearchDocketsResponse = nil
	s.SearchDocketsError = nil
	s.GetDocketDocumentsResponse = nil
	s.GetDocketDocumentsError = nil
	s.DownloadResponse = nil
	s.DownloadError = nil
	s.BalanceCents = 50_000
	s.BalanceError = nil
	s.SubmitPurchaseResponse = nil
	s.SubmitPurchaseError = nil
	s.PurchaseStatusQueue = nil
	s.PurchaseStatusError = nil
	s.MonitorStartError = nil
	s.MonitorStopError = nil
	s.MonitorListResponse = nil
	s.MonitorListError = nil
	s.CheckUpdatesResponse = nil
	s.CheckUpdatesError = nil
	s.SubmitAnalysisError = nil

	s.monitored = make(map[string]domain.Docket)
}
