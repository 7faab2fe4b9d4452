// Package service contains the business logic layer.
//
// This file implements purchase jobs: paid acquisition of documents
// the archive does not hold a free copy of. A submission is accepted
// by the remote archive, recorded locally as pending, and polled in
// the background until it settles. Every terminal transition refreshes
// the cached credit balance exactly once, because settling is the only
// moment a purchase changes the remote ledger.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sqlc-dev/pqtype"
	"golang.org/x/sync/singleflight"

	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/metrics"
	"github.com/thorsby/docketwatch/internal/pdfmeta"
	"github.com/thorsby/docketwatch/internal/repository"
	"github.com/thorsby/docketwatch/internal/storage"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 30

	// settleTimeoutWindow bounds the work done when a purchase settles
	// (document fetch, storage write, ledger refresh).
	settleTimeoutWindow = 2 * time.Minute
)

// =============================================================================
// Store Interface
// =============================================================================

// PurchaseStore is the subset of repository queries the purchase
// service uses. *repository.Queries satisfies it.
type PurchaseStore interface {
	CreatePurchaseJob(ctx context.Context, arg repository.CreatePurchaseJobParams) (repository.PurchaseJob, error)
	GetPendingPurchaseForDocument(ctx context.Context, arg repository.GetPendingPurchaseForDocumentParams) (repository.PurchaseJob, error)
	GetPurchaseJobByIDAndUserID(ctx context.Context, arg repository.GetPurchaseJobByIDAndUserIDParams) (repository.PurchaseJob, error)
	ListPurchaseJobsByUserID(ctx context.Context, arg repository.ListPurchaseJobsByUserIDParams) ([]repository.PurchaseJob, error)
	CountPurchaseJobsByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	ListPendingPurchaseJobs(ctx context.Context) ([]repository.PurchaseJob, error)
	UpdatePurchaseJobStatus(ctx context.Context, arg repository.UpdatePurchaseJobStatusParams) (repository.PurchaseJob, error)
	GetDownloadedDocument(ctx context.Context, arg repository.GetDownloadedDocumentParams) (repository.DownloadedDocument, error)
	CreateDownloadedDocument(ctx context.Context, arg repository.CreateDownloadedDocumentParams) error
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
}

// =============================================================================
// Configuration
// =============================================================================

// PurchaseConfig tunes the background polling loop. Tests inject short
// intervals; production uses the defaults.
type PurchaseConfig struct {
	PollInterval time.Duration // Delay between remote status checks
	MaxPolls     int           // Status checks before giving up
}

func (c PurchaseConfig) withDefaults() PurchaseConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = defaultMaxPolls
	}
	return c
}

// =============================================================================
// Interface Definition
// =============================================================================

// PurchaseService defines operations for paid document acquisition.
type PurchaseService interface {
	// Submit asks the archive to fetch a document for a fee. The job
	// is recorded as pending and polled in the background until it
	// settles. When the archive answers that it already holds a free
	// copy, the submission converts to a zero-cost download on the
	// spot: no job is created, no polling happens, nothing is charged,
	// and the result carries the downloaded document instead.
	// Returns EINVALID if the listing already shows a free copy or no
	// archive token is configured, ECONFLICT if the document is
	// already downloaded, EINPROGRESS if a purchase for it is already
	// pending, EINSUFFICIENT_CREDITS if the balance cannot cover the
	// estimate.
	Submit(ctx context.Context, user *domain.User, params domain.SubmitPurchaseParams) (*domain.PurchaseSubmission, error)

	// Check returns the current state of a purchase. For timed-out
	// jobs it consults the archive once and applies any late
	// resolution; pending, completed and failed jobs are returned
	// as stored.
	// Returns ENOTFOUND if the purchase does not exist for this user.
	Check(ctx context.Context, user *domain.User, purchaseID uuid.UUID) (*domain.PurchaseJob, error)

	// List returns a page of the user's purchases, newest first. It
	// never contacts the archive.
	List(ctx context.Context, user *domain.User, params domain.ListPurchasesParams) (*domain.ListPurchasesResult, error)

	// ResumePending re-attaches background polling to purchases left
	// pending by an earlier process. Call once at startup.
	ResumePending(ctx context.Context) error

	// Close stops all background polling and waits for in-flight
	// settlement work to finish.
	Close()
}

// =============================================================================
// Implementation
// =============================================================================

type purchaseService struct {
	store   PurchaseStore
	archive courtdata.Service
	blobs   storage.Storage
	ledger  LedgerService
	config  PurchaseConfig
	logger  *slog.Logger
	group   singleflight.Group

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPurchaseService creates a new PurchaseService. Close must be
// called to stop background polling.
func NewPurchaseService(store PurchaseStore, archive courtdata.Service, blobs storage.Storage, ledger LedgerService, config PurchaseConfig, logger *slog.Logger) PurchaseService {
	ctx, cancel := context.WithCancel(context.Background())
	return &purchaseService{
		store:   store,
		archive: archive,
		blobs:   blobs,
		ledger:  ledger,
		config:  config.withDefaults(),
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// =============================================================================
// Submit
// =============================================================================

// Submit asks the archive to fetch a document for a fee.
func (s *purchaseService) Submit(ctx context.Context, user *domain.User, params domain.SubmitPurchaseParams) (*domain.PurchaseSubmission, error) {
	const op = "purchase.submit"

	if params.DocketID == "" || params.DocumentID == "" {
		return nil, domain.Invalid(op, "Docket ID and document ID are required.")
	}

	acct, err := requireArchiveToken(op, user)
	if err != nil {
		return nil, err
	}

	// A document already in local storage never costs money again.
	_, err = s.store.GetDownloadedDocument(ctx, repository.GetDownloadedDocumentParams{
		UserID:     user.ID,
		DocumentID: params.DocumentID,
	})
	if err == nil {
		return nil, domain.Conflict(op, "This document is already downloaded. A purchase is not needed.")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check download record")
	}

	// One pending purchase per document. The partial unique index on
	// purchase_jobs backs this check; the insert below re-verifies.
	_, err = s.store.GetPendingPurchaseForDocument(ctx, repository.GetPendingPurchaseForDocumentParams{
		UserID:     user.ID,
		DocumentID: params.DocumentID,
	})
	if err == nil {
		return nil, domain.InProgress(op, params.DocumentID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check pending purchases")
	}

	// Resolve the document against a live listing. Page counts and
	// availability come from the archive, never from the caller.
	start := time.Now()
	docs, err := s.archive.GetDocketDocuments(ctx, acct, params.DocketID)
	observeArchive("docket_documents", start, err)
	if err != nil {
		return nil, mapArchiveError(op, "docket", params.DocketID, err)
	}

	doc, ok := findDocument(docs, params.DocumentID)
	if !ok {
		return nil, domain.NotFound(op, "document", params.DocumentID)
	}
	if doc.Classify() == domain.ClassificationFree {
		return nil, domain.Invalid(op, "A free copy of this document exists. Download it instead of purchasing.")
	}

	estimate := domain.EstimateCostCents(doc.PageCount)
	if err := s.ledger.PreflightPurchase(ctx, user, estimate); err != nil {
		return nil, err
	}

	start = time.Now()
	receipt, err := s.archive.SubmitPurchase(ctx, acct, courtdata.PurchaseParams{
		DocumentID:         params.DocumentID,
		DocketID:           params.DocketID,
		EstimatedCostCents: estimate,
	})
	observeArchive("submit_purchase", start, err)
	if err != nil {
		return nil, mapArchiveError(op, "document", params.DocumentID, err)
	}

	// Surprise-free: the archive found the document in its free store
	// mid-flight. The purchase must convert to a zero-cost download;
	// debiting credits here would be incorrect, not merely wasteful.
	if receipt.FreePath != "" {
		doc.IsAvailable = true
		doc.FilePath = receipt.FreePath
		return s.settleSurpriseFree(ctx, user, acct, doc)
	}

	row, err := s.store.CreatePurchaseJob(ctx, repository.CreatePurchaseJobParams{
		UserID:             user.ID,
		RemoteID:           receipt.RemoteID,
		DocumentID:         params.DocumentID,
		DocketID:           params.DocketID,
		Status:             string(domain.PurchaseStatusPending),
		EstimatedCostCents: estimate,
	})
	if err != nil {
		// The archive accepted the purchase but the local insert lost.
		// If a concurrent submit recorded a pending job first, report
		// the conflict; that job's poller observes the same remote
		// document.
		if _, pendErr := s.store.GetPendingPurchaseForDocument(ctx, repository.GetPendingPurchaseForDocumentParams{
			UserID:     user.ID,
			DocumentID: params.DocumentID,
		}); pendErr == nil {
			s.logger.Warn("Purchase accepted remotely but a concurrent job already tracks it",
				"user_id", user.ID,
				"document_id", params.DocumentID,
				"remote_id", receipt.RemoteID,
			)
			return nil, domain.InProgress(op, params.DocumentID)
		}
		s.logger.Error("Purchase accepted remotely but could not be recorded",
			"user_id", user.ID,
			"document_id", params.DocumentID,
			"remote_id", receipt.RemoteID,
			"error", err,
		)
		return nil, domain.Internal(err, op, "purchase was accepted by the archive but could not be recorded")
	}

	job := purchaseJobFromRow(row)

	metrics.PurchasesSubmitted.Inc()

	s.wg.Add(1)
	go s.poll(cloneUser(user), job)

	s.logger.Info("Purchase submitted",
		"user_id", user.ID,
		"purchase_id", job.ID,
		"document_id", params.DocumentID,
		"remote_id", receipt.RemoteID,
		"estimate_cents", estimate,
	)

	return &domain.PurchaseSubmission{Job: job}, nil
}

// settleSurpriseFree finishes a submission the archive answered with a
// free copy instead of a job. The document is fetched through the free
// path and recorded like any other free download. The cached balance is
// left alone: nothing was charged.
func (s *purchaseService) settleSurpriseFree(ctx context.Context, user *domain.User, acct courtdata.Account, doc domain.AcquirableDocument) (*domain.PurchaseSubmission, error) {
	const op = "purchase.submit"

	dl, err := s.fetchArchiveFile(ctx, acct, doc.FilePath)
	if err != nil {
		return nil, mapArchiveError(op, "document", doc.DocumentID, err)
	}

	pages, err := pdfmeta.PageCount(dl.Data)
	if err != nil {
		s.logger.Warn("Could not parse page count from document",
			"document_id", doc.DocumentID,
			"error", err,
		)
		pages = doc.PageCount
	}

	key := storage.DocumentKey(doc.DocketID, doc.DocumentID)
	err = s.blobs.Put(ctx, key, bytes.NewReader(dl.Data), storage.PutOptions{
		ContentType: "application/pdf",
		MaxSize:     maxDocumentSizeBytes,
	})
	if err != nil && !storage.IsKeyExists(err) {
		return nil, domain.Internal(err, op, "failed to store document")
	}

	err = s.store.CreateDownloadedDocument(ctx, repository.CreateDownloadedDocumentParams{
		UserID:      user.ID,
		DocumentID:  doc.DocumentID,
		DocketID:    doc.DocketID,
		EntryNumber: int32(doc.EntryNumber),
		Description: doc.Description,
		StorageKey:  key,
		Filename:    doc.StandardizedFilename(),
		SizeBytes:   int64(len(dl.Data)),
		PageCount:   int32(pages),
		Method:      string(domain.AcquisitionMethodFree),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to record document")
	}

	row, err := s.store.GetDownloadedDocument(ctx, repository.GetDownloadedDocumentParams{
		UserID:     user.ID,
		DocumentID: doc.DocumentID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read back document record")
	}

	metrics.DocumentsAcquired.WithLabelValues(string(domain.AcquisitionMethodFree)).Inc()

	s.logger.Info("Purchase resolved free at submit",
		"user_id", user.ID,
		"document_id", doc.DocumentID,
		"docket_id", doc.DocketID,
	)

	return &domain.PurchaseSubmission{Document: downloadedDocumentFromRow(row)}, nil
}

// =============================================================================
// Background Polling
// =============================================================================

// poll watches one pending purchase until it settles or the patience
// window runs out. Each attempt waits PollInterval, then asks the
// archive for the job's status.
func (s *purchaseService) poll(user *domain.User, job *domain.PurchaseJob) {
	defer s.wg.Done()

	ctx := s.baseCtx
	acct := archiveAccount(user)
	timer := time.NewTimer(s.config.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= s.config.MaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			// Shutdown. The job stays pending; ResumePending picks it
			// up on the next boot.
			return
		case <-timer.C:
		}

		metrics.PurchasePollsTotal.Inc()

		start := time.Now()
		state, err := s.archive.GetPurchaseStatus(ctx, acct, job.RemoteID)
		observeArchive("purchase_status", start, err)
		if err != nil {
			if courtdata.IsRetryable(err) {
				timer.Reset(s.config.PollInterval)
				continue
			}
			// A hard polling error leaves the outcome unknown. Record
			// a timeout; a later status check resolves it.
			s.logger.Warn("Purchase status poll failed",
				"purchase_id", job.ID,
				"remote_id", job.RemoteID,
				"attempt", attempt,
				"error", err,
			)
			s.settleTimeout(ctx, user, job, fmt.Sprintf("status polling stopped: %v", err))
			return
		}

		switch state.Status {
		case courtdata.RemoteStatusProcessing:
			timer.Reset(s.config.PollInterval)
		case courtdata.RemoteStatusSuccess:
			s.settleSuccess(ctx, user, acct, job, state)
			return
		case courtdata.RemoteStatusFailed:
			s.settleFailure(ctx, user, job, state)
			return
		}
	}

	s.settleTimeout(ctx, user, job,
		fmt.Sprintf("still processing after %d status checks", s.config.MaxPolls))
}

// settleSuccess records a completed purchase and brings the document
// into local storage. The purchase is settled as completed even when
// the document fetch fails: the archive has charged for it, and the
// now-public copy remains fetchable through the free download path.
func (s *purchaseService) settleSuccess(ctx context.Context, user *domain.User, acct courtdata.Account, job *domain.PurchaseJob, state *courtdata.PurchaseState) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeoutWindow)
	defer cancel()

	status, err := job.Status.TransitionTo(domain.PurchaseStatusCompleted)
	if err != nil {
		s.logger.Error("Invalid purchase transition", "purchase_id", job.ID, "error", err)
		return
	}

	storageKey, fetchErr := s.fetchPurchasedDocument(ctx, acct, job, state)

	// Refresh the cached balance before the row turns terminal, so a
	// caller who sees the settled purchase never reads a balance from
	// before the charge.
	s.refreshLedger(ctx, user, job)

	update := repository.UpdatePurchaseJobStatusParams{
		ID:              job.ID,
		Status:          string(status),
		ActualCostCents: state.CostCents,
		RemoteResponse:  pqtype.NullRawMessage{RawMessage: state.Raw, Valid: len(state.Raw) > 0},
		CompletedAt:     sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	if storageKey != "" {
		update.StorageKey = sql.NullString{String: storageKey, Valid: true}
	}
	if fetchErr != nil {
		update.ErrorMessage = sql.NullString{String: fmt.Sprintf("purchase completed but document fetch failed: %v", fetchErr), Valid: true}
	}

	if _, err := s.store.UpdatePurchaseJobStatus(ctx, update); err != nil {
		s.logger.Error("Failed to record completed purchase",
			"purchase_id", job.ID, "error", err)
		return
	}

	metrics.PurchasesSettled.WithLabelValues(string(domain.PurchaseStatusCompleted)).Inc()
	metrics.PurchaseSpendCents.Add(float64(state.CostCents))

	s.logger.Info("Purchase completed",
		"user_id", user.ID,
		"purchase_id", job.ID,
		"document_id", job.DocumentID,
		"actual_cost_cents", state.CostCents,
		"stored", storageKey != "",
	)
}

// fetchArchiveFile pulls a PDF from the archive's free store, retrying
// transient failures with backoff, and verifies the payload is a PDF.
func (s *purchaseService) fetchArchiveFile(ctx context.Context, acct courtdata.Account, remotePath string) (*courtdata.Download, error) {
	var dl *courtdata.Download
	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		start := time.Now()
		var ferr error
		dl, ferr = s.archive.DownloadFreeDocument(ctx, acct, remotePath)
		observeArchive("download", start, ferr)
		if ferr != nil && courtdata.IsRetryable(ferr) {
			return retry.RetryableError(ferr)
		}
		return ferr
	})
	if err != nil {
		return nil, err
	}

	if !pdfmeta.IsPDF(dl.Data) {
		return nil, fmt.Errorf("%w: non-PDF payload at %s", courtdata.EArchiveMalformed, remotePath)
	}

	return dl, nil
}

// fetchPurchasedDocument pulls the purchased PDF into blob storage and
// records it as a downloaded document. Returns the storage key on
// success and an error describing why the document is not stored.
func (s *purchaseService) fetchPurchasedDocument(ctx context.Context, acct courtdata.Account, job *domain.PurchaseJob, state *courtdata.PurchaseState) (string, error) {
	if state.FilePath == "" {
		return "", errors.New("archive reported success without a document path")
	}

	// The purchase has already been paid for; a retried fetch is far
	// cheaper than a re-buy.
	dl, err := s.fetchArchiveFile(ctx, acct, state.FilePath)
	if err != nil {
		return "", err
	}

	// Purchased filings are frequently scans with broken xref tables.
	// A blob that cannot be parsed still gets stored; the page count
	// just stays unknown.
	pages, err := pdfmeta.PageCount(dl.Data)
	if err != nil {
		s.logger.Warn("Could not parse page count from purchased document",
			"purchase_id", job.ID,
			"error", err,
		)
		pages = 0
	}

	key := storage.DocumentKey(job.DocketID, job.DocumentID)
	err = s.blobs.Put(ctx, key, bytes.NewReader(dl.Data), storage.PutOptions{
		ContentType: "application/pdf",
		MaxSize:     maxDocumentSizeBytes,
	})
	if err != nil && !storage.IsKeyExists(err) {
		return "", fmt.Errorf("store purchased document: %w", err)
	}

	entryNumber, description, filename := s.purchasedDocumentMetadata(ctx, acct, job, state)
	err = s.store.CreateDownloadedDocument(ctx, repository.CreateDownloadedDocumentParams{
		UserID:      job.UserID,
		DocumentID:  job.DocumentID,
		DocketID:    job.DocketID,
		EntryNumber: entryNumber,
		Description: description,
		StorageKey:  key,
		Filename:    filename,
		SizeBytes:   int64(len(dl.Data)),
		PageCount:   int32(pages),
		Method:      string(domain.AcquisitionMethodPurchased),
	})
	if err != nil {
		return "", fmt.Errorf("record purchased document: %w", err)
	}

	metrics.DocumentsAcquired.WithLabelValues(string(domain.AcquisitionMethodPurchased)).Inc()

	return key, nil
}

// purchasedDocumentMetadata recovers entry and description data for a
// purchased document by re-reading the docket listing. A listing
// failure degrades to minimal metadata rather than failing the settle.
func (s *purchaseService) purchasedDocumentMetadata(ctx context.Context, acct courtdata.Account, job *domain.PurchaseJob, state *courtdata.PurchaseState) (int32, string, string) {
	start := time.Now()
	docs, err := s.archive.GetDocketDocuments(ctx, acct, job.DocketID)
	observeArchive("docket_documents", start, err)
	if err == nil {
		if doc, ok := findDocument(docs, job.DocumentID); ok {
			return int32(doc.EntryNumber), doc.Description, doc.StandardizedFilename()
		}
	}
	return 0, "", path.Base(state.FilePath)
}

// settleFailure records a purchase the archive reported as permanently
// failed.
func (s *purchaseService) settleFailure(ctx context.Context, user *domain.User, job *domain.PurchaseJob, state *courtdata.PurchaseState) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeoutWindow)
	defer cancel()

	status, err := job.Status.TransitionTo(domain.PurchaseStatusFailed)
	if err != nil {
		s.logger.Error("Invalid purchase transition", "purchase_id", job.ID, "error", err)
		return
	}

	message := state.ErrorMessage
	if message == "" {
		message = "the archive reported the purchase as failed"
	}

	// Failed fetches can still charge partial fees on some archives, so
	// the balance is re-read here too, before the row turns terminal.
	s.refreshLedger(ctx, user, job)

	_, err = s.store.UpdatePurchaseJobStatus(ctx, repository.UpdatePurchaseJobStatusParams{
		ID:             job.ID,
		Status:         string(status),
		ErrorMessage:   sql.NullString{String: message, Valid: true},
		RemoteResponse: pqtype.NullRawMessage{RawMessage: state.Raw, Valid: len(state.Raw) > 0},
		CompletedAt:    sql.NullTime{Time: time.Now().UTC(), Valid: true},
	})
	if err != nil {
		s.logger.Error("Failed to record failed purchase",
			"purchase_id", job.ID, "error", err)
		return
	}

	metrics.PurchasesSettled.WithLabelValues(string(domain.PurchaseStatusFailed)).Inc()

	s.logger.Info("Purchase failed",
		"user_id", user.ID,
		"purchase_id", job.ID,
		"document_id", job.DocumentID,
		"reason", message,
	)
}

// settleTimeout records that local polling gave up. The remote job may
// still finish; completed_at stays unset until a later check resolves
// the real outcome.
func (s *purchaseService) settleTimeout(ctx context.Context, user *domain.User, job *domain.PurchaseJob, reason string) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeoutWindow)
	defer cancel()

	status, err := job.Status.TransitionTo(domain.PurchaseStatusTimedOut)
	if err != nil {
		s.logger.Error("Invalid purchase transition", "purchase_id", job.ID, "error", err)
		return
	}

	// The remote job may have charged by now; re-read the balance so
	// the cache reflects whatever actually happened.
	s.refreshLedger(ctx, user, job)

	_, err = s.store.UpdatePurchaseJobStatus(ctx, repository.UpdatePurchaseJobStatusParams{
		ID:           job.ID,
		Status:       string(status),
		ErrorMessage: sql.NullString{String: reason, Valid: true},
	})
	if err != nil {
		s.logger.Error("Failed to record timed-out purchase",
			"purchase_id", job.ID, "error", err)
		return
	}

	metrics.PurchasesSettled.WithLabelValues(string(domain.PurchaseStatusTimedOut)).Inc()

	s.logger.Warn("Purchase timed out",
		"user_id", user.ID,
		"purchase_id", job.ID,
		"document_id", job.DocumentID,
		"reason", reason,
	)
}

// refreshLedger is the single balance refresh a terminal transition
// performs. Transient archive failures retry briefly with backoff;
// anything else is logged, not propagated: the settle already happened
// and the cache expires on its own.
func (s *purchaseService) refreshLedger(ctx context.Context, user *domain.User, job *domain.PurchaseJob) {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, rerr := s.ledger.Refresh(ctx, user)
		if rerr != nil && domain.IsTransient(rerr) {
			return retry.RetryableError(rerr)
		}
		return rerr
	})
	if err != nil {
		s.logger.Warn("Balance refresh after settle failed",
			"user_id", user.ID,
			"purchase_id", job.ID,
			"error", err,
		)
	}
}

// =============================================================================
// Check
// =============================================================================

// Check returns the current state of a purchase, reconciling late
// resolutions for timed-out jobs.
func (s *purchaseService) Check(ctx context.Context, user *domain.User, purchaseID uuid.UUID) (*domain.PurchaseJob, error) {
	const op = "purchase.check"

	row, err := s.store.GetPurchaseJobByIDAndUserID(ctx, repository.GetPurchaseJobByIDAndUserIDParams{
		ID:     purchaseID,
		UserID: user.ID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "purchase", purchaseID.String())
		}
		return nil, domain.Internal(err, op, "failed to load purchase")
	}

	job := purchaseJobFromRow(row)

	// Pending jobs have a live poller and settled jobs never change;
	// only a timed-out job warrants asking the archive again.
	if job.Status != domain.PurchaseStatusTimedOut {
		return job, nil
	}

	// Concurrent checks of the same purchase share one reconcile.
	v, err, _ := s.group.Do("check:"+purchaseID.String(), func() (interface{}, error) {
		return s.reconcileTimedOut(ctx, op, user, job)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.PurchaseJob), nil
}

// reconcileTimedOut asks the archive once for a timed-out job's real
// outcome and settles it if the remote side finished.
func (s *purchaseService) reconcileTimedOut(ctx context.Context, op string, user *domain.User, job *domain.PurchaseJob) (*domain.PurchaseJob, error) {
	acct, err := requireArchiveToken(op, user)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	state, err := s.archive.GetPurchaseStatus(ctx, acct, job.RemoteID)
	observeArchive("purchase_status", start, err)
	if err != nil {
		return nil, mapArchiveError(op, "purchase", job.ID.String(), err)
	}

	switch state.Status {
	case courtdata.RemoteStatusSuccess:
		s.settleSuccess(ctx, user, acct, job, state)
	case courtdata.RemoteStatusFailed:
		s.settleFailure(ctx, user, job, state)
	default:
		// Still processing remotely. The stored timeout stands.
		return job, nil
	}

	row, err := s.store.GetPurchaseJobByIDAndUserID(ctx, repository.GetPurchaseJobByIDAndUserIDParams{
		ID:     job.ID,
		UserID: user.ID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to reload purchase")
	}
	return purchaseJobFromRow(row), nil
}

// =============================================================================
// List
// =============================================================================

// List returns a page of the user's purchases.
func (s *purchaseService) List(ctx context.Context, user *domain.User, params domain.ListPurchasesParams) (*domain.ListPurchasesResult, error) {
	const op = "purchase.list"

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.store.ListPurchaseJobsByUserID(ctx, repository.ListPurchaseJobsByUserIDParams{
		UserID: user.ID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list purchases")
	}

	total, err := s.store.CountPurchaseJobsByUserID(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count purchases")
	}

	purchases := make([]domain.PurchaseJob, 0, len(rows))
	for _, row := range rows {
		purchases = append(purchases, *purchaseJobFromRow(row))
	}

	return &domain.ListPurchasesResult{
		Purchases: purchases,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// ResumePending re-attaches polling to purchases left pending by an
// earlier process, e.g. after a deploy or crash mid-poll.
func (s *purchaseService) ResumePending(ctx context.Context) error {
	const op = "purchase.resume_pending"

	rows, err := s.store.ListPendingPurchaseJobs(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to list pending purchases")
	}

	resumed := 0
	for _, row := range rows {
		userRow, err := s.store.GetUserByID(ctx, row.UserID)
		if err != nil {
			s.logger.Error("Cannot resume purchase, user lookup failed",
				"purchase_id", row.ID, "user_id", row.UserID, "error", err)
			continue
		}
		user := userFromRow(userRow)
		if user.CourtToken == "" {
			// No token, no polling. The job stays pending until the
			// user restores a token and checks it.
			s.logger.Warn("Cannot resume purchase, user has no archive token",
				"purchase_id", row.ID, "user_id", row.UserID)
			continue
		}

		s.wg.Add(1)
		go s.poll(user, purchaseJobFromRow(row))
		resumed++
	}

	if len(rows) > 0 {
		s.logger.Info("Resumed pending purchases",
			"pending", len(rows),
			"resumed", resumed,
		)
	}

	return nil
}

// Close stops background polling and waits for settlement work in
// flight to finish.
func (s *purchaseService) Close() {
	s.cancel()
	s.wg.Wait()
}

// =============================================================================
// Helpers
// =============================================================================

// cloneUser snapshots the fields background polling needs, so the
// goroutine never shares memory with request-scoped data.
func cloneUser(user *domain.User) *domain.User {
	clone := *user
	return &clone
}

// purchaseJobFromRow converts a repository row to the domain type.
func purchaseJobFromRow(row repository.PurchaseJob) *domain.PurchaseJob {
	job := &domain.PurchaseJob{
		ID:                 row.ID,
		UserID:             row.UserID,
		RemoteID:           row.RemoteID,
		DocumentID:         row.DocumentID,
		DocketID:           row.DocketID,
		Status:             domain.PurchaseStatus(row.Status),
		EstimatedCostCents: row.EstimatedCostCents,
		ActualCostCents:    row.ActualCostCents,
		ErrorMessage:       domain.NullStringValue(row.ErrorMessage),
		StorageKey:         domain.NullStringValue(row.StorageKey),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		job.CompletedAt = &t
	}
	return job
}
