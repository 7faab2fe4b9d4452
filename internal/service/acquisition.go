// Package service contains the business logic layer.
//
// This file implements document acquisition: fetching free archive
// copies into local storage and submitting stored documents for
// analysis. Both operations are idempotent per document. A document
// that already has a local record is never fetched again, and a
// document already submitted for analysis is never resubmitted; repeat
// calls return without touching the archive.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/metrics"
	"github.com/thorsby/docketwatch/internal/pdfmeta"
	"github.com/thorsby/docketwatch/internal/repository"
	"github.com/thorsby/docketwatch/internal/storage"
)

const (
	// maxDocumentSizeBytes rejects blobs that cannot plausibly be a
	// court filing. The largest observed archive document is ~60 MB.
	maxDocumentSizeBytes = 100 * 1024 * 1024

	// documentURLTTL is how long a serving URL stays valid.
	documentURLTTL = 15 * time.Minute
)

// =============================================================================
// Store Interface
// =============================================================================

// AcquisitionStore is the subset of repository queries the acquisition
// service uses. *repository.Queries satisfies it.
type AcquisitionStore interface {
	CreateDownloadedDocument(ctx context.Context, arg repository.CreateDownloadedDocumentParams) error
	GetDownloadedDocument(ctx context.Context, arg repository.GetDownloadedDocumentParams) (repository.DownloadedDocument, error)
	ListDownloadedDocumentsByDocket(ctx context.Context, arg repository.ListDownloadedDocumentsByDocketParams) ([]repository.DownloadedDocument, error)
	ListDownloadedDocumentsByUserID(ctx context.Context, arg repository.ListDownloadedDocumentsByUserIDParams) ([]repository.DownloadedDocument, error)
	CountDownloadedDocumentsByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	CreateAnalysisRecord(ctx context.Context, arg repository.CreateAnalysisRecordParams) error
	GetAnalysisRecord(ctx context.Context, arg repository.GetAnalysisRecordParams) (repository.AnalysisRecord, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// AcquisitionService defines operations for acquiring and analyzing
// court documents.
type AcquisitionService interface {
	// Download fetches a free archive copy of a document into local
	// storage. If the document was already downloaded the existing
	// record is returned and the archive is not contacted.
	// Returns EPAYMENT_REQUIRED if the document has no free copy,
	// ENOTFOUND if the document is not on the docket, EMALFORMED if
	// the archive serves something that is not a PDF.
	Download(ctx context.Context, user *domain.User, docketID, documentID string) (*domain.DownloadedDocument, error)

	// Analyze submits a downloaded document to the archive's analysis
	// pipeline. If the document was already submitted the call is a
	// no-op. Returns ENOTFOUND if the document has not been
	// downloaded, EINVALID if no archive token is configured.
	Analyze(ctx context.Context, user *domain.User, documentID string) error

	// GetDownloaded returns the local record for a downloaded
	// document. Returns ENOTFOUND if there is none.
	GetDownloaded(ctx context.Context, user *domain.User, documentID string) (*domain.DownloadedDocument, error)

	// OpenDocument returns a short-lived URL serving the stored copy
	// of a downloaded document.
	OpenDocument(ctx context.Context, user *domain.User, documentID string) (string, error)

	// ListDownloads returns a page of the user's downloaded documents,
	// newest first.
	ListDownloads(ctx context.Context, user *domain.User, params domain.ListDownloadsParams) (*domain.ListDownloadsResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type acquisitionService struct {
	store   AcquisitionStore
	archive courtdata.Service
	blobs   storage.Storage
	group   singleflight.Group
	logger  *slog.Logger
}

// NewAcquisitionService creates a new AcquisitionService.
func NewAcquisitionService(store AcquisitionStore, archive courtdata.Service, blobs storage.Storage, logger *slog.Logger) AcquisitionService {
	return &acquisitionService{
		store:   store,
		archive: archive,
		blobs:   blobs,
		logger:  logger,
	}
}

// =============================================================================
// Download
// =============================================================================

// Download fetches a free archive copy of a document into local storage.
func (s *acquisitionService) Download(ctx context.Context, user *domain.User, docketID, documentID string) (*domain.DownloadedDocument, error) {
	const op = "acquisition.download"

	if docketID == "" || documentID == "" {
		return nil, domain.Invalid(op, "Docket ID and document ID are required.")
	}

	// Fast path: an existing record makes the whole call a no-op.
	if rec, err := s.getRecord(ctx, user.ID, documentID); err == nil {
		return rec, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check download record")
	}

	// Concurrent requests for the same document share one fetch.
	v, err, _ := s.group.Do(flightKey("download", user.ID, documentID), func() (interface{}, error) {
		return s.download(ctx, op, user, docketID, documentID)
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.DownloadedDocument), nil
}

// download performs the fetch. It runs inside the singleflight group,
// so at most one execution per user and document is in progress.
func (s *acquisitionService) download(ctx context.Context, op string, user *domain.User, docketID, documentID string) (*domain.DownloadedDocument, error) {
	// Re-check under the flight: a concurrent call may have finished
	// between the fast path and here.
	if rec, err := s.getRecord(ctx, user.ID, documentID); err == nil {
		return rec, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check download record")
	}

	acct := archiveAccount(user)

	// Classification works off the live listing, never cached state:
	// availability and file paths change as other users buy documents.
	start := time.Now()
	docs, err := s.archive.GetDocketDocuments(ctx, acct, docketID)
	observeArchive("docket_documents", start, err)
	if err != nil {
		return nil, mapArchiveError(op, "docket", docketID, err)
	}

	doc, ok := findDocument(docs, documentID)
	if !ok {
		return nil, domain.NotFound(op, "document", documentID)
	}

	if doc.Classify() != domain.ClassificationFree {
		return nil, domain.PaymentRequired(op, "No free copy of this document exists in the archive. Purchase it to proceed.")
	}

	start = time.Now()
	dl, err := s.archive.DownloadFreeDocument(ctx, acct, doc.FilePath)
	observeArchive("download", start, err)
	if err != nil {
		return nil, mapArchiveError(op, "document", documentID, err)
	}

	// The archive occasionally serves an HTML error page with a 200.
	// Never store a blob that does not carry a PDF signature.
	if !pdfmeta.IsPDF(dl.Data) {
		return nil, domain.Malformed(nil, op, "The archive served a non-PDF payload for this document.")
	}

	// Scanned filings often carry broken cross-reference tables. When the
	// blob cannot be parsed, keep the listing's page count instead of
	// rejecting the document.
	pages, err := pdfmeta.PageCount(dl.Data)
	if err != nil {
		s.logger.Warn("Could not parse page count from document",
			"document_id", documentID,
			"error", err,
		)
		pages = doc.PageCount
	}

	key := storage.DocumentKey(docketID, documentID)
	err = s.blobs.Put(ctx, key, bytes.NewReader(dl.Data), storage.PutOptions{
		ContentType: "application/pdf",
		MaxSize:     maxDocumentSizeBytes,
	})
	if err != nil && !storage.IsKeyExists(err) {
		return nil, domain.Internal(err, op, "failed to store document")
	}

	// ON CONFLICT DO NOTHING: if another process recorded the download
	// first, the read below returns that row and this call still
	// reports success.
	err = s.store.CreateDownloadedDocument(ctx, repository.CreateDownloadedDocumentParams{
		UserID:      user.ID,
		DocumentID:  documentID,
		DocketID:    docketID,
		EntryNumber: int32(doc.EntryNumber),
		Description: doc.Description,
		StorageKey:  key,
		Filename:    doc.StandardizedFilename(),
		SizeBytes:   int64(len(dl.Data)),
		PageCount:   int32(pages),
		Method:      string(domain.AcquisitionMethodFree),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to record download")
	}

	rec, err := s.getRecord(ctx, user.ID, documentID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load download record")
	}

	metrics.DocumentsAcquired.WithLabelValues(string(domain.AcquisitionMethodFree)).Inc()

	s.logger.Info("Document downloaded",
		"user_id", user.ID,
		"docket_id", docketID,
		"document_id", documentID,
		"size_bytes", len(dl.Data),
		"pages", pages,
	)

	return rec, nil
}

// =============================================================================
// Analyze
// =============================================================================

// Analyze submits a downloaded document to the archive's analysis pipeline.
func (s *acquisitionService) Analyze(ctx context.Context, user *domain.User, documentID string) error {
	const op = "acquisition.analyze"

	if documentID == "" {
		return domain.Invalid(op, "Document ID is required.")
	}

	key := domain.AnalysisKey(documentID)

	// An existing record means the document was already submitted.
	_, err := s.store.GetAnalysisRecord(ctx, repository.GetAnalysisRecordParams{
		UserID:      user.ID,
		AnalysisKey: key,
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Internal(err, op, "failed to check analysis record")
	}

	_, err, _ = s.group.Do(flightKey("analyze", user.ID, documentID), func() (interface{}, error) {
		return nil, s.analyze(ctx, op, user, key, documentID)
	})
	return err
}

func (s *acquisitionService) analyze(ctx context.Context, op string, user *domain.User, key, documentID string) error {
	if _, err := s.store.GetAnalysisRecord(ctx, repository.GetAnalysisRecordParams{
		UserID:      user.ID,
		AnalysisKey: key,
	}); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return domain.Internal(err, op, "failed to check analysis record")
	}

	acct, err := requireArchiveToken(op, user)
	if err != nil {
		return err
	}

	// Analysis runs on the stored copy, so the document must have been
	// downloaded first.
	rec, err := s.store.GetDownloadedDocument(ctx, repository.GetDownloadedDocumentParams{
		UserID:     user.ID,
		DocumentID: documentID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "downloaded document", documentID)
		}
		return domain.Internal(err, op, "failed to load download record")
	}

	rc, _, err := s.blobs.Get(ctx, rec.StorageKey)
	if err != nil {
		return domain.Internal(err, op, "failed to read stored document")
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return domain.Internal(err, op, "failed to read stored document")
	}

	start := time.Now()
	err = s.archive.SubmitAnalysis(ctx, acct, courtdata.AnalysisParams{
		Key:        key,
		DocumentID: documentID,
		PDFData:    data,
	})
	observeArchive("submit_analysis", start, err)
	if err != nil {
		return mapArchiveError(op, "document", documentID, err)
	}

	err = s.store.CreateAnalysisRecord(ctx, repository.CreateAnalysisRecordParams{
		UserID:      user.ID,
		AnalysisKey: key,
		DocumentID:  documentID,
	})
	if err != nil {
		return domain.Internal(err, op, "failed to record analysis submission")
	}

	metrics.AnalysesSubmitted.Inc()

	s.logger.Info("Document submitted for analysis",
		"user_id", user.ID,
		"document_id", documentID,
		"analysis_key", key,
	)

	return nil
}

// =============================================================================
// Reads
// =============================================================================

// GetDownloaded returns the local record for a downloaded document.
func (s *acquisitionService) GetDownloaded(ctx context.Context, user *domain.User, documentID string) (*domain.DownloadedDocument, error) {
	const op = "acquisition.get_downloaded"

	rec, err := s.getRecord(ctx, user.ID, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "downloaded document", documentID)
		}
		return nil, domain.Internal(err, op, "failed to load download record")
	}
	return rec, nil
}

// OpenDocument returns a short-lived URL serving the stored copy.
func (s *acquisitionService) OpenDocument(ctx context.Context, user *domain.User, documentID string) (string, error) {
	const op = "acquisition.open_document"

	rec, err := s.GetDownloaded(ctx, user, documentID)
	if err != nil {
		return "", err
	}

	url, err := s.blobs.URL(ctx, rec.StorageKey, documentURLTTL)
	if err != nil {
		return "", domain.Internal(err, op, "failed to generate document URL")
	}
	return url, nil
}

// ListDownloads returns a page of the user's downloaded documents.
func (s *acquisitionService) ListDownloads(ctx context.Context, user *domain.User, params domain.ListDownloadsParams) (*domain.ListDownloadsResult, error) {
	const op = "acquisition.list_downloads"

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

	rows, err := s.store.ListDownloadedDocumentsByUserID(ctx, repository.ListDownloadedDocumentsByUserIDParams{
		UserID: user.ID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list downloads")
	}

	total, err := s.store.CountDownloadedDocumentsByUserID(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count downloads")
	}

	docs := make([]domain.DownloadedDocument, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, *downloadedDocumentFromRow(row))
	}

	return &domain.ListDownloadsResult{
		Documents: docs,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *acquisitionService) getRecord(ctx context.Context, userID uuid.UUID, documentID string) (*domain.DownloadedDocument, error) {
	row, err := s.store.GetDownloadedDocument(ctx, repository.GetDownloadedDocumentParams{
		UserID:     userID,
		DocumentID: documentID,
	})
	if err != nil {
		return nil, err
	}
	return downloadedDocumentFromRow(row), nil
}

// flightKey scopes singleflight dedup to one user and document.
func flightKey(kind string, userID uuid.UUID, documentID string) string {
	return kind + ":" + userID.String() + ":" + documentID
}

// findDocument locates a document in a docket listing by ID.
func findDocument(docs []domain.AcquirableDocument, documentID string) (domain.AcquirableDocument, bool) {
	for _, d := range docs {
		if d.DocumentID == documentID {
			return d, true
		}
	}
	return domain.AcquirableDocument{}, false
}

// downloadedDocumentFromRow converts a repository row to the domain type.
func downloadedDocumentFromRow(row repository.DownloadedDocument) *domain.DownloadedDocument {
	return &domain.DownloadedDocument{
		UserID:      row.UserID,
		DocumentID:  row.DocumentID,
		DocketID:    row.DocketID,
		EntryNumber: int(row.EntryNumber),
		Description: row.Description,
		StorageKey:  row.StorageKey,
		Filename:    row.Filename,
		SizeBytes:   row.SizeBytes,
		PageCount:   int(row.PageCount),
		Method:      domain.AcquisitionMethod(row.Method),
		CreatedAt:   row.CreatedAt,
	}
}
