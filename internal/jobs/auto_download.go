package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/worker"
)

// maxConcurrentDownloads limits parallel archive fetches so a docket with
// many new free filings does not trip the archive's rate limits.
const maxConcurrentDownloads = 3

// UserGetter resolves job payload user IDs to full user records.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// DocumentLister lists a docket's documents with their live
// free-or-billable classification.
type DocumentLister interface {
	GetDocketDocuments(ctx context.Context, user *domain.User, docketID string) ([]domain.AcquirableDocument, error)
}

// Downloader fetches one free document. Repeat calls for a document the
// user already holds are no-ops.
type Downloader interface {
	Download(ctx context.Context, user *domain.User, docketID, documentID string) (*domain.DownloadedDocument, error)
}

// QuotaChecker enforces the tier's monthly auto-download budget.
type QuotaChecker interface {
	CheckAutoDownloadQuota(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) error
}

// AutoDownloadHandler processes jobs that fetch the free documents of a
// monitored docket after an update signal. Billable documents are never
// touched: spending credits always requires an explicit purchase.
type AutoDownloadHandler struct {
	users     UserGetter
	docs      DocumentLister
	downloads Downloader
	quota     QuotaChecker
	logger    *slog.Logger
}

// NewAutoDownloadHandler creates a new handler for auto-download jobs.
func NewAutoDownloadHandler(
	users UserGetter,
	docs DocumentLister,
	downloads Downloader,
	quota QuotaChecker,
	logger *slog.Logger,
) *AutoDownloadHandler {
	return &AutoDownloadHandler{
		users:     users,
		docs:      docs,
		downloads: downloads,
		quota:     quota,
		logger:    logger,
	}
}

// Type returns the job type identifier.
func (h *AutoDownloadHandler) Type() string {
	return worker.JobTypeAutoDownload
}

// Handle executes one auto-download sweep over a docket that reported
// new filings. It lists the docket's documents, downloads the free ones,
// and skips everything billable.
func (h *AutoDownloadHandler) Handle(ctx context.Context, payload []byte) error {
	// Unmarshal the payload
	var p worker.AutoDownloadPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	h.logger.Info("Auto-download sweep starting",
		"docket_id", p.DocketID,
		"user_id", p.UserID,
	)

	// 1. Resolve the user
	user, err := h.users.GetByID(ctx, p.UserID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return worker.NewPermanentError(fmt.Errorf("user not found: %w", err))
		}
		// Database error - retryable
		return fmt.Errorf("fetch user: %w", err)
	}

	// 2. Re-check the monthly budget. The check made at enqueue time goes
	// stale while the job waits in the queue behind other sweeps.
	if err := h.quota.CheckAutoDownloadQuota(ctx, user.ID, user.EffectiveTier()); err != nil {
		if domain.ErrorCode(err) == domain.EPAYMENT {
			return worker.NewPermanentError(fmt.Errorf("auto-download budget exhausted: %w", err))
		}
		return fmt.Errorf("check auto-download budget: %w", err)
	}

	// 3. List the docket's documents with live classification
	docs, err := h.docs.GetDocketDocuments(ctx, user, p.DocketID)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND, domain.EINVALID:
			return worker.NewPermanentError(fmt.Errorf("list docket documents: %w", err))
		}
		// Archive outages and rate limits are retryable
		return fmt.Errorf("list docket documents: %w", err)
	}

	var free []domain.AcquirableDocument
	for _, doc := range docs {
		if doc.Classify() == domain.ClassificationFree {
			free = append(free, doc)
		}
	}

	h.logger.Info("Classified docket documents",
		"docket_id", p.DocketID,
		"total", len(docs),
		"free", len(free),
		"billable", len(docs)-len(free),
	)

	// 4. Download free documents in parallel with limited concurrency
	var downloaded, failed atomic.Int32
	sem := make(chan struct{}, maxConcurrentDownloads) // Semaphore to limit concurrent archive fetches
	var wg sync.WaitGroup

	for _, doc := range free {
		wg.Add(1)
		sem <- struct{}{} // Acquire semaphore slot

		go func(doc domain.AcquirableDocument) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore slot

			if _, err := h.downloads.Download(ctx, user, p.DocketID, doc.DocumentID); err != nil {
				h.logger.Error("Auto-download failed",
					"docket_id", p.DocketID,
					"document_id", doc.DocumentID,
					"error", err,
				)
				failed.Add(1)
				return
			}
			downloaded.Add(1)
		}(doc)
	}

	// Wait for all downloads to complete
	wg.Wait()

	h.logger.Info("Auto-download sweep completed",
		"docket_id", p.DocketID,
		"user_id", p.UserID,
		"free", len(free),
		"downloaded", downloaded.Load(),
		"failed", failed.Load(),
	)

	// A retried sweep is safe: documents fetched on this attempt resolve
	// to no-ops next time around.
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("auto-download sweep: %d of %d documents failed", n, len(free))
	}

	return nil
}
