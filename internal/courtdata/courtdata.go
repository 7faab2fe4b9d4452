// Package courtdata defines the client interface to the remote court
// document archive: docket search, document listings, free downloads,
// paid fetches, the credit ledger, docket monitoring, and hand-off to
// the analysis pipeline.
//
// Everything behind this interface is remote state we do not own. The
// archive is the source of truth for balances, purchase outcomes, and
// the monitored-docket set; implementations translate its responses
// into domain types and its failures into the sentinel errors below.
package courtdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thorsby/docketwatch/internal/domain"
)

// Service defines the operations available against the court archive.
type Service interface {
	// SearchDockets runs a free-text docket search.
	SearchDockets(ctx context.Context, acct Account, params SearchParams) ([]domain.Docket, error)

	// GetDocketDocuments lists the acquirable documents filed on a docket.
	GetDocketDocuments(ctx context.Context, acct Account, docketID string) ([]domain.AcquirableDocument, error)

	// DownloadFreeDocument fetches an archive-held copy by its file path.
	// Only valid for documents classified free; billable documents go
	// through SubmitPurchase.
	DownloadFreeDocument(ctx context.Context, acct Account, filePath string) (*Download, error)

	// GetCreditBalance reads the account's current ledger balance.
	GetCreditBalance(ctx context.Context, acct Account) (int64, error)

	// SubmitPurchase asks the archive to fetch a paid document. A nil
	// error means the archive accepted the job; the charge settles when
	// the job reaches a terminal state, not here.
	SubmitPurchase(ctx context.Context, acct Account, params PurchaseParams) (*PurchaseReceipt, error)

	// GetPurchaseStatus reads the current state of a fetch job.
	GetPurchaseStatus(ctx context.Context, acct Account, remoteID string) (*PurchaseState, error)

	// MonitorStart subscribes the account to new-filing alerts for a
	// docket. A nil error is the confirmation local state may rely on.
	MonitorStart(ctx context.Context, acct Account, docketID string) error

	// MonitorStop removes the subscription. Stopping a docket that is
	// not subscribed is not an error.
	MonitorStop(ctx context.Context, acct Account, docketID string) error

	// MonitorList returns the dockets the archive has the account
	// subscribed to. This is the authoritative set.
	MonitorList(ctx context.Context, acct Account) ([]domain.Docket, error)

	// CheckUpdates asks whether a docket has new filings since the
	// archive last notified this account.
	CheckUpdates(ctx context.Context, acct Account, docketID string) (*domain.UpdateSignal, error)

	// SubmitAnalysis hands a stored document to the analysis pipeline.
	// Submission is accept-and-forget; results are not read back here.
	SubmitAnalysis(ctx context.Context, acct Account, params AnalysisParams) error
}

// Account carries the per-user credential for the archive. The token
// both identifies the ledger account and authorizes calls against it.
type Account struct {
	Token string
}

// SearchParams contains parameters for docket search.
type SearchParams struct {
	Query string // Free-text query
	Court string // Optional court filter, e.g. "nysd"
	Limit int    // Maximum results; 0 means the archive default
}

// Download is a fetched document body.
type Download struct {
	Data        []byte // Raw PDF bytes
	ContentType string // As reported by the archive
	SizeBytes   int64  // Length of Data
}

// PurchaseParams contains parameters for a paid fetch.
type PurchaseParams struct {
	DocumentID         string // Archive document identifier
	DocketID           string // Docket the document belongs to
	EstimatedCostCents int64  // Local cost estimate, forwarded for archive-side guardrails
}

// PurchaseReceipt is the archive's acknowledgement of a fetch
// submission. Either a job was queued (RemoteID set) or the archive
// already held a free copy (FreePath set); never both.
type PurchaseReceipt struct {
	RemoteID   string    // Identifier to poll with
	FreePath   string    // Free-store path when the document turned out to be free; nothing was charged
	AcceptedAt time.Time // When the archive answered
}

// RemoteStatus is the archive's view of a fetch job.
type RemoteStatus string

const (
	RemoteStatusProcessing RemoteStatus = "processing"
	RemoteStatusSuccess    RemoteStatus = "success"
	RemoteStatusFailed     RemoteStatus = "failed"
)

// Valid checks if the status is a recognized value.
func (s RemoteStatus) Valid() bool {
	switch s {
	case RemoteStatusProcessing, RemoteStatusSuccess, RemoteStatusFailed:
		return true
	default:
		return false
	}
}

// PurchaseState is a point-in-time snapshot of a fetch job.
type PurchaseState struct {
	RemoteID     string       // Job identifier
	Status       RemoteStatus // Current remote status
	CostCents    int64        // Settled charge; 0 until success
	FilePath     string       // Archive path of the delivered document, on success
	ErrorMessage string       // Failure reason, on failure
	Raw          []byte       // Raw response body, kept for the audit trail
}

// AnalysisParams contains parameters for an analysis submission.
type AnalysisParams struct {
	Key        string // Idempotency key, see domain.AnalysisKey
	DocumentID string // Archive document identifier
	PDFData    []byte // Document body to analyze
}

// Config contains common configuration for archive clients.
type Config struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error sentinels for archive operations
var (
	// EArchiveUnavailable indicates the archive could not be reached or
	// answered with a server error
	EArchiveUnavailable = errors.New("court archive temporarily unavailable")

	// EArchiveUnauthorized indicates the account token was rejected
	EArchiveUnauthorized = errors.New("court archive authentication failed")

	// EArchiveRateLimit indicates the archive rate limit has been exceeded
	EArchiveRateLimit = errors.New("court archive rate limit exceeded")

	// EArchiveNotFound indicates the docket or document does not exist
	EArchiveNotFound = errors.New("not found in court archive")

	// EArchivePayment indicates the ledger rejected the charge
	EArchivePayment = errors.New("court archive reported insufficient credits")

	// EArchiveRestricted indicates the source blocks programmatic access
	// to the document (sealed filings, restricted courts)
	EArchiveRestricted = errors.New("document access is restricted at the source")

	// EArchiveTimeout indicates the request timed out
	EArchiveTimeout = errors.New("court archive request timed out")

	// EArchiveMalformed indicates a response that failed schema validation
	EArchiveMalformed = errors.New("court archive returned a malformed response")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EArchiveRateLimit) ||
		errors.Is(err, EArchiveTimeout) ||
		errors.Is(err, EArchiveUnavailable)
}

// WrapError wraps an error with context about the archive operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("courtdata %s: %w", operation, err)
}
