// Package domain contains core business types and interfaces.
//
// This file defines the PurchaseJob domain type and related types for
// tracking paid document acquisitions through the remote court archive.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Purchase Cost Model
// =============================================================================

// Per-page fee and the per-document cap charged by the court archive,
// in cents. Audio files are exempt from the cap but we only acquire PDFs.
const (
	PageCostCents        int64 = 10
	DocumentCostCapCents int64 = 300
)

// EstimateCostCents returns the estimated acquisition cost for a document
// with the given page count. Unknown page counts (zero or negative) are
// estimated at the per-document cap so the pre-flight check stays
// conservative.
func EstimateCostCents(pageCount int) int64 {
	if pageCount <= 0 {
		return DocumentCostCapCents
	}
	cost := int64(pageCount) * PageCostCents
	if cost > DocumentCostCapCents {
		return DocumentCostCapCents
	}
	return cost
}

// =============================================================================
// Purchase Status
// =============================================================================

// PurchaseStatus represents the lifecycle state of a purchase job.
//
// Acceptance by the remote archive creates the job directly in pending;
// a submission the archive rejects never produces a job row at all.
type PurchaseStatus string

const (
	// PurchaseStatusPending indicates the remote archive accepted the
	// purchase and is fetching the document. The job is polled until it
	// reaches a terminal status.
	PurchaseStatusPending PurchaseStatus = "pending"

	// PurchaseStatusCompleted indicates the document was fetched and is
	// available remotely; credits have been debited.
	PurchaseStatusCompleted PurchaseStatus = "completed"

	// PurchaseStatusFailed indicates the remote archive reported a
	// permanent failure for this purchase.
	PurchaseStatusFailed PurchaseStatus = "failed"

	// PurchaseStatusTimedOut indicates we stopped waiting before the
	// remote job finished. The purchase may still complete remotely;
	// a later status check can move the job to completed or failed.
	PurchaseStatusTimedOut PurchaseStatus = "timed_out"
)

// String returns the string representation of the status.
func (s PurchaseStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s PurchaseStatus) IsValid() bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusCompleted,
		PurchaseStatusFailed, PurchaseStatusTimedOut:
		return true
	}
	return false
}

// IsTerminal returns true once the job needs no further polling.
// A timed-out job is terminal for the polling loop even though the
// remote side may still be working; re-checks go through status reads,
// not the poller.
func (s PurchaseStatus) IsTerminal() bool {
	switch s {
	case PurchaseStatusCompleted, PurchaseStatusFailed, PurchaseStatusTimedOut:
		return true
	}
	return false
}

// CanTransitionTo checks if the purchase can transition to the target status.
//
// Valid transitions:
// - pending -> completed (remote fetch succeeded)
// - pending -> failed (remote fetch failed permanently)
// - pending -> timed_out (local patience window exhausted)
// - timed_out -> completed | failed (late resolution on a later check)
//
// Completed and failed are final: a settled purchase never changes.
func (s PurchaseStatus) CanTransitionTo(target PurchaseStatus) bool {
	switch s {
	case PurchaseStatusPending:
		return target == PurchaseStatusCompleted ||
			target == PurchaseStatusFailed ||
			target == PurchaseStatusTimedOut
	case PurchaseStatusTimedOut:
		return target == PurchaseStatusCompleted || target == PurchaseStatusFailed
	}
	return false
}

// TransitionTo validates and applies a status transition, returning an
// error when the move is not allowed.
func (s PurchaseStatus) TransitionTo(target PurchaseStatus) (PurchaseStatus, error) {
	if !target.IsValid() {
		return s, Errorf(EINVALID, "purchase.transition", "unknown purchase status %q", target)
	}
	if !s.CanTransitionTo(target) {
		return s, Errorf(ECONFLICT, "purchase.transition",
			"cannot move purchase from %s to %s", s, target)
	}
	return target, nil
}

// =============================================================================
// Purchase Job Domain Type
// =============================================================================

// PurchaseJob represents one paid acquisition of a court document.
//
// At most one non-terminal job may exist per (user, document); a second
// submission while the first is pending is rejected, not queued.
type PurchaseJob struct {
	ID         uuid.UUID      // Unique identifier
	UserID     uuid.UUID      // Owner of the purchase
	RemoteID   string         // Job identifier assigned by the remote archive
	DocumentID string         // Court document being purchased
	DocketID   string         // Docket the document belongs to
	Status     PurchaseStatus // Current status

	EstimatedCostCents int64  // Pre-flight estimate shown to the user
	ActualCostCents    int64  // Amount reported by the archive; 0 until completed
	ErrorMessage       string // Failure reason reported by the archive, if any
	StorageKey         string // Blob key of the fetched PDF; set on completion

	CreatedAt   time.Time  // When the archive accepted the purchase
	UpdatedAt   time.Time  // When the job row last changed
	CompletedAt *time.Time // When a terminal status was reached
}

// IsSettled returns true when the purchase reached a final money outcome.
// Timed-out jobs are not settled: their charge is still undetermined.
func (j *PurchaseJob) IsSettled() bool {
	return j.Status == PurchaseStatusCompleted || j.Status == PurchaseStatusFailed
}

// PurchaseSubmission is the outcome of submitting a purchase: either a
// pending job now being polled, or the document itself when the archive
// turned out to hold a free copy and the purchase converted to a
// zero-cost download on the spot.
type PurchaseSubmission struct {
	Job      *PurchaseJob        // Non-nil when a paid fetch was queued
	Document *DownloadedDocument // Non-nil when the submission resolved free
}

// SurpriseFree reports whether the submission converted to a free
// download instead of a paid fetch.
func (s *PurchaseSubmission) SurpriseFree() bool {
	return s.Document != nil
}

// =============================================================================
// Purchase Service Parameters
// =============================================================================

// SubmitPurchaseParams contains validated parameters for submitting a
// purchase. Only identifiers cross this boundary; the service resolves
// them against a live archive listing so page counts and availability
// are never taken from the caller.
type SubmitPurchaseParams struct {
	UserID     uuid.UUID // Owner (from auth context)
	DocketID   string    // Docket the document belongs to
	DocumentID string    // Court document to purchase
}

// ListPurchasesParams contains parameters for listing a user's purchases.
type ListPurchasesParams struct {
	UserID uuid.UUID // Filter by user
	Limit  int32     // Max results to return
	Offset int32     // Number of results to skip
}

// ListPurchasesResult contains the result of a paginated purchase list query.
type ListPurchasesResult struct {
	Purchases []PurchaseJob // The purchase results
	Total     int64         // Total number of purchases (for pagination)
	Limit     int32         // Number of results requested
	Offset    int32         // Number of results skipped
}

// HasMore returns true if there are more results available.
func (r *ListPurchasesResult) HasMore() bool {
	return int64(r.Offset+r.Limit) < r.Total
}
