// Package domain contains core business types and interfaces.
//
// This file defines dockets, the documents filed on them, and the local
// records kept for documents we have fetched into storage.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Docket
// =============================================================================

// Docket represents a court case as listed by the remote archive.
type Docket struct {
	ID             string     // Archive identifier for the docket
	CaseName       string     // Case caption as reported by the archive
	DocketNumber   string     // Court-assigned docket number, e.g. "1:23-cv-00123"
	Court          string     // Court identifier, e.g. "nysd"
	CourtName      string     // Full court name for display
	PacerCaseID    string     // Upstream PACER case identifier
	DateFiled      time.Time  // When the case was filed
	DateLastFiling *time.Time // Most recent filing, if the archive knows it
	EntryCount     int        // Number of docket entries at last listing
}

// Caption returns the case name normalized for display. Archive records
// frequently arrive fully upper-cased; those are title-cased, mixed-case
// names pass through untouched.
func (d *Docket) Caption() string {
	name := strings.TrimSpace(d.CaseName)
	if name == "" {
		return d.DocketNumber
	}
	if name == strings.ToUpper(name) {
		return cases.Title(language.AmericanEnglish).String(strings.ToLower(name))
	}
	return name
}

// =============================================================================
// Acquirable Documents
// =============================================================================

// Classification says how a document can be acquired.
type Classification string

const (
	// ClassificationFree means the archive already holds a copy and it
	// can be downloaded without touching the credit ledger.
	ClassificationFree Classification = "free"

	// ClassificationBillable means acquiring the document requires a
	// paid purchase through the archive's fetch queue.
	ClassificationBillable Classification = "billable"
)

// AcquirableDocument is one document on a docket as reported by the
// archive's entry listing, before any local acquisition.
type AcquirableDocument struct {
	DocumentID       string    // Archive identifier for the document
	DocketID         string    // Docket the document belongs to
	Court            string    // Court identifier, carried for filenames
	PacerCaseID      string    // Upstream case identifier, carried for filenames
	EntryNumber      int       // Docket entry number
	AttachmentNumber int       // 0 for the main document
	Description      string    // Entry description from the docket sheet
	DateFiled        time.Time // When the entry was filed
	PageCount        int       // Pages per the archive; 0 when unknown
	IsAvailable      bool      // Archive holds a free copy
	FilePath         string    // Archive-relative path to the free copy, if any
}

// Classify reports whether the document can be fetched for free or must
// be purchased. Free requires both the availability flag and a concrete
// file path; records that claim availability without a path are treated
// as billable rather than trusted.
func (d *AcquirableDocument) Classify() Classification {
	if d.IsAvailable && d.FilePath != "" {
		return ClassificationFree
	}
	return ClassificationBillable
}

// StandardizedFilename returns the archive's canonical filename for the
// document: gov.uscourts.<court>.<case>.<entry>.<attachment>.pdf.
func (d *AcquirableDocument) StandardizedFilename() string {
	caseID := d.PacerCaseID
	if caseID == "" {
		caseID = d.DocketID
	}
	return fmt.Sprintf("gov.uscourts.%s.%s.%d.%d.pdf",
		d.Court, caseID, d.EntryNumber, d.AttachmentNumber)
}

// =============================================================================
// Downloaded Documents
// =============================================================================

// AcquisitionMethod records how a document copy reached local storage.
type AcquisitionMethod string

const (
	AcquisitionMethodFree      AcquisitionMethod = "free"
	AcquisitionMethodPurchased AcquisitionMethod = "purchased"
)

// DownloadedDocument is the local record of a document held in blob
// storage. One row per (user, document); its existence is what makes
// repeat downloads no-ops.
type DownloadedDocument struct {
	UserID      uuid.UUID         // Owner of the copy
	DocumentID  string            // Archive document identifier
	DocketID    string            // Docket the document belongs to
	EntryNumber int               // Docket entry number
	Description string            // Entry description at download time
	StorageKey  string            // Blob storage key of the PDF
	Filename    string            // Standardized filename for downloads
	SizeBytes   int64             // Stored object size
	PageCount   int               // Pages, from archive metadata or the PDF itself
	Method      AcquisitionMethod // How the copy was acquired
	CreatedAt   time.Time         // When the copy was stored
}

// =============================================================================
// Search Parameters
// =============================================================================

// SearchDocketsParams contains validated parameters for a docket search.
type SearchDocketsParams struct {
	UserID uuid.UUID // Requesting user (for caching and logging)
	Query  string    // Required: free-text query
	Court  string    // Optional: restrict to a single court
	Limit  int32     // Max results to return
}

// ListDownloadsParams contains parameters for listing a user's downloads.
type ListDownloadsParams struct {
	UserID uuid.UUID // Filter by user
	Limit  int32     // Max results to return
	Offset int32     // Number of results to skip
}

// ListDownloadsResult contains the result of a paginated download list query.
type ListDownloadsResult struct {
	Documents []DownloadedDocument // The download records
	Total     int64                // Total number of downloads (for pagination)
	Limit     int32                // Number of results requested
	Offset    int32                // Number of results skipped
}

// HasMore returns true if there are more results available.
func (r *ListDownloadsResult) HasMore() bool {
	return int64(r.Offset+r.Limit) < r.Total
}
