// Package domain contains core business types and interfaces.
//
// This file defines monitored cases and the update signals produced by
// polling the remote archive for new filings.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MonitoredCase represents one docket a user is watching for new filings.
//
// A user watches a docket at most once; starting an existing watch and
// stopping an absent one are both no-ops, so repeated toggling from a
// confused client cannot corrupt the set.
type MonitoredCase struct {
	ID           uuid.UUID  // Local identifier
	UserID       uuid.UUID  // Watching user
	DocketID     string     // Archive docket identifier
	CaseName     string     // Caption at the time monitoring started
	DocketNumber string     // Court-assigned docket number
	Court        string     // Court identifier
	DateFiled    time.Time  // When the case was filed
	CreatedAt    time.Time  // When monitoring started
	LastSignalAt *time.Time // Most recent time the archive reported updates
}

// UpdateSignal is the result of one update check against the archive.
// It is a boolean-with-count signal, not a diff: it says the docket has
// new activity, not which entries are new.
type UpdateSignal struct {
	DocketID    string    // Docket the signal is for
	HasUpdates  bool      // Archive reported new filings since our last check
	UpdateCount int       // Number of new entries, when the archive reports one
	CheckedAt   time.Time // When the check ran
}

// MonitorCaseParams contains validated parameters for starting a watch.
// Only the docket identifier crosses this boundary; case metadata is
// read back from the archive's own subscription list after the remote
// start confirms.
type MonitorCaseParams struct {
	UserID   uuid.UUID // Watching user (from auth context)
	DocketID string    // Archive docket identifier
}
