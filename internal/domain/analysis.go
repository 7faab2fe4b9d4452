// Package domain contains core business types and interfaces.
//
// This file defines the local record of documents submitted to the
// external analysis pipeline.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisKeyPrefix namespaces archive document identifiers in the
// analysis ledger so they cannot collide with keys from other sources
// feeding the same pipeline.
const AnalysisKeyPrefix = "recap_"

// AnalysisKey returns the idempotency key under which a document is
// submitted for analysis.
func AnalysisKey(documentID string) string {
	return AnalysisKeyPrefix + documentID
}

// AnalysisRecord marks one document as submitted for analysis. One row
// per (user, key); its existence is what makes repeat submissions no-ops.
// Submission is fire-and-forget: results live in the analysis pipeline,
// not here.
type AnalysisRecord struct {
	UserID      uuid.UUID // Submitting user
	AnalysisKey string    // recap_-prefixed document identifier
	DocumentID  string    // Archive document identifier
	CreatedAt   time.Time // When the submission was recorded
}
