// Package domain contains core business types and interfaces.
//
// This file defines the locally cached view of the remote credit ledger.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreditBalance is a snapshot of a user's remote credit balance.
//
// The remote ledger is the source of truth; this snapshot exists so
// pre-flight checks and UI reads do not hit the ledger on every call.
// It is advisory only and may be stale the moment it is fetched.
type CreditBalance struct {
	UserID       uuid.UUID // Ledger account owner
	BalanceCents int64     // Available credits, in cents
	FetchedAt    time.Time // When the snapshot was taken
}

// CanAfford reports whether the snapshot covers the given estimate.
// A true result is not a guarantee: the remote ledger settles the real
// charge at purchase time.
func (b *CreditBalance) CanAfford(estimateCents int64) bool {
	return b.BalanceCents >= estimateCents
}

// Age returns how stale the snapshot is at the given instant.
func (b *CreditBalance) Age(now time.Time) time.Duration {
	return now.Sub(b.FetchedAt)
}
