// Package service contains the business logic layer.
//
// This file implements the credit ledger service: a locally cached
// view of each user's prepaid archive balance, plus the advisory
// pre-flight check run before submitting a purchase. The remote ledger
// is always the source of truth; the cache only exists so reads and
// pre-flight checks do not hit the archive on every call.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/metrics"
)

const (
	// balanceCacheTTL bounds staleness of a cached balance. Settled
	// purchases refresh the cache explicitly, so the TTL only matters
	// for charges made outside this process.
	balanceCacheTTL = 15 * time.Minute

	balanceCacheCleanup = 30 * time.Minute
)

// =============================================================================
// Interface Definition
// =============================================================================

// LedgerService defines operations against the remote credit ledger.
type LedgerService interface {
	// Balance returns the user's credit balance, served from cache
	// when a fresh snapshot exists.
	// Returns EINVALID if no archive token is configured,
	// EUNAUTHORIZED if the archive rejects the token, EUNAVAILABLE if
	// the archive cannot be reached.
	Balance(ctx context.Context, user *domain.User) (*domain.CreditBalance, error)

	// Refresh fetches the balance from the archive unconditionally,
	// replacing any cached snapshot. Error codes match Balance.
	Refresh(ctx context.Context, user *domain.User) (*domain.CreditBalance, error)

	// PreflightPurchase advises whether an estimated charge fits the
	// user's balance. Returns EINSUFFICIENT_CREDITS when the balance
	// cannot cover the estimate. A transient balance-probe failure
	// does not block: the remote ledger settles the real charge.
	PreflightPurchase(ctx context.Context, user *domain.User, estimateCents int64) error

	// Forget drops any cached balance for the user, forcing the next
	// Balance call to hit the archive.
	Forget(userID uuid.UUID)
}

// =============================================================================
// Implementation
// =============================================================================

type ledgerService struct {
	archive courtdata.Service
	cache   *cache.Cache
	group   singleflight.Group
	logger  *slog.Logger
}

// NewLedgerService creates a new LedgerService backed by the given
// archive client.
func NewLedgerService(archive courtdata.Service, logger *slog.Logger) LedgerService {
	return &ledgerService{
		archive: archive,
		cache:   cache.New(balanceCacheTTL, balanceCacheCleanup),
		logger:  logger,
	}
}

// Balance returns the user's credit balance, from cache when fresh.
func (s *ledgerService) Balance(ctx context.Context, user *domain.User) (*domain.CreditBalance, error) {
	const op = "ledger.balance"

	if v, ok := s.cache.Get(user.ID.String()); ok {
		if bal, ok := v.(*domain.CreditBalance); ok {
			return bal, nil
		}
	}

	return s.refresh(ctx, op, user)
}

// Refresh fetches the balance from the archive unconditionally.
func (s *ledgerService) Refresh(ctx context.Context, user *domain.User) (*domain.CreditBalance, error) {
	const op = "ledger.refresh"
	return s.refresh(ctx, op, user)
}

// PreflightPurchase advises whether an estimated charge fits the balance.
func (s *ledgerService) PreflightPurchase(ctx context.Context, user *domain.User, estimateCents int64) error {
	const op = "ledger.preflight"

	bal, err := s.Balance(ctx, user)
	if err != nil {
		// The check is advisory: if the ledger cannot be probed right
		// now, let the purchase proceed and the remote ledger decide.
		// Credential problems are not transient and still block.
		if domain.IsTransient(err) {
			s.logger.Warn("Balance probe failed, allowing purchase",
				"user_id", user.ID,
				"estimate_cents", estimateCents,
				"error", err,
			)
			return nil
		}
		return err
	}

	if !bal.CanAfford(estimateCents) {
		return domain.InsufficientCredits(op, bal.BalanceCents, estimateCents)
	}

	return nil
}

// Forget drops the cached balance for a user.
func (s *ledgerService) Forget(userID uuid.UUID) {
	s.cache.Delete(userID.String())
}

// refresh fetches the balance from the archive, deduplicating
// concurrent fetches for the same user.
func (s *ledgerService) refresh(ctx context.Context, op string, user *domain.User) (*domain.CreditBalance, error) {
	acct, err := requireArchiveToken(op, user)
	if err != nil {
		return nil, err
	}

	v, err, _ := s.group.Do(user.ID.String(), func() (interface{}, error) {
		start := time.Now()
		cents, err := s.archive.GetCreditBalance(ctx, acct)
		observeArchive("credit_balance", start, err)
		if err != nil {
			return nil, err
		}

		bal := &domain.CreditBalance{
			UserID:       user.ID,
			BalanceCents: cents,
			FetchedAt:    time.Now().UTC(),
		}
		s.cache.Set(user.ID.String(), bal, cache.DefaultExpiration)
		metrics.LedgerRefreshes.Inc()
		return bal, nil
	})
	if err != nil {
		return nil, mapArchiveError(op, "credit balance", user.ID.String(), err)
	}

	bal := v.(*domain.CreditBalance)

	s.logger.Info("Credit balance refreshed",
		"user_id", user.ID,
		"balance_cents", bal.BalanceCents,
	)

	return bal, nil
}
