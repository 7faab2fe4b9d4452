// Package service contains the business logic layer.
//
// This file implements docket search and document listing against the
// court data archive. Search results are cached briefly; document
// listings are never cached because availability and file paths drive
// acquisition decisions and must be current.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/domain"
)

const (
	// searchCacheTTL is short on purpose: dockets gain filings all day
	// and a stale hit only survives until the next poll anyway.
	searchCacheTTL     = 5 * time.Minute
	searchCacheCleanup = 10 * time.Minute

	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// =============================================================================
// Interface Definition
// =============================================================================

// SearchService defines read operations against the court archive.
type SearchService interface {
	// SearchDockets runs a free-text docket search.
	// Returns EINVALID if the query is empty, EUNAVAILABLE if the
	// archive cannot be reached.
	SearchDockets(ctx context.Context, user *domain.User, params domain.SearchDocketsParams) ([]domain.Docket, error)

	// GetDocketDocuments lists the documents filed on a docket, each
	// classified as free or billable.
	// Returns ENOTFOUND if the docket does not exist.
	GetDocketDocuments(ctx context.Context, user *domain.User, docketID string) ([]domain.AcquirableDocument, error)
}

// =============================================================================
// Implementation
// =============================================================================

type searchService struct {
	archive courtdata.Service
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewSearchService creates a new SearchService.
func NewSearchService(archive courtdata.Service, logger *slog.Logger) SearchService {
	return &searchService{
		archive: archive,
		cache:   cache.New(searchCacheTTL, searchCacheCleanup),
		logger:  logger,
	}
}

// SearchDockets runs a free-text docket search.
func (s *searchService) SearchDockets(ctx context.Context, user *domain.User, params domain.SearchDocketsParams) ([]domain.Docket, error) {
	const op = "search.dockets"

	query := strings.TrimSpace(params.Query)
	if query == "" {
		return nil, domain.Invalid(op, "Search query is required.")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	key := searchCacheKey(params.Court, query, limit)
	if v, ok := s.cache.Get(key); ok {
		if dockets, ok := v.([]domain.Docket); ok {
			return dockets, nil
		}
	}

	start := time.Now()
	dockets, err := s.archive.SearchDockets(ctx, archiveAccount(user), courtdata.SearchParams{
		Query: query,
		Court: params.Court,
		Limit: int(limit),
	})
	observeArchive("search", start, err)
	if err != nil {
		return nil, mapArchiveError(op, "docket search", query, err)
	}

	s.cache.Set(key, dockets, cache.DefaultExpiration)

	s.logger.Info("Docket search completed",
		"user_id", user.ID,
		"query", query,
		"court", params.Court,
		"results", len(dockets),
	)

	return dockets, nil
}

// GetDocketDocuments lists the acquirable documents on a docket.
func (s *searchService) GetDocketDocuments(ctx context.Context, user *domain.User, docketID string) ([]domain.AcquirableDocument, error) {
	const op = "search.docket_documents"

	if strings.TrimSpace(docketID) == "" {
		return nil, domain.Invalid(op, "Docket ID is required.")
	}

	start := time.Now()
	docs, err := s.archive.GetDocketDocuments(ctx, archiveAccount(user), docketID)
	observeArchive("docket_documents", start, err)
	if err != nil {
		return nil, mapArchiveError(op, "docket", docketID, err)
	}

	return docs, nil
}

// searchCacheKey builds the cache key for one search. Queries are
// case-folded so retries with different casing share an entry.
func searchCacheKey(court, query string, limit int32) string {
	return fmt.Sprintf("search:%s:%s:%d", court, strings.ToLower(query), limit)
}
