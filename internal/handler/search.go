// This file implements docket search and document listing endpoints.
// Listings classify every document as free or billable so clients can
// route acquisitions to the right endpoint.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/thorsby/docketwatch/internal/auth"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/service"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// SearchHandler handles docket search HTTP requests.
//
// Routes handled:
//   - GET /api/search
//   - GET /api/dockets/{docketID}/documents
type SearchHandler struct {
	searchService service.SearchService
	logger        *slog.Logger
}

// NewSearchHandler creates a new SearchHandler with the required dependencies.
func NewSearchHandler(searchService service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// RegisterRoutes registers search routes on the provided mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/search", requireUser(http.HandlerFunc(h.Search)))
	mux.Handle("GET /api/dockets/{docketID}/documents", requireUser(http.HandlerFunc(h.DocketDocuments)))
}

// =============================================================================
// Response Types
// =============================================================================

type docketView struct {
	ID             string `json:"id"`
	CaseName       string `json:"case_name"`
	DocketNumber   string `json:"docket_number"`
	Court          string `json:"court"`
	CourtName      string `json:"court_name,omitempty"`
	DateFiled      string `json:"date_filed,omitempty"`
	DateLastFiling string `json:"date_last_filing,omitempty"`
	EntryCount     int    `json:"entry_count,omitempty"`
}

func newDocketView(d domain.Docket) docketView {
	v := docketView{
		ID:           d.ID,
		CaseName:     d.Caption(),
		DocketNumber: d.DocketNumber,
		Court:        d.Court,
		CourtName:    d.CourtName,
		EntryCount:   d.EntryCount,
	}
	if !d.DateFiled.IsZero() {
		v.DateFiled = d.DateFiled.Format("2006-01-02")
	}
	if d.DateLastFiling != nil {
		v.DateLastFiling = d.DateLastFiling.Format("2006-01-02")
	}
	return v
}

type acquirableDocumentView struct {
	DocumentID         string `json:"document_id"`
	DocketID           string `json:"docket_id"`
	EntryNumber        int    `json:"entry_number"`
	AttachmentNumber   int    `json:"attachment_number,omitempty"`
	Description        string `json:"description,omitempty"`
	DateFiled          string `json:"date_filed,omitempty"`
	PageCount          int    `json:"page_count,omitempty"`
	Classification     string `json:"classification"`
	EstimatedCostCents int64  `json:"estimated_cost_cents,omitempty"`
}

func newAcquirableDocumentView(d domain.AcquirableDocument) acquirableDocumentView {
	v := acquirableDocumentView{
		DocumentID:       d.DocumentID,
		DocketID:         d.DocketID,
		EntryNumber:      d.EntryNumber,
		AttachmentNumber: d.AttachmentNumber,
		Description:      d.Description,
		PageCount:        d.PageCount,
		Classification:   string(d.Classify()),
	}
	if !d.DateFiled.IsZero() {
		v.DateFiled = d.DateFiled.Format("2006-01-02")
	}
	// Only billable documents carry a price; the estimate follows the
	// same page-count rule the purchase pre-flight uses.
	if d.Classify() == domain.ClassificationBillable {
		v.EstimatedCostCents = domain.EstimateCostCents(d.PageCount)
	}
	return v
}

// =============================================================================
// GET /api/search
// =============================================================================

// Search runs a free-text docket search against the archive.
// Query parameters: q (required), court (optional), limit (optional).
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	limit, _ := pageParams(r, 20, 50)
	params := domain.SearchDocketsParams{
		UserID: user.ID,
		Query:  r.URL.Query().Get("q"),
		Court:  r.URL.Query().Get("court"),
		Limit:  limit,
	}

	start := time.Now()
	dockets, err := h.searchService.SearchDockets(r.Context(), user, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	views := make([]docketView, 0, len(dockets))
	for _, d := range dockets {
		views = append(views, newDocketView(d))
	}

	h.logger.Info("docket search served",
		"user_id", user.ID,
		"results", len(views),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"dockets": views,
		"count":   len(views),
	})
}

// =============================================================================
// GET /api/dockets/{docketID}/documents
// =============================================================================

// DocketDocuments lists the documents filed on a docket, classified
// free or billable from live archive data.
func (h *SearchHandler) DocketDocuments(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	docketID := r.PathValue("docketID")

	docs, err := h.searchService.GetDocketDocuments(r.Context(), user, docketID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	views := make([]acquirableDocumentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, newAcquirableDocumentView(d))
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"docket_id": docketID,
		"documents": views,
	})
}
