// This file implements document acquisition endpoints: free downloads,
// the local download library, stored-file access, and analysis
// submission. Purchases live in purchases.go.
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

// DocumentHandler handles document acquisition HTTP requests.
//
// Routes handled:
//   - POST /api/dockets/{docketID}/documents/{documentID}/download
//   - GET  /api/documents
//   - GET  /api/documents/{documentID}
//   - GET  /api/documents/{documentID}/file
//   - POST /api/documents/{documentID}/analyze
type DocumentHandler struct {
	acquisitionService service.AcquisitionService
	logger             *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler with the required dependencies.
func NewDocumentHandler(acquisitionService service.AcquisitionService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		acquisitionService: acquisitionService,
		logger:             logger,
	}
}

// RegisterRoutes registers document routes on the provided mux.
func (h *DocumentHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/dockets/{docketID}/documents/{documentID}/download", requireUser(http.HandlerFunc(h.Download)))
	mux.Handle("GET /api/documents", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/documents/{documentID}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("GET /api/documents/{documentID}/file", requireUser(http.HandlerFunc(h.File)))
	mux.Handle("POST /api/documents/{documentID}/analyze", requireUser(http.HandlerFunc(h.Analyze)))
}

// =============================================================================
// Response Types
// =============================================================================

type downloadedDocumentView struct {
	DocumentID  string `json:"document_id"`
	DocketID    string `json:"docket_id"`
	EntryNumber int    `json:"entry_number"`
	Description string `json:"description,omitempty"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	PageCount   int    `json:"page_count,omitempty"`
	Method      string `json:"method"`
	CreatedAt   string `json:"created_at"`
}

func newDownloadedDocumentView(d *domain.DownloadedDocument) downloadedDocumentView {
	return downloadedDocumentView{
		DocumentID:  d.DocumentID,
		DocketID:    d.DocketID,
		EntryNumber: d.EntryNumber,
		Description: d.Description,
		Filename:    d.Filename,
		SizeBytes:   d.SizeBytes,
		PageCount:   d.PageCount,
		Method:      string(d.Method),
		CreatedAt:   d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// POST /api/dockets/{docketID}/documents/{documentID}/download
// =============================================================================

// Download fetches a free archive copy of a document into the user's
// library. Repeating the call for an already stored document returns
// the existing record without contacting the archive.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	docketID := r.PathValue("docketID")
	documentID := r.PathValue("documentID")

	doc, err := h.acquisitionService.Download(r.Context(), user, docketID, documentID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"document": newDownloadedDocumentView(doc),
	})
}

// =============================================================================
// GET /api/documents
// =============================================================================

// List returns a page of the user's downloaded documents, newest first.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	limit, offset := pageParams(r, 20, 100)

	result, err := h.acquisitionService.ListDownloads(r.Context(), user, domain.ListDownloadsParams{
		UserID: user.ID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	views := make([]downloadedDocumentView, 0, len(result.Documents))
	for i := range result.Documents {
		views = append(views, newDownloadedDocumentView(&result.Documents[i]))
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"documents": views,
		"total":     result.Total,
		"limit":     result.Limit,
		"offset":    result.Offset,
		"has_more":  result.HasMore(),
	})
}

// =============================================================================
// GET /api/documents/{documentID}
// =============================================================================

// Get returns the library record for one downloaded document.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	documentID := r.PathValue("documentID")

	doc, err := h.acquisitionService.GetDownloaded(r.Context(), user, documentID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"document": newDownloadedDocumentView(doc),
	})
}

// =============================================================================
// GET /api/documents/{documentID}/file
// =============================================================================

// File returns a short-lived URL serving the stored PDF. The URL is
// for immediate use, not for bookmarking.
func (h *DocumentHandler) File(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	documentID := r.PathValue("documentID")

	url, err := h.acquisitionService.OpenDocument(r.Context(), user, documentID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{"url": url})
}

// =============================================================================
// POST /api/documents/{documentID}/analyze
// =============================================================================

// Analyze submits a downloaded document to the archive's analysis
// pipeline. Re-submitting is a no-op; both cases answer 202.
func (h *DocumentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	documentID := r.PathValue("documentID")

	if err := h.acquisitionService.Analyze(r.Context(), user, documentID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusAccepted, map[string]any{
		"document_id":  documentID,
		"analysis_key": domain.AnalysisKey(documentID),
	})
}
