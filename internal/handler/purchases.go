// This file implements paid document fetches. Submissions usually come
// back as a pending purchase that settles in the background, but the
// archive can answer with a free copy instead, in which case the same
// endpoint returns the finished download and no money moves.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thorsby/docketwatch/internal/auth"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/service"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// PurchaseHandler handles purchase HTTP requests.
//
// Routes handled:
//   - POST /api/purchases
//   - GET  /api/purchases
//   - GET  /api/purchases/{purchaseID}
type PurchaseHandler struct {
	purchaseService service.PurchaseService
	logger          *slog.Logger
}

// NewPurchaseHandler creates a new PurchaseHandler with the required dependencies.
func NewPurchaseHandler(purchaseService service.PurchaseService, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		logger:          logger,
	}
}

// RegisterRoutes registers purchase routes on the provided mux.
func (h *PurchaseHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/purchases", requireUser(http.HandlerFunc(h.Submit)))
	mux.Handle("GET /api/purchases", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/purchases/{purchaseID}", requireUser(http.HandlerFunc(h.Check)))
}

// =============================================================================
// Response Types
// =============================================================================

type purchaseJobView struct {
	ID                 string `json:"id"`
	DocumentID         string `json:"document_id"`
	DocketID           string `json:"docket_id"`
	Status             string `json:"status"`
	EstimatedCostCents int64  `json:"estimated_cost_cents"`
	ActualCostCents    int64  `json:"actual_cost_cents,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
	CreatedAt          string `json:"created_at"`
	CompletedAt        string `json:"completed_at,omitempty"`
}

func newPurchaseJobView(j *domain.PurchaseJob) purchaseJobView {
	v := purchaseJobView{
		ID:                 j.ID.String(),
		DocumentID:         j.DocumentID,
		DocketID:           j.DocketID,
		Status:             string(j.Status),
		EstimatedCostCents: j.EstimatedCostCents,
		ActualCostCents:    j.ActualCostCents,
		ErrorMessage:       j.ErrorMessage,
		CreatedAt:          j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.CompletedAt != nil {
		v.CompletedAt = j.CompletedAt.UTC().Format(time.RFC3339)
	}
	return v
}

// =============================================================================
// POST /api/purchases
// =============================================================================

type submitPurchaseRequest struct {
	DocketID   string `json:"docket_id"`
	DocumentID string `json:"document_id"`
}

// Submit asks the archive to fetch a document for a fee.
//
// Two success shapes:
//   - 202 with outcome "purchase_pending" and a purchase object: the
//     fetch was queued and settles in the background.
//   - 200 with outcome "downloaded_free" and a document object: the
//     archive held a free copy after all; nothing was charged.
func (h *PurchaseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	var req submitPurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	sub, err := h.purchaseService.Submit(r.Context(), user, domain.SubmitPurchaseParams{
		UserID:     user.ID,
		DocketID:   req.DocketID,
		DocumentID: req.DocumentID,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if sub.SurpriseFree() {
		respondJSON(w, h.logger, http.StatusOK, map[string]any{
			"outcome":  "downloaded_free",
			"document": newDownloadedDocumentView(sub.Document),
		})
		return
	}

	respondJSON(w, h.logger, http.StatusAccepted, map[string]any{
		"outcome":  "purchase_pending",
		"purchase": newPurchaseJobView(sub.Job),
	})
}

// =============================================================================
// GET /api/purchases
// =============================================================================

// List returns a page of the user's purchases, newest first.
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	limit, offset := pageParams(r, 20, 100)

	result, err := h.purchaseService.List(r.Context(), user, domain.ListPurchasesParams{
		UserID: user.ID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	views := make([]purchaseJobView, 0, len(result.Purchases))
	for i := range result.Purchases {
		views = append(views, newPurchaseJobView(&result.Purchases[i]))
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"purchases": views,
		"total":     result.Total,
		"limit":     result.Limit,
		"offset":    result.Offset,
		"has_more":  result.HasMore(),
	})
}

// =============================================================================
// GET /api/purchases/{purchaseID}
// =============================================================================

// Check returns the current state of one purchase. Timed-out jobs get
// one extra look at the archive before answering, so a late remote
// completion is applied rather than reported stale.
func (h *PurchaseHandler) Check(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	id, err := uuid.Parse(r.PathValue("purchaseID"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "", "Purchase ID must be a UUID."))
		return
	}

	job, err := h.purchaseService.Check(r.Context(), user, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"purchase": newPurchaseJobView(job),
	})
}
