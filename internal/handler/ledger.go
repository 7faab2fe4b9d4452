// This file implements credit ledger endpoints. The balance lives on
// the remote archive; reads serve a cached snapshot and refresh asks
// the archive directly.
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

// LedgerHandler handles credit balance HTTP requests.
//
// Routes handled:
//   - GET  /api/ledger/balance
//   - POST /api/ledger/refresh
type LedgerHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewLedgerHandler creates a new LedgerHandler with the required dependencies.
func NewLedgerHandler(ledgerService service.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// RegisterRoutes registers ledger routes on the provided mux.
func (h *LedgerHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/ledger/balance", requireUser(http.HandlerFunc(h.Balance)))
	mux.Handle("POST /api/ledger/refresh", requireUser(http.HandlerFunc(h.Refresh)))
}

// =============================================================================
// Response Types
// =============================================================================

type balanceView struct {
	BalanceCents int64  `json:"balance_cents"`
	FetchedAt    string `json:"fetched_at"`
	AgeSeconds   int64  `json:"age_seconds"`
}

func newBalanceView(b *domain.CreditBalance) balanceView {
	return balanceView{
		BalanceCents: b.BalanceCents,
		FetchedAt:    b.FetchedAt.UTC().Format(time.RFC3339),
		AgeSeconds:   int64(b.Age(time.Now()).Seconds()),
	}
}

// =============================================================================
// GET /api/ledger/balance
// =============================================================================

// Balance returns the credit balance, served from cache when a fresh
// snapshot exists. age_seconds tells the client how stale it is.
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	bal, err := h.ledgerService.Balance(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{"balance": newBalanceView(bal)})
}

// =============================================================================
// POST /api/ledger/refresh
// =============================================================================

// Refresh fetches the balance from the archive unconditionally and
// replaces the cached snapshot.
func (h *LedgerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	bal, err := h.ledgerService.Refresh(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{"balance": newBalanceView(bal)})
}
