// This file implements docket monitoring endpoints. Listing goes
// through reconciliation: the archive's subscription list is the
// source of truth, and local state is replaced by it on every read.
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

// MonitorHandler handles docket monitoring HTTP requests.
//
// Routes handled:
//   - PUT    /api/monitors/{docketID}
//   - DELETE /api/monitors/{docketID}
//   - GET    /api/monitors
//   - GET    /api/monitors/updates
type MonitorHandler struct {
	monitorService service.MonitorService
	logger         *slog.Logger
}

// NewMonitorHandler creates a new MonitorHandler with the required dependencies.
func NewMonitorHandler(monitorService service.MonitorService, logger *slog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		logger:         logger,
	}
}

// RegisterRoutes registers monitoring routes on the provided mux.
func (h *MonitorHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("PUT /api/monitors/{docketID}", requireUser(http.HandlerFunc(h.Start)))
	mux.Handle("DELETE /api/monitors/{docketID}", requireUser(http.HandlerFunc(h.Stop)))
	mux.Handle("GET /api/monitors", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/monitors/updates", requireUser(http.HandlerFunc(h.Updates)))
}

// =============================================================================
// Response Types
// =============================================================================

type monitoredCaseView struct {
	ID           string `json:"id"`
	DocketID     string `json:"docket_id"`
	CaseName     string `json:"case_name"`
	DocketNumber string `json:"docket_number,omitempty"`
	Court        string `json:"court,omitempty"`
	DateFiled    string `json:"date_filed,omitempty"`
	CreatedAt    string `json:"created_at"`
	LastSignalAt string `json:"last_signal_at,omitempty"`
}

func newMonitoredCaseView(m domain.MonitoredCase) monitoredCaseView {
	v := monitoredCaseView{
		ID:           m.ID.String(),
		DocketID:     m.DocketID,
		CaseName:     m.CaseName,
		DocketNumber: m.DocketNumber,
		Court:        m.Court,
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !m.DateFiled.IsZero() {
		v.DateFiled = m.DateFiled.Format("2006-01-02")
	}
	if m.LastSignalAt != nil {
		v.LastSignalAt = m.LastSignalAt.UTC().Format(time.RFC3339)
	}
	return v
}

type updateSignalView struct {
	DocketID    string `json:"docket_id"`
	HasUpdates  bool   `json:"has_updates"`
	UpdateCount int    `json:"update_count,omitempty"`
	CheckedAt   string `json:"checked_at"`
}

func newUpdateSignalView(s domain.UpdateSignal) updateSignalView {
	return updateSignalView{
		DocketID:    s.DocketID,
		HasUpdates:  s.HasUpdates,
		UpdateCount: s.UpdateCount,
		CheckedAt:   s.CheckedAt.UTC().Format(time.RFC3339),
	}
}

func monitorViews(cases []domain.MonitoredCase) []monitoredCaseView {
	views := make([]monitoredCaseView, 0, len(cases))
	for _, m := range cases {
		views = append(views, newMonitoredCaseView(m))
	}
	return views
}

// =============================================================================
// PUT /api/monitors/{docketID}
// =============================================================================

// Start begins watching a docket. PUT is the right verb: repeating the
// call for an already watched docket changes nothing and returns the
// same watch.
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	docketID := r.PathValue("docketID")

	mc, err := h.monitorService.Start(r.Context(), user, docketID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"monitor": newMonitoredCaseView(*mc),
	})
}

// =============================================================================
// DELETE /api/monitors/{docketID}
// =============================================================================

// Stop ends a watch. Stopping a docket that is not watched is a no-op
// and still answers 204.
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	docketID := r.PathValue("docketID")

	if err := h.monitorService.Stop(r.Context(), user, docketID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GET /api/monitors
// =============================================================================

// List returns the user's watches after reconciling local state with
// the archive's subscription list.
func (h *MonitorHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	cases, err := h.monitorService.Reconcile(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"monitors": monitorViews(cases),
		"count":    len(cases),
	})
}

// =============================================================================
// GET /api/monitors/updates
// =============================================================================

// Updates checks every watched docket for new filings immediately,
// without waiting for the background poller.
func (h *MonitorHandler) Updates(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	signals, err := h.monitorService.RefreshUpdates(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	views := make([]updateSignalView, 0, len(signals))
	for _, s := range signals {
		views = append(views, newUpdateSignalView(s))
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"updates": views,
		"count":   len(views),
	})
}
