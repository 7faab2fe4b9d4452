// This file implements account self-service: profile reads and edits,
// password changes, quota usage, and the monthly acquisition statement.
package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/thorsby/docketwatch/internal/auth"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/service"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// AccountHandler handles account-related HTTP requests.
//
// Routes handled:
//   - GET   /api/account
//   - PATCH /api/account
//   - POST  /api/account/password
//   - GET   /api/account/usage
//   - GET   /api/account/statement
type AccountHandler struct {
	userService      service.UserService
	quotaService     service.QuotaService
	statementService service.StatementService
	logger           *slog.Logger
}

// NewAccountHandler creates a new AccountHandler with the required dependencies.
func NewAccountHandler(
	userService service.UserService,
	quotaService service.QuotaService,
	statementService service.StatementService,
	logger *slog.Logger,
) *AccountHandler {
	return &AccountHandler{
		userService:      userService,
		quotaService:     quotaService,
		statementService: statementService,
		logger:           logger,
	}
}

// RegisterRoutes registers account routes on the provided mux.
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/account", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/account", requireUser(http.HandlerFunc(h.Update)))
	mux.Handle("POST /api/account/password", requireUser(http.HandlerFunc(h.ChangePassword)))
	mux.Handle("GET /api/account/usage", requireUser(http.HandlerFunc(h.Usage)))
	mux.Handle("GET /api/account/statement", requireUser(http.HandlerFunc(h.Statement)))
}

// =============================================================================
// GET /api/account
// =============================================================================

// Get returns the authenticated user's account.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	respondJSON(w, h.logger, http.StatusOK, map[string]any{"user": newUserView(user)})
}

// =============================================================================
// PATCH /api/account
// =============================================================================

type updateAccountRequest struct {
	Name       *string `json:"name"`
	CourtToken *string `json:"court_token"`
}

// Update edits the user's name and archive token. Only fields present
// in the request change; sending an explicit empty court_token clears
// the stored token.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Name == nil && req.CourtToken == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "",
			"Provide at least one of name or court_token."))
		return
	}

	params := domain.ProfileUpdateParams{
		UserID:     user.ID,
		Name:       user.Name,
		CourtToken: user.CourtToken,
	}
	if req.Name != nil {
		params.Name = *req.Name
	}
	if req.CourtToken != nil {
		params.CourtToken = *req.CourtToken
	}

	if err := h.userService.UpdateProfile(r.Context(), params); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	updated, err := h.userService.GetByID(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{"user": newUserView(updated)})
}

// =============================================================================
// POST /api/account/password
// =============================================================================

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword rotates the password after verifying the current one.
// Every session, including the one making this request, is revoked;
// the client must log in again.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err := h.userService.ChangePassword(r.Context(), domain.PasswordChangeParams{
		UserID:          user.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("password changed", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GET /api/account/usage
// =============================================================================

type quotaLineView struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Unlimited bool `json:"unlimited,omitempty"`
	Enabled   bool `json:"enabled"`
}

type usageResponse struct {
	Tier           string        `json:"tier"`
	MonitoredCases quotaLineView `json:"monitored_cases"`
	AutoDownloads  quotaLineView `json:"auto_downloads"`
}

// Usage reports quota consumption against the user's tier limits.
func (h *AccountHandler) Usage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	tier := user.EffectiveTier()

	usage, err := h.quotaService.GetUsage(r.Context(), user.ID, tier)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	quota := domain.GetTierQuota(tier)
	respondJSON(w, h.logger, http.StatusOK, usageResponse{
		Tier: string(tier),
		MonitoredCases: quotaLineView{
			Used:      usage.MonitoredCases,
			Limit:     quota.MaxMonitoredCases,
			Unlimited: quota.UnlimitedMonitoring,
			Enabled:   true,
		},
		AutoDownloads: quotaLineView{
			Used:    usage.AutoDownloadsMonth,
			Limit:   quota.AutoDownloadsPerMonth,
			Enabled: quota.AutoDownloadEnabled,
		},
	})
}

// =============================================================================
// GET /api/account/statement
// =============================================================================

// Statement renders the monthly acquisition statement as a PDF.
// Query parameters year and month select the period; both default to
// the current month.
func (h *AccountHandler) Statement(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	now := time.Now().UTC()
	year, month := now.Year(), now.Month()
	if raw := r.URL.Query().Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "", "year must be a number"))
			return
		}
		year = v
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "", "month must be a number"))
			return
		}
		month = time.Month(v)
	}

	// Render into memory first so a failure can still produce a JSON
	// error instead of a truncated PDF.
	var buf bytes.Buffer
	if _, err := h.statementService.MonthlyStatement(r.Context(), user, year, month, &buf); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	filename := fmt.Sprintf("docketwatch-statement-%04d-%02d.pdf", year, int(month))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("failed to stream statement", "error", err, "user_id", user.ID)
		return
	}

	h.logger.Info("Statement downloaded",
		"user_id", user.ID,
		"year", year,
		"month", int(month),
	)
}
