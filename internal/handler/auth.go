// Package handler contains HTTP handlers for the DocketWatch API.
//
// This file implements authentication: registration, login, and logout.
// All endpoints speak JSON. Login issues an opaque session token the
// client presents as a bearer credential on every later request.
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/invite"
	"github.com/thorsby/docketwatch/internal/middleware"
	"github.com/thorsby/docketwatch/internal/service"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// AuthHandler serves the account entry points:
//
//   - POST /api/auth/register
//   - POST /api/auth/login
//   - POST /api/auth/logout
type AuthHandler struct {
	userService     service.UserService
	inviteValidator *invite.Validator
	limiter         *middleware.AuthRateLimiter
	logger          *slog.Logger
}

// NewAuthHandler wires the auth routes. The invite validator may be
// disabled; the limiter feeds failed-login accounting and may be nil
// in tests.
func NewAuthHandler(
	userService service.UserService,
	inviteValidator *invite.Validator,
	limiter *middleware.AuthRateLimiter,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userService:     userService,
		inviteValidator: inviteValidator,
		limiter:         limiter,
		logger:          logger,
	}
}

// RegisterRoutes registers auth routes on the provided mux. The limit
// middlewares guard the credential endpoints; everything else in the
// API is paced by session, not by IP.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, limitLogin, limitRegister func(http.Handler) http.Handler) {
	mux.Handle("POST /api/auth/register", limitRegister(http.HandlerFunc(h.Register)))
	mux.Handle("POST /api/auth/login", limitLogin(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
}

// =============================================================================
// Response Types
// =============================================================================

// userView is the account representation returned by the API. The
// archive token itself is never echoed back; clients only learn
// whether one is on file.
type userView struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name,omitempty"`
	HasArchiveToken    bool   `json:"has_archive_token"`
	SubscriptionStatus string `json:"subscription_status"`
	SubscriptionTier   string `json:"subscription_tier"`
	CreatedAt          string `json:"created_at"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:                 u.ID.String(),
		Email:              u.Email,
		Name:               u.Name,
		HasArchiveToken:    u.CourtToken != "",
		SubscriptionStatus: string(u.SubscriptionStatus),
		SubscriptionTier:   string(u.EffectiveTier()),
		CreatedAt:          u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// sessionResponse carries the freshly issued session token. The token
// appears exactly once, here; it is stored hashed server-side.
type sessionResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

// =============================================================================
// POST /api/auth/register
// =============================================================================

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	CourtToken string `json:"court_token"`
	InviteCode string `json:"invite_code"`
}

// Register creates an account and opens a first session for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.inviteValidator.IsEnabled() && !h.inviteValidator.ValidateCode(req.InviteCode) {
		h.logger.Info("registration rejected: invalid invite code",
			"email_domain", emailDomain(req.Email),
		)
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EFORBIDDEN, "",
			"A valid invite code is required during the private beta."))
		return
	}

	user, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		CourtToken: req.CourtToken,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	// Open the first session so the client does not need a second
	// round trip to log in.
	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// The account exists; report creation and let the client log
		// in explicitly.
		h.logger.Warn("post-registration login failed",
			"user_id", user.ID,
			"error", err,
		)
		respondJSON(w, h.logger, http.StatusCreated, map[string]any{"user": newUserView(user)})
		return
	}

	h.logger.Info("user registered",
		"user_id", user.ID,
		"email_domain", emailDomain(user.Email),
	)

	respondJSON(w, h.logger, http.StatusCreated, sessionResponse{
		Token: result.Token,
		User:  newUserView(result.User),
	})
}

// =============================================================================
// POST /api/auth/login
// =============================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.limiter != nil && domain.ErrorCode(err) == domain.EUNAUTHORIZED {
			h.limiter.RecordFailedLogin(middleware.ClientIP(r))
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.limiter != nil {
		h.limiter.ResetLogin(middleware.ClientIP(r))
	}

	h.logger.Info("user logged in", "user_id", result.User.ID)

	respondJSON(w, h.logger, http.StatusOK, sessionResponse{
		Token: result.Token,
		User:  newUserView(result.User),
	})
}

// =============================================================================
// POST /api/auth/logout
// =============================================================================

// Logout invalidates the presented session. It is idempotent: a
// missing or unknown token still yields 204 so clients can always
// clear local state.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.userService.Logout(r.Context(), token); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Request Helpers
// =============================================================================

// bearerToken extracts the token from an "Authorization: Bearer ..."
// header. Duplicated from the middleware package so logout, which runs
// outside the auth stack, can read the credential it revokes.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// emailDomain returns the part after "@" for logging without exposing
// the full address.
func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
