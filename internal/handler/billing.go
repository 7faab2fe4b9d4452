// This file implements subscription management backed by Stripe.
// Checkout and the customer portal are hosted by Stripe; the API hands
// out session URLs and the webhook in webhook.go applies the results.
package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/thorsby/docketwatch/internal/auth"
	"github.com/thorsby/docketwatch/internal/billing"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/service"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// BillingHandler serves the subscription endpoints:
//
//   - GET  /api/billing
//   - POST /api/billing/checkout
//   - POST /api/billing/portal
//   - POST /api/billing/cancel
//   - POST /api/billing/reactivate
type BillingHandler struct {
	billing     billing.Service
	userService service.UserService
	baseURL     string
	prices      billing.PriceConfig
	logger      *slog.Logger
}

// NewBillingHandler wires the billing routes. A nil billingService
// leaves every route answering EUNAVAILABLE, which is how development
// runs without Stripe keys.
func NewBillingHandler(billingService billing.Service, userService service.UserService, baseURL string, prices billing.PriceConfig, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:     billingService,
		userService: userService,
		baseURL:     baseURL,
		prices:      prices,
		logger:      logger,
	}
}

// RegisterRoutes mounts the billing endpoints on mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/billing", requireUser(http.HandlerFunc(h.Show)))
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("POST /api/billing/portal", requireUser(http.HandlerFunc(h.OpenPortal)))
	mux.Handle("POST /api/billing/cancel", requireUser(http.HandlerFunc(h.CancelSubscription)))
	mux.Handle("POST /api/billing/reactivate", requireUser(http.HandlerFunc(h.ReactivateSubscription)))
}

// errBillingUnconfigured is returned on billing routes when Stripe
// credentials were not provided at startup.
func errBillingUnconfigured() error {
	return domain.Errorf(domain.EUNAVAILABLE, "", "Billing is not configured on this server.")
}

// =============================================================================
// GET /api/billing
// =============================================================================

type planView struct {
	Tier        string `json:"tier"`
	Status      string `json:"status"`
	PeriodEnd   string `json:"period_end,omitempty"`
	CancelAtEnd bool   `json:"cancel_at_period_end,omitempty"`
}

type pricesView struct {
	StarterMonthly      string `json:"starter_monthly,omitempty"`
	StarterYearly       string `json:"starter_yearly,omitempty"`
	ProfessionalMonthly string `json:"professional_monthly,omitempty"`
	ProfessionalYearly  string `json:"professional_yearly,omitempty"`
}

// Show returns the current plan plus the price IDs a client needs to
// start a checkout.
func (h *BillingHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	plan := planView{
		Tier:   string(user.EffectiveTier()),
		Status: string(user.SubscriptionStatus),
	}

	// Enrich with live subscription state when the user has one.
	if h.billing != nil && user.SubscriptionID != "" {
		sub, err := h.billing.GetSubscription(user.SubscriptionID)
		if err != nil {
			h.logger.Warn("failed to fetch stripe subscription", "error", err, "subscription_id", user.SubscriptionID)
		} else {
			plan.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC().Format(time.RFC3339)
			plan.CancelAtEnd = sub.CancelAtPeriodEnd
			plan.Status = string(sub.Status)
		}
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"plan": plan,
		"prices": pricesView{
			StarterMonthly:      h.prices.StarterMonthlyPriceID,
			StarterYearly:       h.prices.StarterYearlyPriceID,
			ProfessionalMonthly: h.prices.ProfessionalMonthlyPriceID,
			ProfessionalYearly:  h.prices.ProfessionalYearlyPriceID,
		},
	})
}

// =============================================================================
// POST /api/billing/checkout
// =============================================================================

type checkoutRequest struct {
	PriceID string `json:"price_id"`
}

// CreateCheckout creates a Stripe Checkout session and returns its URL.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	if h.billing == nil {
		ErrorResponse(w, r, h.logger, errBillingUnconfigured())
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	// Only our own price IDs may start a checkout.
	if req.PriceID == "" || h.billing.TierForPriceID(req.PriceID) == "" {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "", "Unknown price_id."))
		return
	}

	// Checkout needs a Stripe customer; create one lazily.
	customerID := user.StripeCustomerID
	if customerID == "" {
		var err error
		customerID, err = h.billing.CreateCustomer(user.Email, user.Name)
		if err != nil {
			h.logger.Error("failed to create stripe customer", "error", err, "user_id", user.ID)
			InternalErrorResponse(w, r, h.logger, err)
			return
		}
		if err := h.userService.UpdateStripeCustomer(r.Context(), user.ID, customerID); err != nil {
			h.logger.Error("failed to save stripe customer ID", "error", err, "user_id", user.ID)
		}
	}

	successURL := fmt.Sprintf("%s/billing/success?session_id={CHECKOUT_SESSION_ID}", h.baseURL)
	cancelURL := fmt.Sprintf("%s/billing", h.baseURL)

	checkoutURL, err := h.billing.CreateCheckoutSession(customerID, req.PriceID, successURL, cancelURL)
	if err != nil {
		h.logger.Error("failed to create checkout session", "error", err, "user_id", user.ID)
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{"url": checkoutURL})
}

// =============================================================================
// POST /api/billing/portal
// =============================================================================

// OpenPortal creates a Stripe Customer Portal session and returns its URL.
func (h *BillingHandler) OpenPortal(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	if h.billing == nil {
		ErrorResponse(w, r, h.logger, errBillingUnconfigured())
		return
	}
	if user.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "",
			"No billing profile yet. Start a checkout first."))
		return
	}

	returnURL := fmt.Sprintf("%s/billing", h.baseURL)
	portalURL, err := h.billing.CreatePortalSession(user.StripeCustomerID, returnURL)
	if err != nil {
		h.logger.Error("failed to create portal session", "error", err, "user_id", user.ID)
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{"url": portalURL})
}

// =============================================================================
// POST /api/billing/cancel
// =============================================================================

// CancelSubscription sets the subscription to cancel at period end.
// Access continues until the period ends; the webhook downgrades the
// tier when Stripe reports the deletion.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	if h.billing == nil {
		ErrorResponse(w, r, h.logger, errBillingUnconfigured())
		return
	}
	if user.SubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "", "No active subscription to cancel."))
		return
	}

	if err := h.billing.CancelSubscription(user.SubscriptionID); err != nil {
		h.logger.Error("failed to cancel subscription", "error", err, "user_id", user.ID)
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("subscription set to cancel at period end", "user_id", user.ID)
	respondJSON(w, h.logger, http.StatusOK, map[string]any{"status": "cancel_scheduled"})
}

// =============================================================================
// POST /api/billing/reactivate
// =============================================================================

// ReactivateSubscription removes the cancel-at-period-end flag.
func (h *BillingHandler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)

	if h.billing == nil {
		ErrorResponse(w, r, h.logger, errBillingUnconfigured())
		return
	}
	if user.SubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "", "No subscription to reactivate."))
		return
	}

	if err := h.billing.ReactivateSubscription(user.SubscriptionID); err != nil {
		h.logger.Error("failed to reactivate subscription", "error", err, "user_id", user.ID)
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("subscription reactivated", "user_id", user.ID)
	respondJSON(w, h.logger, http.StatusOK, map[string]any{"status": "active"})
}
