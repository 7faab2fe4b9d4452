// Package billing integrates Stripe subscription billing. Paid tiers
// unlock monitoring capacity and auto-downloads; this package owns the
// checkout and portal flows the payment-required errors point users at,
// and the webhook verification that keeps local tier state in sync.
package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	billingportalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/thorsby/docketwatch/internal/domain"
)

// Service defines the billing operations the API layer needs.
type Service interface {
	// CreateCustomer creates a Stripe customer for a user. Called lazily
	// on first checkout, never at registration.
	CreateCustomer(email, name string) (string, error)

	// CreateCheckoutSession starts a subscription checkout. The URL is
	// returned to the client, which performs the redirect.
	CreateCheckoutSession(customerID, priceID, successURL, cancelURL string) (string, error)

	// CreatePortalSession opens the Stripe customer portal for
	// self-service payment-method and invoice management.
	CreatePortalSession(customerID, returnURL string) (string, error)

	// GetSubscription retrieves the live subscription state from Stripe.
	GetSubscription(subscriptionID string) (*stripe.Subscription, error)

	// CancelSubscription schedules cancellation at period end. The tier
	// stays active until Stripe reports the deletion via webhook.
	CancelSubscription(subscriptionID string) error

	// ReactivateSubscription clears a pending period-end cancellation.
	ReactivateSubscription(subscriptionID string) error

	// VerifyWebhookSignature authenticates a webhook payload and returns
	// the decoded event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)

	// TierForPriceID maps a Stripe price to a subscription tier, or ""
	// when the price is not one of ours.
	TierForPriceID(priceID string) domain.SubscriptionTier
}

// PriceConfig holds the Stripe price IDs for each paid plan, monthly and
// yearly billing intervals.
type PriceConfig struct {
	StarterMonthlyPriceID      string
	StarterYearlyPriceID       string
	ProfessionalMonthlyPriceID string
	ProfessionalYearlyPriceID  string
}

// tierIndex builds the price-to-tier lookup. Unset price IDs are simply
// absent, so a partially configured environment sells only the plans it
// has prices for.
func (p PriceConfig) tierIndex() map[string]domain.SubscriptionTier {
	index := make(map[string]domain.SubscriptionTier, 4)
	for priceID, tier := range map[string]domain.SubscriptionTier{
		p.StarterMonthlyPriceID:      domain.SubscriptionTierStarter,
		p.StarterYearlyPriceID:       domain.SubscriptionTierStarter,
		p.ProfessionalMonthlyPriceID: domain.SubscriptionTierProfessional,
		p.ProfessionalYearlyPriceID:  domain.SubscriptionTierProfessional,
	} {
		if priceID != "" {
			index[priceID] = tier
		}
	}
	return index
}

type stripeService struct {
	webhookSecret string
	priceToTier   map[string]domain.SubscriptionTier
}

// NewStripeService creates the Stripe-backed billing service. The secret
// key authenticates API calls, the webhook secret verifies event
// signatures, and prices bind Stripe price IDs to plan tiers.
func NewStripeService(secretKey, webhookSecret string, prices PriceConfig) Service {
	stripe.Key = secretKey

	return &stripeService{
		webhookSecret: webhookSecret,
		priceToTier:   prices.tierIndex(),
	}
}

func (s *stripeService) CreateCustomer(email, name string) (string, error) {
	c, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (s *stripeService) CreateCheckoutSession(customerID, priceID, successURL, cancelURL string) (string, error) {
	sess, err := checkoutsession.New(&stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	})
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) CreatePortalSession(customerID, returnURL string) (string, error) {
	sess, err := billingportalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("stripe create portal session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	sub, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe get subscription: %w", err)
	}
	return sub, nil
}

func (s *stripeService) CancelSubscription(subscriptionID string) error {
	_, err := subscription.Update(subscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("stripe cancel subscription: %w", err)
	}
	return nil
}

func (s *stripeService) ReactivateSubscription(subscriptionID string) error {
	_, err := subscription.Update(subscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("stripe reactivate subscription: %w", err)
	}
	return nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

func (s *stripeService) TierForPriceID(priceID string) domain.SubscriptionTier {
	return s.priceToTier[priceID]
}
