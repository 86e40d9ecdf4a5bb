package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig configures a StripeGateway.
type StripeConfig struct {
	SecretKey     string
	PriceID       string
	WebhookSecret string
	BaseURL       string // public URL the customer returns to
}

// StripeGateway sells one unit of PriceID per job through Stripe Checkout.
type StripeGateway struct {
	api           *client.API
	priceID       string
	webhookSecret string
	baseURL       string
}

// NewStripeGateway returns a gateway backed by its own API client.
func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{
		api:           api,
		priceID:       cfg.PriceID,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (g *StripeGateway) Enabled() bool { return true }

func (g *StripeGateway) CreateCheckout(ctx context.Context, jobID string) (Checkout, error) {
	id := url.QueryEscape(jobID)
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		// Stripe substitutes the literal {CHECKOUT_SESSION_ID} placeholder.
		SuccessURL:        stripe.String(g.baseURL + "/success?job_id=" + id + "&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(g.baseURL + "/cancel?job_id=" + id),
		ClientReferenceID: stripe.String(jobID),
	}
	params.Context = ctx
	params.AddMetadata("job_id", jobID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return Checkout{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) SessionPaid(ctx context.Context, sessionID, jobID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("retrieve checkout session: %w", err)
	}
	paid := sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	return paid && sess.Metadata["job_id"] == jobID, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (Event, error) {
	if g.webhookSecret == "" {
		return Event{}, ErrWebhookNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != EventCheckoutCompleted || ev.Data == nil {
		return out, nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	out.SessionID = sess.ID
	out.JobID = sess.Metadata["job_id"]
	return out, nil
}
