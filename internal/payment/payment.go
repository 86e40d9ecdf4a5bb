// Package payment gates downloads of cleaned files behind a one-off checkout.
//
// A Gateway creates checkout sessions for a job, confirms them after the
// customer returns, and verifies webhook deliveries. When no payment
// provider is configured the Disabled gateway is used and downloads are free.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrDisabled is returned by every Disabled gateway operation.
	ErrDisabled = errors.New("payments are not enabled")

	// ErrWebhookNotConfigured is returned when no webhook secret is set.
	ErrWebhookNotConfigured = errors.New("webhook secret not configured")

	// ErrInvalidWebhook is returned for payloads that fail parsing or
	// signature verification.
	ErrInvalidWebhook = errors.New("invalid webhook payload or signature")
)

// EventCheckoutCompleted is the only webhook event type acted on.
const EventCheckoutCompleted = "checkout.session.completed"

// Checkout is a newly created checkout session.
type Checkout struct {
	SessionID string
	URL       string
}

// Event is a verified webhook delivery.
type Event struct {
	ID        string
	Type      string
	JobID     string
	SessionID string
}

// Gateway is a payment provider.
type Gateway interface {
	// Enabled reports whether downloads must be paid for.
	Enabled() bool

	// CreateCheckout starts a checkout for one cleaned file.
	CreateCheckout(ctx context.Context, jobID string) (Checkout, error)

	// SessionPaid reports whether a session is paid and belongs to jobID.
	SessionPaid(ctx context.Context, sessionID, jobID string) (bool, error)

	// ParseWebhook verifies the signature and decodes the event.
	ParseWebhook(payload []byte, signature string) (Event, error)
}

// Disabled is the gateway used when no provider is configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreateCheckout(context.Context, string) (Checkout, error) {
	return Checkout{}, ErrDisabled
}

func (Disabled) SessionPaid(context.Context, string, string) (bool, error) {
	return false, ErrDisabled
}

func (Disabled) ParseWebhook([]byte, string) (Event, error) {
	return Event{}, ErrDisabled
}
