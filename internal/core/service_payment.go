package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/CleanCSV/internal/payment"
	"github.com/JonMunkholm/CleanCSV/internal/store"
)

// DownloadDecision decides what a download request for job gets.
func (s *Service) DownloadDecision(job *store.Job) DownloadAction {
	switch {
	case !s.PaymentsEnabled():
		return DownloadFree
	case job.Paid:
		return DownloadPaid
	case job.StripeSessionID != "":
		return DownloadPending
	default:
		return DownloadPay
	}
}

// PaymentPending reports whether the result page should show the
// payment pending callout for job.
func (s *Service) PaymentPending(job *store.Job) bool {
	return s.PaymentsEnabled() && job.PaymentPending()
}

// Download resolves a download request. The file is nil unless the action
// serves it.
func (s *Service) Download(ctx context.Context, id string) (DownloadAction, *File, error) {
	job, err := s.Job(ctx, id)
	if err != nil {
		event(ctx, "download_not_found", "job_id", id)
		return 0, nil, err
	}

	action := s.DownloadDecision(job)
	event(ctx, "download_"+action.String(), "job_id", id, "delimiter", job.Delimiter)
	if !action.Serves() {
		return action, nil, nil
	}

	f, err := s.cleaned(ctx, job)
	if err != nil {
		return 0, nil, err
	}
	return action, f, nil
}

// StartCheckout creates a checkout session for a job and returns the URL
// the customer is sent to.
func (s *Service) StartCheckout(ctx context.Context, id string) (string, error) {
	if !s.PaymentsEnabled() {
		event(ctx, "pay_disabled", "job_id", id)
		return "", ErrPaymentsDisabled
	}
	if _, err := s.Job(ctx, id); err != nil {
		event(ctx, "pay_not_found", "job_id", id)
		return "", err
	}

	co, err := s.gateway.CreateCheckout(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.jobs.SetCheckoutSession(ctx, id, co.SessionID); err != nil {
		return "", fmt.Errorf("record checkout session: %w", err)
	}

	event(ctx, "pay_session_created", "job_id", id, "stripe_session_id", co.SessionID)
	return co.URL, nil
}

// ConfirmSuccess marks a job paid after the customer returns from checkout.
// Returns ErrPaymentNotConfirmed when the session is unpaid or belongs to
// another job.
func (s *Service) ConfirmSuccess(ctx context.Context, jobID, sessionID string) error {
	if !s.PaymentsEnabled() {
		return ErrPaymentsDisabled
	}
	jobID = strings.TrimSpace(jobID)
	sessionID = strings.TrimSpace(sessionID)
	if jobID == "" || sessionID == "" {
		return ErrMissingParams
	}

	paid, err := s.gateway.SessionPaid(ctx, sessionID, jobID)
	if err != nil {
		return err
	}
	if !paid {
		event(ctx, "success_not_confirmed", "job_id", jobID, "stripe_session_id", sessionID)
		return ErrPaymentNotConfirmed
	}

	if err := s.jobs.MarkPaid(ctx, jobID, sessionID, ""); err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	event(ctx, "success_confirmed_paid", "job_id", jobID, "stripe_session_id", sessionID)
	return nil
}

// HandleWebhook verifies and applies a payment webhook delivery.
//
// Verification failures are returned so the caller can reject the request.
// Repeated deliveries of an event and events for unknown jobs are logged
// and acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrWebhookNotConfigured), errors.Is(err, payment.ErrDisabled):
			event(ctx, "webhook_missing_secret")
		default:
			event(ctx, "webhook_invalid_signature", "error", err)
		}
		return err
	}

	event(ctx, "webhook_received", "stripe_event_id", ev.ID, "stripe_event_type", ev.Type)
	if ev.Type != payment.EventCheckoutCompleted || ev.JobID == "" {
		return nil
	}

	err = s.jobs.MarkPaid(ctx, ev.JobID, ev.SessionID, ev.ID)
	switch {
	case errors.Is(err, store.ErrDuplicateEvent):
		event(ctx, "webhook_duplicate_ignored", "job_id", ev.JobID, "stripe_event_id", ev.ID)
		return nil
	case errors.Is(err, store.ErrJobNotFound):
		event(ctx, "webhook_job_not_found", "job_id", ev.JobID, "stripe_event_id", ev.ID)
		return nil
	case err != nil:
		return fmt.Errorf("mark paid from webhook: %w", err)
	}

	event(ctx, "webhook_marked_paid", "job_id", ev.JobID, "stripe_session_id", ev.SessionID, "stripe_event_id", ev.ID)
	return nil
}
