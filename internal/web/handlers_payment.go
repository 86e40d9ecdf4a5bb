package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/CleanCSV/internal/core"
	"github.com/JonMunkholm/CleanCSV/internal/payment"
	"github.com/JonMunkholm/CleanCSV/internal/web/templates"
)

// maxWebhookBytes bounds a webhook delivery body.
const maxWebhookBytes = 64 * 1024

// handlePay starts checkout for a job. With payments disabled it sends the
// client straight to the download.
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	id := chi.URLParam(r, "jobID")

	if !s.service.PaymentsEnabled() {
		http.Redirect(w, r, "/download/"+id, http.StatusSeeOther)
		return
	}

	url, err := s.service.StartCheckout(ctx, id)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		s.respondError(w, r, err, status)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// handleSuccess confirms a returning checkout session and marks the job paid.
func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	jobID := r.URL.Query().Get("job_id")
	sessionID := r.URL.Query().Get("session_id")

	if err := s.service.ConfirmSuccess(ctx, jobID, sessionID); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.render(w, r, http.StatusOK, templates.Success(jobID, s.cfg.Payment.SupportEmail))
}

// handleWebhook verifies and applies a payment provider webhook.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	err = s.service.HandleWebhook(ctx, payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	case errors.Is(err, payment.ErrWebhookNotConfigured), errors.Is(err, payment.ErrDisabled):
		http.Error(w, "Webhook secret not configured", http.StatusBadRequest)
	case errors.Is(err, payment.ErrInvalidWebhook):
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
	default:
		s.logError(r, err, http.StatusInternalServerError)
		http.Error(w, core.MapError(err).Message, http.StatusInternalServerError)
	}
}
