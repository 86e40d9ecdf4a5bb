package web

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/CleanCSV/internal/store"
	"github.com/JonMunkholm/CleanCSV/internal/web/templates"
)

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, "")
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	opts := s.service.RepairOptions()
	s.render(w, r, status, templates.Index(templates.IndexData{
		Error:            errMsg,
		MaxMB:            s.cfg.Upload.MaxFileSize / (1024 * 1024),
		RetentionMinutes: s.retentionMinutes(),
		MaxRows:          opts.MaxRows,
		MaxCols:          opts.MaxCols,
		UploadLimit:      s.cfg.Rate.UploadLimit,
		UploadWindowSecs: int(s.cfg.Rate.UploadWindow.Seconds()),
		PaymentsEnabled:  s.service.PaymentsEnabled(),
	}))
}

// handleResult renders the result page of a stored job.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	job, err := s.service.Job(ctx, chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.renderResult(w, r, job)
}

func (s *Server) renderResult(w http.ResponseWriter, r *http.Request, job *store.Job) {
	ctx := requestContext(r)
	preview, err := s.service.Preview(ctx, job)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	s.render(w, r, http.StatusOK, templates.Result(templates.ResultData{
		Job:              job,
		Preview:          preview,
		PaymentsEnabled:  s.service.PaymentsEnabled(),
		PaymentPending:   s.service.PaymentPending(job),
		PriceLabel:       s.cfg.Payment.PriceLabel,
		RetentionMinutes: s.retentionMinutes(),
	}))
}

// handleCancel renders the page shown when checkout is abandoned.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, templates.Cancel(r.URL.Query().Get("job_id")))
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) retentionMinutes() int {
	return int(s.cfg.Retention.TTL.Minutes())
}

// render writes an HTML page with the given status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render page", "path", r.URL.Path, "error", err)
	}
}
