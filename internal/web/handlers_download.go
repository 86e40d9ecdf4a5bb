package web

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/CleanCSV/internal/core"
)

// handleDownload serves the cleaned file when the job is free or paid and
// otherwise redirects to checkout or back to the result page.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	id := chi.URLParam(r, "jobID")

	action, f, err := s.service.Download(ctx, id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	switch action {
	case core.DownloadPending:
		http.Redirect(w, r, "/result/"+id, http.StatusSeeOther)
	case core.DownloadPay:
		http.Redirect(w, r, "/pay/"+id, http.StatusSeeOther)
	default:
		serveFile(w, f)
	}
}

// handleDownloadOriginal serves the uploaded bytes. It is never paywalled.
func (s *Server) handleDownloadOriginal(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	f, err := s.service.Original(ctx, chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	serveFile(w, f)
}

// serveFile writes f as an attachment.
func serveFile(w http.ResponseWriter, f *core.File) {
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}
