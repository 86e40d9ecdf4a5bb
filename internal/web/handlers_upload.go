package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/CleanCSV/internal/core"
	"github.com/JonMunkholm/CleanCSV/internal/logging"
	"github.com/JonMunkholm/CleanCSV/internal/repair"
	"github.com/JonMunkholm/CleanCSV/internal/web/middleware"
)

// multipartOverhead is the request body allowance on top of the file ceiling
// for multipart boundaries and the option fields.
const multipartOverhead = 64 * 1024

// maxFormMemory is how much of a multipart form is buffered in memory.
const maxFormMemory = 8 << 20

// handleUpload repairs an uploaded file and renders its result page.
// Rejected uploads re-render the upload page with the reason.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	if s.uploads != nil {
		if wait := s.uploads.reserve(middleware.ClientIP(r)); wait > 0 {
			err := &core.RateLimitError{RetryAfter: wait}
			logging.Event(ctx, "upload_rate_limited", "ip_hash", logging.IPHash(middleware.ClientIP(r)))
			w.Header().Set("Retry-After", retryAfter(err))
			s.uploadFailed(w, r, err)
			return
		}
	}

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			s.uploadFailed(w, r, &core.FileTooLargeError{Limit: maxSize})
			return
		}
		http.Error(w, "No file uploaded.", http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	counter := core.NewCountingReader(file)
	data, err := core.ReadLimited(counter, maxSize)
	if err != nil {
		logging.Event(ctx, "upload_too_large", "filename", header.Filename, "bytes_read", counter.BytesRead)
		s.uploadFailed(w, r, err)
		return
	}

	job, err := s.service.Submit(ctx, core.Submission{
		FileName:         header.Filename,
		Data:             data,
		NearDupes:        nearDupeMode(r),
		NormalizeNumbers: checked(r, "normalize_numbers"),
	})
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}

	s.renderResult(w, r, job)
}

// nearDupeMode reads the near-duplicate checkboxes. Remove implies preview.
func nearDupeMode(r *http.Request) repair.NearDupeMode {
	switch {
	case checked(r, "near_dupes_remove"):
		return repair.NearDupesRemove
	case checked(r, "near_dupes_preview"):
		return repair.NearDupesPreview
	}
	return repair.NearDupesOff
}

func checked(r *http.Request, name string) bool {
	v := r.FormValue(name)
	return v != "" && v != "0" && v != "false"
}

// uploadFailed logs err and re-renders the upload page with its message.
func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := s.logError(r, err, status)
	s.renderIndex(w, r, status, msg.Message)
}
