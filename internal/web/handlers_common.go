// Package web provides HTTP handlers for the repair service.
// This file contains the JSON API handlers.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/CleanCSV/internal/repair"
	"github.com/JonMunkholm/CleanCSV/internal/store"
)

// JobResponse is the JSON form of a job's result.
type JobResponse struct {
	JobID            string                   `json:"job_id"`
	CreatedAt        time.Time                `json:"created_at"`
	OriginalFilename string                   `json:"original_filename"`
	Rows             int                      `json:"rows"`
	Cols             int                      `json:"cols"`
	Changelog        []string                 `json:"changelog"`
	ImportWarning    bool                     `json:"import_warning"`
	RepairedRows     []int                    `json:"repaired_row_indices"`
	NearDupesMode    string                   `json:"near_dupes_mode,omitempty"`
	IgnoredColumns   []string                 `json:"ignored_cols,omitempty"`
	NearDupesCount   int                      `json:"near_dupes_count"`
	NearDupeExamples []repair.NearDupeExample `json:"near_dupe_examples_rows,omitempty"`
	Delimiter        string                   `json:"detected_delimiter"`
	DelimiterLabel   string                   `json:"detected_delimiter_label"`
	Encoding         string                   `json:"detected_encoding"`
	Header           repair.HeaderInfo        `json:"header"`
	Paid             bool                     `json:"paid"`
	PaymentPending   bool                     `json:"payment_pending"`
	PaymentsEnabled  bool                     `json:"payments_enabled"`
	ResultURL        string                   `json:"result_url"`
	DownloadURL      string                   `json:"download_url"`
}

// toResponse converts a stored job to its JSON form. Payment provider IDs
// are left out.
func (s *Server) toResponse(job *store.Job) JobResponse {
	return JobResponse{
		JobID:            job.ID,
		CreatedAt:        job.CreatedAt,
		OriginalFilename: job.OriginalFilename,
		Rows:             job.Rows,
		Cols:             job.Cols,
		Changelog:        job.Changelog,
		ImportWarning:    job.ImportWarning,
		RepairedRows:     job.RepairedRows,
		NearDupesMode:    job.NearDupesMode,
		IgnoredColumns:   job.IgnoredColumns,
		NearDupesCount:   job.NearDupesCount,
		NearDupeExamples: job.NearDupeExamples,
		Delimiter:        job.Delimiter,
		DelimiterLabel:   repair.DelimiterLabel(job.DelimiterRune()),
		Encoding:         job.Encoding,
		Header:           job.Header,
		Paid:             job.Paid,
		PaymentPending:   s.service.PaymentPending(job),
		PaymentsEnabled:  s.service.PaymentsEnabled(),
		ResultURL:        "/result/" + job.ID,
		DownloadURL:      "/download/" + job.ID,
	}
}

// handleJobAPI returns a job's result as JSON.
func (s *Server) handleJobAPI(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	job, err := s.service.Job(ctx, chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse(job))
}

// handleUploadQueueStatus returns the current state of the upload limiter.
// Used for monitoring and to check if the system can accept more uploads.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.UploadLimiterStatus())
}
