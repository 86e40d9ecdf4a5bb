package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/CleanCSV/internal/logging"
	"github.com/JonMunkholm/CleanCSV/internal/payment"
	"github.com/JonMunkholm/CleanCSV/internal/repair"
	"github.com/JonMunkholm/CleanCSV/internal/store"
)

// DefaultUploadTimeout bounds a single Submit call.
const DefaultUploadTimeout = 2 * time.Minute

// Service provides the business logic of the repair service.
type Service struct {
	jobs    store.JobStore
	blobs   store.BlobStore
	gateway payment.Gateway
	limiter *UploadLimiter

	repairOpts repair.Options
	timeout    time.Duration

	now   func() time.Time
	newID func() string
}

// NewService creates a Service. A nil gateway disables payments.
func NewService(jobs store.JobStore, blobs store.BlobStore, gateway payment.Gateway, opts Options) *Service {
	if gateway == nil {
		gateway = payment.Disabled{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultUploadTimeout
	}
	return &Service{
		jobs:       jobs,
		blobs:      blobs,
		gateway:    gateway,
		limiter:    NewUploadLimiter(opts.MaxConcurrent, opts.MaxWait),
		repairOpts: opts.Repair,
		timeout:    opts.Timeout,
		now:        time.Now,
		newID:      newJobID,
	}
}

// newJobID returns a random 32-character hex ID.
func newJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// validJobID reports whether id has the shape newJobID produces.
func validJobID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// event logs a service event tagged with the hashed client IP.
func event(ctx context.Context, name string, args ...any) {
	if ip := ClientIPFrom(ctx); ip != "" {
		args = append(args, "ip_hash", logging.IPHash(ip))
	}
	logging.Event(ctx, name, args...)
}

// PaymentsEnabled reports whether downloads must be paid for.
func (s *Service) PaymentsEnabled() bool {
	return s.gateway.Enabled()
}

// RepairOptions returns the configured pipeline limits.
func (s *Service) RepairOptions() repair.Options {
	return s.repairOpts
}

// Job returns a stored job.
func (s *Service) Job(ctx context.Context, id string) (*store.Job, error) {
	if !validJobID(id) {
		return nil, ErrJobNotFound
	}
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Original returns the uploaded bytes of a job.
func (s *Service) Original(ctx context.Context, id string) (*File, error) {
	job, err := s.Job(ctx, id)
	if err != nil {
		event(ctx, "download_original_not_found", "job_id", id)
		return nil, err
	}
	data, err := s.blob(ctx, store.OriginalKey(id))
	if err != nil {
		event(ctx, "download_original_missing_file", "job_id", id)
		return nil, err
	}

	name := job.OriginalFilename
	if name == "" {
		name = "original.csv"
	}
	event(ctx, "download_original_served", "job_id", id, "filename", name)
	return &File{Name: name, ContentType: "application/octet-stream", Data: data}, nil
}

// cleaned returns the repaired file of a job without any payment check.
func (s *Service) cleaned(ctx context.Context, job *store.Job) (*File, error) {
	data, err := s.blob(ctx, store.CleanedKey(job.ID))
	if err != nil {
		return nil, err
	}
	delim := job.DelimiterRune()
	ct := "text/csv; charset=utf-8"
	if delim == '\t' {
		ct = "text/tab-separated-values; charset=utf-8"
	}
	return &File{Name: repair.DownloadName(delim), ContentType: ct, Data: data}, nil
}

// blob reads a blob, reporting a missing blob as a missing job.
func (s *Service) blob(ctx context.Context, key string) ([]byte, error) {
	data, err := s.blobs.Get(ctx, key)
	if errors.Is(err, store.ErrBlobNotFound) {
		return nil, fmt.Errorf("%s: %w", key, ErrJobNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// UploadLimiterStatus returns the current repair slot usage.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until running repairs finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
