// Package store persists job records and file bytes.
//
// Jobs are kept in a JobStore (PostgreSQL via pgx, or in memory) and the
// original and cleaned files in a BlobStore (local directory or S3).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/CleanCSV/internal/repair"
)

var (
	// ErrJobNotFound is returned when no job has the given ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateEvent is returned by MarkPaid when the payment event was
	// already applied to the job.
	ErrDuplicateEvent = errors.New("payment event already processed")

	// ErrBlobNotFound is returned when a blob key does not exist.
	ErrBlobNotFound = errors.New("blob not found")
)

// Job is the persisted record of one repair.
type Job struct {
	ID               string                   `json:"job_id"`
	CreatedAt        time.Time                `json:"created_at"`
	OriginalFilename string                   `json:"original_filename"`
	Rows             int                      `json:"rows"`
	Cols             int                      `json:"cols"`
	Changelog        []string                 `json:"changelog"`
	ImportWarning    bool                     `json:"import_warning"`
	RepairedRows     []int                    `json:"repaired_row_indices"`
	NearDupesMode    string                   `json:"near_dupes_mode"`
	IgnoredColumns   []string                 `json:"ignored_cols"`
	NearDupesCount   int                      `json:"near_dupes_count"`
	NearDupeExamples []repair.NearDupeExample `json:"near_dupe_examples_rows"`
	Delimiter        string                   `json:"detected_delimiter"`
	Encoding         string                   `json:"detected_encoding"`
	Header           repair.HeaderInfo        `json:"header"`
	Paid             bool                     `json:"paid"`
	PaidAt           *time.Time               `json:"paid_at,omitempty"`
	StripeSessionID  string                   `json:"stripe_session_id,omitempty"`
	StripeEventID    string                   `json:"stripe_event_id,omitempty"`
}

// DelimiterRune returns the job's delimiter, defaulting to comma.
func (j *Job) DelimiterRune() rune {
	for _, r := range j.Delimiter {
		return r
	}
	return ','
}

// PaymentPending reports whether checkout started but was not confirmed.
func (j *Job) PaymentPending() bool {
	return !j.Paid && j.StripeSessionID != ""
}

// JobStore persists job records.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)

	// SetCheckoutSession records the checkout session started for a job.
	SetCheckoutSession(ctx context.Context, id, sessionID string) error

	// MarkPaid marks a job paid. An empty eventID skips the duplicate check.
	// Marking an already-paid job again is not an error.
	MarkPaid(ctx context.Context, id, sessionID, eventID string) error

	// ListExpired returns the IDs of jobs created before the cutoff.
	ListExpired(ctx context.Context, before time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore keeps file bytes by key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// OriginalKey is the blob key of a job's uploaded bytes.
func OriginalKey(jobID string) string { return jobID + ".raw" }

// CleanedKey is the blob key of a job's repaired output.
func CleanedKey(jobID string) string { return jobID + ".clean" }
