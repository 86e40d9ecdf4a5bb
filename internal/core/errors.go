package core

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/JonMunkholm/CleanCSV/internal/store"
)

var (
	// ErrBadExtension is returned for uploads that are not .csv, .tsv or .txt.
	ErrBadExtension = errors.New("unsupported file extension")

	// ErrBinaryFile is returned when the upload contains NUL bytes.
	ErrBinaryFile = errors.New("binary data detected")

	// ErrNoFile is returned for an empty file name or zero-length upload.
	ErrNoFile = errors.New("no file provided")

	// ErrJobNotFound is returned for unknown or expired job IDs.
	ErrJobNotFound = store.ErrJobNotFound

	// ErrPaymentsDisabled is returned by payment operations when no gateway
	// is configured.
	ErrPaymentsDisabled = errors.New("payments are not enabled")

	// ErrPaymentNotConfirmed is returned when a returning checkout session
	// is not paid or belongs to another job.
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")

	// ErrMissingParams is returned when a checkout return lacks its IDs.
	ErrMissingParams = errors.New("missing payment parameters")
)

// FileTooLargeError is returned when an upload exceeds the byte ceiling.
type FileTooLargeError struct {
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file too large: limit is %d bytes", e.Limit)
}

// LimitMB is the ceiling in whole megabytes, for user messages.
func (e *FileTooLargeError) LimitMB() int64 {
	return e.Limit / (1024 * 1024)
}

// RateLimitError is returned when a client has used up its upload allowance.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: retry after %s", e.RetryAfter)
}

// RetrySeconds is RetryAfter rounded up to whole seconds, at least 1.
func (e *RateLimitError) RetrySeconds() int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	return max(s, 1)
}
