package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. When users encounter errors, they can quote the
// code to support staff for faster diagnosis.
//
// # Repair Errors (REP001-REP099)
//
//	REP001 - Decode failed: no candidate encoding could decode the file
//	REP002 - Empty input: file appears empty or could not be parsed
//	REP003 - Row limit: too many data rows (message carries the limit)
//	REP004 - Column limit: too many columns (message carries the limit)
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large (message carries the limit in MB)
//	FILE004 - No file selected
//	FILE006 - Binary data detected
//	FILE007 - Unsupported extension
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: all repair slots are taken
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Payment Errors (PAY001-PAY099)
//
//	PAY001 - Payments disabled
//	PAY002 - Payment not confirmed
//	PAY003 - Missing checkout parameters
//	PAY004 - Payment provider error
//
// # Job Errors (JOB001-JOB099)
//
//	JOB001 - Job not found or expired
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many uploads from one client
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original
// technical error when users report ERR000.
//
// # Matching
//
// Typed errors are matched first with errors.As so their messages can carry
// the configured limit. Sentinel errors are matched with errors.Is. Errors
// that only surface as text (driver and network failures) fall back to
// case-insensitive substring patterns; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/CleanCSV/internal/payment"
	"github.com/JonMunkholm/CleanCSV/internal/repair"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sentinelMessages maps sentinel errors to user messages, checked with errors.Is.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{repair.ErrDecode, UserMessage{
		Message: "The file could not be decoded as text",
		Action:  "Save the file as UTF-8 and try again",
		Code:    "REP001",
	}},
	{repair.ErrEmptyInput, UserMessage{
		Message: "File appears empty or could not be parsed.",
		Action:  "Check that the file contains a header and data rows",
		Code:    "REP002",
	}},
	{repair.ErrRowLimit, UserMessage{
		Message: "Too many rows.",
		Action:  "Split the file into smaller chunks",
		Code:    "REP003",
	}},
	{repair.ErrColumnLimit, UserMessage{
		Message: "Too many columns.",
		Action:  "Remove unused columns and try again",
		Code:    "REP004",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}},
	{ErrBinaryFile, UserMessage{
		Message: "That file doesn't look like a text CSV/TSV (binary data detected).",
		Action:  "Export the data as CSV or TSV and upload that file",
		Code:    "FILE006",
	}},
	{ErrBadExtension, UserMessage{
		Message: "Please upload a .csv or .tsv file (a .txt export is also OK).",
		Action:  "Rename or re-export the file with a supported extension",
		Code:    "FILE007",
	}},
	{ErrTooManyUploads, UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try uploading a smaller file or check your connection",
		Code:    "UPL005",
	}},
	{ErrPaymentsDisabled, UserMessage{
		Message: "Payments are not enabled",
		Action:  "Downloads are free; use the download link directly",
		Code:    "PAY001",
	}},
	{payment.ErrDisabled, UserMessage{
		Message: "Payments are not enabled",
		Action:  "Downloads are free; use the download link directly",
		Code:    "PAY001",
	}},
	{ErrPaymentNotConfirmed, UserMessage{
		Message: "Payment not confirmed.",
		Action:  "If you just paid, refresh the results page in a few seconds",
		Code:    "PAY002",
	}},
	{ErrMissingParams, UserMessage{
		Message: "The payment link is incomplete",
		Action:  "Start checkout again from the results page",
		Code:    "PAY003",
	}},
	{ErrJobNotFound, UserMessage{
		Message: "Job not found",
		Action:  "Files are deleted after a while. Please upload the file again",
		Code:    "JOB001",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Patterns are matched using strings.Contains; the first match wins, so more
// specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "checkout session",
		msg: UserMessage{
			Message: "The payment provider could not be reached",
			Action:  "Please try again in a few moments",
			Code:    "PAY004",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach storage",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Storage connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(&repair.LimitError{Err: repair.ErrRowLimit, Limit: 200000})
//	// msg.Code == "REP003"
//	// msg.Message == "Too many rows. Limit is 200,000 data rows."
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var limitErr *repair.LimitError
	if errors.As(err, &limitErr) {
		msg := sentinelFor(limitErr.Err)
		msg.Message = limitErr.UserMessage()
		return msg
	}

	var sizeErr *FileTooLargeError
	if errors.As(err, &sizeErr) {
		return UserMessage{
			Message: fmt.Sprintf("File too large. Max is %d MB.", sizeErr.LimitMB()),
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		}
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return UserMessage{
			Message: fmt.Sprintf("Rate limit: too many uploads. Please wait %d seconds and try again.", rateErr.RetrySeconds()),
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		}
	}

	if msg := sentinelFor(err); msg.Code != "" {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func sentinelFor(err error) UserMessage {
	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}
	return UserMessage{}
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error maps to a specific message rather
// than the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps a technical error to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
