package core

import (
	"time"

	"github.com/JonMunkholm/CleanCSV/internal/repair"
)

// Submission is one uploaded file and its repair options.
type Submission struct {
	FileName         string
	Data             []byte
	NearDupes        repair.NearDupeMode
	NormalizeNumbers bool
}

// File is a stored file ready to be sent to a client.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Preview holds the rows shown on the result page.
type Preview struct {
	Header   []string
	First    [][]string
	Last     [][]string
	Repaired [][]string
}

// PreviewRows is how many rows the first, last and repaired previews show.
const PreviewRows = 10

// DownloadAction is the outcome of a download request.
type DownloadAction int

const (
	DownloadFree    DownloadAction = iota // payments disabled
	DownloadPaid                          // job is paid
	DownloadPay                           // no checkout yet; send to /pay
	DownloadPending                       // checkout started but not confirmed
)

// String returns the event suffix logged for the action.
func (a DownloadAction) String() string {
	switch a {
	case DownloadFree:
		return "served_free"
	case DownloadPaid:
		return "served_paid"
	case DownloadPay:
		return "redirect_pay"
	case DownloadPending:
		return "blocked_pending"
	}
	return "unknown"
}

// Serves reports whether the cleaned file is sent.
func (a DownloadAction) Serves() bool {
	return a == DownloadFree || a == DownloadPaid
}

// Options configures a Service.
type Options struct {
	Repair        repair.Options
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
}

// RetentionConfig configures the retention scheduler.
type RetentionConfig struct {
	TTL      time.Duration // jobs older than this are evicted
	Schedule string        // cron spec, e.g. "@every 1m"
}
