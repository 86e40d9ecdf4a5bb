package core

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/CleanCSV/internal/repair"
	"github.com/JonMunkholm/CleanCSV/internal/store"
)

// Submit repairs an uploaded file and stores the result as a new job.
//
// Returns ErrTooManyUploads if no repair slot frees up within the wait
// time. Fatal repair errors (see package repair) are returned wrapped; the
// stored original is removed and no job is written.
func (s *Service) Submit(ctx context.Context, sub Submission) (*store.Job, error) {
	if err := ValidateUpload(sub.FileName, sub.Data); err != nil {
		event(ctx, "upload_rejected", "filename", sub.FileName, "error", err)
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id := s.newID()
	start := time.Now()
	event(ctx, "upload_start",
		"job_id", id,
		"filename", sub.FileName,
		"file_bytes", len(sub.Data),
		"near_dupes", sub.NearDupes.String(),
		"normalize_numbers", sub.NormalizeNumbers,
	)

	if err := s.blobs.Put(ctx, store.OriginalKey(id), sub.Data); err != nil {
		return nil, fmt.Errorf("store original %s: %w", id, err)
	}

	opts := s.repairOpts
	opts.NearDupes = sub.NearDupes
	opts.NormalizeNumbers = sub.NormalizeNumbers

	res, err := runRepair(sub.Data, opts)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		event(ctx, "upload_rejected_limits_or_parse", "job_id", id, "error", err)
		s.discard(ctx, id)
		return nil, fmt.Errorf("repair %s: %w", sub.FileName, err)
	}

	event(ctx, "upload_parsed",
		"job_id", id,
		"delimiter", string(res.Delimiter),
		"delimiter_source", string(res.DelimiterSource),
		"encoding", res.Encoding,
		"import_warning", res.ImportWarning,
		"repaired_rows", len(res.RepairedRows),
		"rows", res.Table.NumRows(),
		"cols", res.Table.NumCols(),
	)

	var out bytes.Buffer
	if err := repair.WriteCSV(&out, res.Table, res.Delimiter); err != nil {
		s.discard(ctx, id)
		return nil, fmt.Errorf("write cleaned %s: %w", id, err)
	}
	if err := s.blobs.Put(ctx, store.CleanedKey(id), out.Bytes()); err != nil {
		s.discard(ctx, id)
		return nil, fmt.Errorf("store cleaned %s: %w", id, err)
	}

	job := jobFromResult(id, sub.FileName, res)
	job.CreatedAt = s.now().UTC()
	if err := s.jobs.Create(ctx, job); err != nil {
		s.discard(ctx, id)
		return nil, fmt.Errorf("create job %s: %w", id, err)
	}

	event(ctx, "upload_complete",
		"job_id", id,
		"rows", job.Rows,
		"cols", job.Cols,
		"near_dupes_mode", job.NearDupesMode,
		"near_dupes_count", job.NearDupesCount,
		"paid", false,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return job, nil
}

// runRepair runs the pipeline, turning a panic into an error so the
// upload slot and stored original are always cleaned up.
func runRepair(data []byte, opts repair.Options) (res *repair.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in repair", "panic", r)
			res, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()
	return repair.Run(data, opts)
}

// discard removes every blob of a job that failed part way.
func (s *Service) discard(ctx context.Context, id string) {
	// The request context may already be done.
	ctx = context.WithoutCancel(ctx)
	for _, key := range []string{store.OriginalKey(id), store.CleanedKey(id)} {
		if err := s.blobs.Delete(ctx, key); err != nil {
			slog.Warn("discard blob failed", "job_id", id, "key", key, "error", err)
		}
	}
}

// jobFromResult builds the persisted record of a successful repair.
func jobFromResult(id, fileName string, res *repair.Result) *store.Job {
	job := &store.Job{
		ID:               id,
		OriginalFilename: fileName,
		Rows:             res.Table.NumRows(),
		Cols:             res.Table.NumCols(),
		Changelog:        res.Log.Messages(),
		ImportWarning:    res.ImportWarning,
		RepairedRows:     res.RepairedRows,
		Delimiter:        string(res.Delimiter),
		Encoding:         res.Encoding,
		Header:           res.Header,
	}
	if res.NearDupes.Mode != repair.NearDupesOff {
		job.NearDupesMode = res.NearDupes.Mode.String()
		job.IgnoredColumns = res.NearDupes.IgnoredColumns
		job.NearDupesCount = res.NearDupes.Count
		job.NearDupeExamples = res.NearDupes.Examples
	}
	return job
}
