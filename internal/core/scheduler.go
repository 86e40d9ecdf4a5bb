package core

// scheduler.go evicts expired jobs in the background.
//
// Uploaded and cleaned files are kept only for the retention TTL. A cron
// job lists jobs created before now-TTL and deletes their blobs and records.
// Failures are logged and retried on the next run; they never stop the
// application.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/CleanCSV/internal/store"
)

// DefaultSweepSchedule runs the retention sweep every minute.
const DefaultSweepSchedule = "@every 1m"

// StartRetentionScheduler sweeps once immediately, then on cfg.Schedule.
// The returned cron must be stopped on shutdown; it also stops when ctx ends.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) (*cron.Cron, error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("retention TTL must be positive, got %s", cfg.TTL)
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSweepSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() { s.runSweep(ctx, cfg.TTL) }); err != nil {
		return nil, fmt.Errorf("add retention job %q: %w", cfg.Schedule, err)
	}

	s.runSweep(ctx, cfg.TTL)
	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	slog.Info("retention scheduler started", "ttl", cfg.TTL.String(), "schedule", cfg.Schedule)
	return c, nil
}

// runSweep performs one sweep and logs the outcome.
func (s *Service) runSweep(ctx context.Context, ttl time.Duration) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	n, err := s.SweepExpired(ctx, ttl)
	if err != nil {
		slog.Error("retention sweep failed", "error", err, "evicted", n)
		return
	}
	if n > 0 {
		slog.Info("retention sweep completed",
			"evicted", n,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// SweepExpired deletes jobs older than ttl and returns how many were evicted.
// It keeps going after a failed job and returns the first error.
func (s *Service) SweepExpired(ctx context.Context, ttl time.Duration) (int, error) {
	ids, err := s.jobs.ListExpired(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}

	var (
		evicted  int
		firstErr error
	)
	for _, id := range ids {
		if err := s.evict(ctx, id); err != nil {
			slog.Warn("evict job failed", "job_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		evicted++
	}
	return evicted, firstErr
}

// evict removes blobs before the record so a failure leaves the job listed
// for the next sweep.
func (s *Service) evict(ctx context.Context, id string) error {
	for _, key := range []string{store.OriginalKey(id), store.CleanedKey(id)} {
		if err := s.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	if err := s.jobs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}
