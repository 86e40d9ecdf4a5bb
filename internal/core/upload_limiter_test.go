package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---- UploadLimiter Tests ----

func TestUploadLimiter_Slots(t *testing.T) {
	limiter := NewUploadLimiter(2, time.Second)
	ctx := context.Background()

	steps := []struct {
		name          string
		op            func()
		wantActive    int
		wantAvailable int
	}{
		{"initial", func() {}, 0, 2},
		{"acquire", func() { mustAcquire(t, limiter) }, 1, 1},
		{"try acquire", func() {
			if !limiter.TryAcquire() {
				t.Fatal("TryAcquire with a free slot = false")
			}
		}, 2, 0},
		{"release", limiter.Release, 1, 1},
		{"release all", limiter.Release, 0, 2},
	}

	for _, s := range steps {
		s.op()
		if got := limiter.ActiveCount(); got != s.wantActive {
			t.Errorf("%s: ActiveCount = %d, want %d", s.name, got, s.wantActive)
		}
		if got := limiter.Available(); got != s.wantAvailable {
			t.Errorf("%s: Available = %d, want %d", s.name, got, s.wantAvailable)
		}
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after releases: %v", err)
	}
	limiter.Release()
}

func mustAcquire(t *testing.T, l *UploadLimiter) {
	t.Helper()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
}

func TestUploadLimiter_TimesOutWhenFull(t *testing.T) {
	limiter := NewUploadLimiter(1, 50*time.Millisecond)
	mustAcquire(t, limiter)
	defer limiter.Release()

	if limiter.TryAcquire() {
		t.Fatal("TryAcquire on a full limiter = true")
	}

	err := limiter.Acquire(context.Background())
	if !errors.Is(err, ErrTooManyUploads) {
		t.Errorf("Acquire on full limiter = %v, want ErrTooManyUploads", err)
	}
}

func TestUploadLimiter_CallerCancellation(t *testing.T) {
	limiter := NewUploadLimiter(1, 5*time.Second)
	mustAcquire(t, limiter)
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- limiter.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Acquire after cancel = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestUploadLimiter_NeverExceedsMax(t *testing.T) {
	const maxSlots = 3
	limiter := NewUploadLimiter(maxSlots, time.Second)

	var (
		wg      sync.WaitGroup
		current atomic.Int32
		peak    atomic.Int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			limiter.Release()
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > maxSlots {
		t.Errorf("peak concurrency = %d, want <= %d", got, maxSlots)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("final ActiveCount = %d, want 0", got)
	}
}

func TestUploadLimiter_WaitForDrain(t *testing.T) {
	limiter := NewUploadLimiter(2, time.Second)
	mustAcquire(t, limiter)

	done := make(chan error, 1)
	go func() { done <- limiter.WaitForDrain(context.Background()) }()

	select {
	case <-done:
		t.Fatal("WaitForDrain returned with an active repair")
	case <-time.After(30 * time.Millisecond):
	}

	limiter.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitForDrain = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForDrain did not return after release")
	}

	ctx, cancel := context.WithCancel(context.Background())
	mustAcquire(t, limiter)
	cancel()
	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForDrain with cancelled ctx = %v, want context.Canceled", err)
	}
	limiter.Release()
}

func TestUploadLimiter_StatusAndDefaults(t *testing.T) {
	limiter := NewUploadLimiter(3, time.Second)
	mustAcquire(t, limiter)
	defer limiter.Release()

	want := UploadLimiterStatus{Active: 1, Available: 2, MaxConcurrent: 3}
	if got := limiter.Status(); got != want {
		t.Errorf("Status() = %+v, want %+v", got, want)
	}

	if got := NewUploadLimiter(0, 0).MaxConcurrent(); got != DefaultMaxConcurrentUploads {
		t.Errorf("default MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentUploads)
	}
}
