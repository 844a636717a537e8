package connstate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCheck_ProbeSuccess(t *testing.T) {
	t.Parallel()

	m := NewMonitor(Config{
		Probe: func(ctx context.Context) error { return nil },
		TTL:   time.Second,
	})

	if got := m.Check(context.Background()); got != Connected {
		t.Errorf("Check = %v, want Connected", got)
	}
	if m.LastError() != nil {
		t.Errorf("LastError = %v, want nil", m.LastError())
	}
}

func TestCheck_ProbeFailure(t *testing.T) {
	t.Parallel()

	errDown := errors.New("connection refused")
	m := NewMonitor(Config{
		Probe: func(ctx context.Context) error { return errDown },
		TTL:   time.Second,
	})

	if got := m.Check(context.Background()); got != Unavailable {
		t.Errorf("Check = %v, want Unavailable", got)
	}
	if !errors.Is(m.LastError(), errDown) {
		t.Errorf("LastError = %v, want probe error", m.LastError())
	}
}

func TestCheck_CacheShortCircuitsReprobe(t *testing.T) {
	t.Parallel()

	var probes atomic.Int32
	m := NewMonitor(Config{
		Probe: func(ctx context.Context) error {
			probes.Add(1)
			return errors.New("down")
		},
		TTL: time.Minute,
	})

	m.Check(context.Background())
	m.Check(context.Background())
	m.Check(context.Background())

	if got := probes.Load(); got != 1 {
		t.Errorf("probe ran %d times inside TTL, want 1", got)
	}
	if m.State() != Unavailable {
		t.Errorf("State = %v, want cached Unavailable", m.State())
	}
}

func TestCheck_ReprobesAfterTTL(t *testing.T) {
	t.Parallel()

	var probes atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)

	m := NewMonitor(Config{
		Probe: func(ctx context.Context) error {
			probes.Add(1)
			if fail.Load() {
				return errors.New("down")
			}
			return nil
		},
		TTL: 10 * time.Second,
	})

	// Control the clock so the TTL expiry is deterministic.
	current := time.Now()
	m.now = func() time.Time { return current }

	if got := m.Check(context.Background()); got != Unavailable {
		t.Fatalf("first Check = %v, want Unavailable", got)
	}

	// Backend recovers; inside the TTL the cached failure still rules.
	fail.Store(false)
	if got := m.Check(context.Background()); got != Unavailable {
		t.Errorf("Check inside TTL = %v, want cached Unavailable", got)
	}

	current = current.Add(11 * time.Second)
	if got := m.Check(context.Background()); got != Connected {
		t.Errorf("Check after TTL = %v, want Connected", got)
	}
	if probes.Load() != 2 {
		t.Errorf("probe count = %d, want 2", probes.Load())
	}
}

func TestReportFailure_ForcesUnavailable(t *testing.T) {
	t.Parallel()

	m := NewMonitor(Config{
		Probe: func(ctx context.Context) error { return nil },
		TTL:   time.Minute,
	})

	if m.Check(context.Background()) != Connected {
		t.Fatal("setup: expected Connected")
	}

	m.ReportFailure(errors.New("completion timed out"))
	if m.State() != Unavailable {
		t.Errorf("State after ReportFailure = %v, want Unavailable", m.State())
	}
}

func TestCheck_ProbeTimeoutBounded(t *testing.T) {
	t.Parallel()

	m := NewMonitor(Config{
		Probe: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		TTL:          time.Minute,
		ProbeTimeout: 10 * time.Millisecond,
	})

	start := time.Now()
	got := m.Check(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Check blocked %v, probe timeout not applied", elapsed)
	}
	if got != Unavailable {
		t.Errorf("Check = %v, want Unavailable on probe timeout", got)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	m := NewMonitor(Config{
		Probe: func(ctx context.Context) error { return errors.New("boom") },
		TTL:   time.Minute,
	})
	m.Check(context.Background())

	s := m.Status()
	if s.State != "unavailable" {
		t.Errorf("Status.State = %q, want unavailable", s.State)
	}
	if s.LastError == "" {
		t.Error("Status.LastError should carry the probe error")
	}
	if s.LastCheck.IsZero() {
		t.Error("Status.LastCheck should be set")
	}
}

func TestNewMonitor_NilProbePanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("NewMonitor with nil probe should panic")
		}
	}()
	NewMonitor(Config{})
}
