// Package connstate tracks language-model backend reachability with a
// cache-with-expiry probe policy.
//
// Connectivity is a process-wide fact: one Monitor is shared by every
// conversation in the process. A probe result (success or failure) is
// trusted for a short TTL before the next call re-probes, so a busy
// conversation does not pay a network round trip on every turn while
// recovery is still noticed within seconds.
package connstate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the backend connection state.
type State int

const (
	// Unknown means no probe has run yet.
	Unknown State = iota

	// Connected means the most recent probe succeeded.
	Connected

	// Unavailable means the most recent probe or completion failed.
	Unavailable
)

// String returns the lowercase state name for logging and health output.
func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ProbeFunc checks whether the backend is reachable. Return nil if healthy.
type ProbeFunc func(ctx context.Context) error

// Monitor caches backend reachability. Safe for concurrent use; reads
// and writes of the shared state are serialized under one mutex so a
// probe and a concurrent completion never observe half-updated state.
type Monitor struct {
	probe        ProbeFunc
	ttl          time.Duration
	probeTimeout time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	state     State
	lastErr   error
	lastCheck time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// Config configures a Monitor.
type Config struct {
	// Probe checks backend health. Required.
	Probe ProbeFunc

	// TTL is how long a probe result is trusted (default 5s).
	TTL time.Duration

	// ProbeTimeout bounds each individual probe call (default 5s).
	ProbeTimeout time.Duration

	// Logger for state-transition logging. Uses slog.Default() if nil.
	Logger *slog.Logger
}

// NewMonitor creates a backend connectivity monitor.
// Panics if cfg.Probe is nil — that is a programming error best caught
// during development rather than silently ignored at runtime.
func NewMonitor(cfg Config) *Monitor {
	if cfg.Probe == nil {
		panic("connstate: Config.Probe must not be nil")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Monitor{
		probe:        cfg.Probe,
		ttl:          cfg.TTL,
		probeTimeout: cfg.ProbeTimeout,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}

// Check returns the current state, re-probing only when the cached
// result has expired. It never returns an error: probe failures become
// the Unavailable state.
func (m *Monitor) Check(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Unknown && m.now().Sub(m.lastCheck) < m.ttl {
		return m.state
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.probe(probeCtx)
	cancel()

	m.record(err)
	return m.state
}

// ReportFailure records a failed completion attempt, forcing the state
// to Unavailable until a later probe succeeds. Completion failures are
// fresher evidence than any cached probe result.
func (m *Monitor) ReportFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(err)
}

// State returns the cached state without probing.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent probe or completion error, or nil.
func (m *Monitor) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Status is a copy-safe snapshot for health endpoints.
type Status struct {
	State     string    `json:"state"`
	LastCheck time.Time `json:"last_check"`
	LastError string    `json:"last_error,omitempty"`
}

// Status returns the current connectivity snapshot.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		State:     m.state.String(),
		LastCheck: m.lastCheck,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// record stores a probe outcome. Caller holds m.mu.
func (m *Monitor) record(err error) {
	prev := m.state
	if err == nil {
		m.state = Connected
	} else {
		m.state = Unavailable
	}
	m.lastErr = err
	m.lastCheck = m.now()

	switch {
	case prev != Connected && m.state == Connected:
		m.logger.Info("backend reachable")
	case prev == Connected && m.state == Unavailable:
		m.logger.Info("backend became unreachable", "error", err)
	case prev != Connected && m.state == Unavailable:
		m.logger.Debug("backend still unreachable", "error", err)
	}
}
