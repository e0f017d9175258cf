// Package backendwatch tracks whether the completion backends the
// classifier and extractor depend on are reachable.
//
// A Monitor pings each backend on its own goroutine: quickly with a
// growing delay until the first success, then at a steady interval.
// Reachability changes are logged and published to the event bus so
// the front end can warn that actions will fall back to keyword
// routing. Dispatch never waits on a monitor; a down backend simply
// shows up in /health.
package backendwatch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/events"
)

// Event names published on reachability changes.
const (
	// SourceBackendWatch identifies events from this package.
	SourceBackendWatch = "backendwatch"
	// KindBackendUp is published when a backend becomes reachable.
	// Data: backend.
	KindBackendUp = "backend-up"
	// KindBackendDown is published when a reachable backend stops
	// answering. Data: backend, error.
	KindBackendDown = "backend-down"
)

// Ping checks whether a backend is reachable. Return nil if healthy.
type Ping func(ctx context.Context) error

// Schedule controls ping timing.
type Schedule struct {
	// Initial is the delay after the first failed startup ping.
	Initial time.Duration
	// Max caps the startup delay growth.
	Max time.Duration
	// Factor scales the delay after each failed startup ping.
	Factor float64
	// StartupAttempts bounds the fast phase. After that, or after the
	// first success, pings run every Interval.
	StartupAttempts int
	Interval        time.Duration
	// Timeout bounds a single ping.
	Timeout time.Duration
}

// DefaultSchedule pings at 2s, 4s, 8s ... capped at 60s for up to 10
// startup attempts, then once a minute.
func DefaultSchedule() Schedule {
	return Schedule{
		Initial:         2 * time.Second,
		Max:             60 * time.Second,
		Factor:          2.0,
		StartupAttempts: 10,
		Interval:        60 * time.Second,
		Timeout:         10 * time.Second,
	}
}

// withDefaults replaces zero fields with DefaultSchedule values.
func (s Schedule) withDefaults() Schedule {
	d := DefaultSchedule()
	if s.Initial <= 0 {
		s.Initial = d.Initial
	}
	if s.Max <= 0 {
		s.Max = d.Max
	}
	if s.Factor <= 1 {
		s.Factor = d.Factor
	}
	if s.StartupAttempts <= 0 {
		s.StartupAttempts = d.StartupAttempts
	}
	if s.Interval <= 0 {
		s.Interval = d.Interval
	}
	if s.Timeout <= 0 {
		s.Timeout = d.Timeout
	}
	return s
}

// Status is one backend's last known state.
type Status struct {
	Backend   string    `json:"backend"`
	Reachable bool      `json:"reachable"`
	LastCheck time.Time `json:"lastCheck,omitzero"`
	LastError string    `json:"lastError,omitempty"`
}

type backend struct {
	name  string
	ping  Ping
	sched Schedule

	mu        sync.Mutex
	reachable bool
	lastCheck time.Time
	lastErr   error
}

func (b *backend) status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := Status{Backend: b.name, Reachable: b.reachable, LastCheck: b.lastCheck}
	if b.lastErr != nil {
		st.LastError = b.lastErr.Error()
	}
	return st
}

// Monitor watches a set of backends. The zero value is not usable;
// call [NewMonitor]. A nil *Monitor reports no backends.
type Monitor struct {
	sink   events.Sink
	logger *slog.Logger

	mu       sync.Mutex
	backends map[string]*backend
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	ctx      context.Context
}

// NewMonitor creates a monitor that publishes reachability changes to
// sink. sink may be nil.
func NewMonitor(ctx context.Context, sink events.Sink, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Monitor{
		sink:     sink,
		logger:   logger.With("component", "backendwatch"),
		backends: make(map[string]*backend),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Watch starts probing a backend. Watching a name twice is a no-op.
func (m *Monitor) Watch(name string, ping Ping, sched Schedule) {
	if name == "" || ping == nil {
		panic("backendwatch: Watch requires a name and a ping")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.backends[name]; ok {
		return
	}
	b := &backend{name: name, ping: ping, sched: sched.withDefaults()}
	m.backends[name] = b

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(m.ctx, b)
	}()
}

// Status returns every watched backend, sorted by name.
func (m *Monitor) Status() []Status {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	out := make([]Status, 0, len(m.backends))
	for _, b := range m.backends {
		out = append(out, b.status())
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Backend < out[j].Backend })
	return out
}

// Healthy reports whether every watched backend is reachable.
func (m *Monitor) Healthy() bool {
	for _, st := range m.Status() {
		if !st.Reachable {
			return false
		}
	}
	return true
}

// Stop cancels all pings and waits for them to exit.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context, b *backend) {
	sched := b.sched

	delay := sched.Initial
	for attempt := 1; attempt <= sched.StartupAttempts; attempt++ {
		if m.check(ctx, b) {
			break
		}
		if attempt == sched.StartupAttempts {
			m.logger.Info("backend unreachable at startup, polling in background",
				"backend", b.name, "attempts", attempt)
			break
		}
		if !sleep(ctx, delay) {
			return
		}
		delay = min(time.Duration(float64(delay)*sched.Factor), sched.Max)
	}

	ticker := time.NewTicker(sched.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx, b)
		}
	}
}

// check runs one ping, records it and publishes a transition. It
// reports whether the backend is reachable.
func (m *Monitor) check(ctx context.Context, b *backend) bool {
	pingCtx, cancel := context.WithTimeout(ctx, b.sched.Timeout)
	err := b.ping(pingCtx)
	cancel()
	if ctx.Err() != nil {
		return false
	}

	b.mu.Lock()
	was := b.reachable
	b.reachable = err == nil
	b.lastCheck = time.Now()
	b.lastErr = err
	b.mu.Unlock()

	switch {
	case err == nil && !was:
		m.logger.Info("backend reachable", "backend", b.name)
		m.notify(KindBackendUp, map[string]any{"backend": b.name})
	case err != nil && was:
		m.logger.Warn("backend unreachable", "backend", b.name, "error", err)
		m.notify(KindBackendDown, map[string]any{"backend": b.name, "error": err.Error()})
	case err != nil:
		m.logger.Debug("backend still unreachable", "backend", b.name, "error", err)
	}
	return err == nil
}

func (m *Monitor) notify(kind string, data map[string]any) {
	if m.sink != nil {
		m.sink.Notify(SourceBackendWatch, kind, data)
	}
}

// sleep waits for d or until ctx is cancelled. Returns false if cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
