package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/identity"
)

// Route names the stage that picked an action kind.
type Route string

const (
	RouteDirect     Route = "direct"
	RouteClassifier Route = "classifier"
	RouteKeyword    Route = "fallback-keyword"
	RouteRecheck    Route = "direct-recheck"
	RouteNone       Route = "none"
)

// Decision records how one dispatch was routed and how it ended.
type Decision struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`

	// Input
	MessageLength int             `json:"message_length"`
	UserSource    identity.Source `json:"user_source,omitempty"`
	FamilySource  identity.Source `json:"family_source,omitempty"`

	// Routing
	Kind  action.Kind `json:"kind,omitempty"`
	Route Route       `json:"route"`
	Via   string      `json:"via,omitempty"`

	// Outcome
	Success   bool  `json:"success"`
	LatencyMs int64 `json:"latency_ms"`
}

// Statistics are the dispatcher's in-memory counters since start or the
// last reset.
type Statistics struct {
	TotalRequests     int            `json:"totalRequests"`
	SuccessfulActions int            `json:"successfulActions"`
	FailedActions     int            `json:"failedActions"`
	ActionTypeCount   map[string]int `json:"actionTypeCount"`
	SuccessRate       string         `json:"successRate"`
}

type auditLog struct {
	mu      sync.RWMutex
	max     int
	entries []Decision

	total     int
	succeeded int
	failed    int
	byKind    map[string]int
}

func newAuditLog(max int) *auditLog {
	if max <= 0 {
		max = 1000
	}
	return &auditLog{
		max:     max,
		entries: make([]Decision, 0, max),
		byKind:  make(map[string]int),
	}
}

// record appends a decision and counts the request.
func (a *auditLog) record(d Decision) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Trim if over capacity
	if len(a.entries) >= a.max {
		a.entries = a.entries[1:]
	}
	a.entries = append(a.entries, d)
	a.total++
}

func (a *auditLog) countKind(k action.Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byKind[string(k)]++
}

// countOutcome counts handler results. Requests that never reached a
// handler count toward the total only.
func (a *auditLog) countOutcome(ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ok {
		a.succeeded++
	} else {
		a.failed++
	}
}

func (a *auditLog) stats() Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Statistics{
		TotalRequests:     a.total,
		SuccessfulActions: a.succeeded,
		FailedActions:     a.failed,
		ActionTypeCount:   make(map[string]int, len(a.byKind)),
		SuccessRate:       "0%",
	}
	for k, n := range a.byKind {
		s.ActionTypeCount[k] = n
	}
	if a.total > 0 {
		s.SuccessRate = fmt.Sprintf("%.2f%%", float64(a.succeeded)/float64(a.total)*100)
	}
	return s
}

func (a *auditLog) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total, a.succeeded, a.failed = 0, 0, 0
	a.byKind = make(map[string]int)
}

func (a *auditLog) recent(limit int) []Decision {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if limit <= 0 || limit > len(a.entries) {
		limit = len(a.entries)
	}

	// Return most recent
	start := len(a.entries) - limit
	out := make([]Decision, limit)
	copy(out, a.entries[start:])
	return out
}

func (a *auditLog) find(requestID string) (Decision, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].RequestID == requestID {
			return a.entries[i], true
		}
	}
	return Decision{}, false
}

// Statistics returns the current counters.
func (d *Dispatcher) Statistics() Statistics { return d.audit.stats() }

// ResetStats zeroes the counters. The decision log is kept.
func (d *Dispatcher) ResetStats() {
	d.audit.reset()
	d.logger.Info("dispatch statistics reset")
}

// AuditLog returns up to limit recent decisions, oldest first. A limit
// of zero or less returns all of them.
func (d *Dispatcher) AuditLog(limit int) []Decision { return d.audit.recent(limit) }

// Explain returns the decision recorded for requestID.
func (d *Dispatcher) Explain(requestID string) (Decision, bool) { return d.audit.find(requestID) }

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return time.Now().Format("20060102-150405.000000")
	}
	return id.String()
}
