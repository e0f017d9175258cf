// Package dispatch routes a chat message to one action handler and
// turns whatever happens on the way into exactly one [action.Result].
//
// Routing runs the direct phrase rules first, then the intent
// classifier, then a looser re-check of the direct rules. Handlers
// extract an entity, write it to the document store, emit UI refresh
// notifications and compose the reply. Every outcome is recorded in the
// learning ledger and in a bounded in-memory audit log.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/classify"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/eventcollect"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/events"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/extract"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/family"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/identity"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/ledger"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/tasks"
)

// User-facing messages for outcomes that no handler produced.
const (
	msgEmpty        = "I need more information to process your request."
	msgUnsure       = "I'm not sure what you'd like me to do. Could you please be more specific?"
	msgNoHandler    = "I understand what you want to do, but I don't yet have the capability to handle that action. We're continuously improving!"
	msgProcessError = "I encountered an error while processing your request. Please try again or provide more details."
	msgNoFamily     = "I'm having trouble accessing your family information. Please try again or reload the page."
)

// Recorder stores dispatch outcomes. [*ledger.Store] implements it.
type Recorder interface {
	Record(ctx context.Context, o ledger.Outcome) error
}

// ActionContext is the identity one dispatch runs under. It is built
// fresh for every call and never shared between calls.
type ActionContext struct {
	UserID   string
	FamilyID string
}

// Handler runs one action.
type Handler func(ctx context.Context, message string, ac ActionContext) action.Result

// Options wires a Dispatcher. Identity, Classifier, Extractor and Docs
// are required; the rest may be left zero.
type Options struct {
	Identity   identity.Store
	Classifier *classify.Classifier
	Extractor  *extract.Extractor
	Docs       docstore.Documents

	// Board enables the task handlers, Collector the event handler.
	Board     *tasks.Board
	Collector *eventcollect.Collector

	Ledger Recorder
	Sink   events.Sink

	// Guard suppresses the classifier's calendar detection while a
	// direct match is handled, for at most GuardWindow.
	Guard       *classify.Guard
	GuardWindow time.Duration

	// RejectUnresolved fails dispatches whose family or user id came
	// from the configured fallback instead of degrading to it.
	RejectUnresolved bool

	// AuditSize bounds the in-memory decision log. Default 1000.
	AuditSize int
}

// Dispatcher routes messages to handlers. It is safe for concurrent use.
type Dispatcher struct {
	identity   identity.Store
	classifier *classify.Classifier
	extractor  *extract.Extractor
	docs       docstore.Documents
	roster     *family.Roster
	board      *tasks.Board
	collector  *eventcollect.Collector
	ledger     Recorder
	sink       events.Sink

	guard       *classify.Guard
	guardWindow time.Duration
	reject      bool

	handlers map[action.Kind]entry
	audit    *auditLog
	logger   *slog.Logger
}

// New creates a dispatcher.
func New(opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	sink := opts.Sink
	if sink == nil {
		sink = events.Discard{}
	}
	window := opts.GuardWindow
	if window <= 0 {
		window = 5 * time.Second
	}
	d := &Dispatcher{
		identity:    opts.Identity,
		classifier:  opts.Classifier,
		extractor:   opts.Extractor,
		docs:        opts.Docs,
		roster:      family.NewRoster(opts.Docs),
		board:       opts.Board,
		collector:   opts.Collector,
		ledger:      opts.Ledger,
		sink:        sink,
		guard:       opts.Guard,
		guardWindow: window,
		reject:      opts.RejectUnresolved,
		audit:       newAuditLog(opts.AuditSize),
		logger:      logger.With("component", "dispatch"),
	}
	d.handlers = d.register()
	return d
}

// Dispatch handles one chat message. Explicit familyID and userID win
// over the remembered identity. It never panics and never returns an
// error: every failure becomes a failed Result.
func (d *Dispatcher) Dispatch(ctx context.Context, message, familyID, userID string) (result action.Result) {
	start := time.Now()
	dec := Decision{
		RequestID:     newRequestID(),
		Timestamp:     start,
		Route:         RouteNone,
		MessageLength: len(message),
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch panic",
				"request_id", dec.RequestID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			result = action.Fail(msgProcessError, fmt.Sprint(r))
		}
		dec.Success = result.OK()
		dec.LatencyMs = time.Since(start).Milliseconds()
		d.audit.record(dec)
		d.sink.Notify(events.SourceDispatch, events.KindActionCompleted, map[string]any{
			"kind":       string(dec.Kind),
			"success":    dec.Success,
			"route":      string(dec.Route),
			"elapsed_ms": dec.LatencyMs,
		})
		d.logger.Info("action dispatched",
			"request_id", dec.RequestID,
			"kind", dec.Kind,
			"route", dec.Route,
			"success", dec.Success,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
	}()

	res := d.identity.Resolve(ctx, userID, familyID)
	dec.UserSource, dec.FamilySource = res.UserSource, res.FamilySource
	if err := res.Err(); err != nil {
		if d.reject {
			d.logger.Warn("dispatch rejected", "request_id", dec.RequestID, "identity_unresolved", true, "error", err)
			return action.Fail(msgNoFamily, err.Error())
		}
		d.logger.Warn("dispatching with fallback identity",
			"request_id", dec.RequestID,
			"identity_unresolved", true,
			"user_source", res.UserSource,
			"family_source", res.FamilySource,
		)
	}

	if strings.TrimSpace(message) == "" {
		return action.Fail(msgEmpty, "empty message")
	}
	ac := ActionContext{UserID: res.UserID, FamilyID: res.FamilyID}

	kind, route, via := d.route(ctx, message)
	dec.Route, dec.Via = route, via
	if route == RouteNone {
		return action.Fail(msgUnsure, "no intent recognised")
	}
	dec.Kind = kind
	d.audit.countKind(kind)

	e, ok := d.handlers[kind]
	if !ok {
		d.logger.Info("no handler for action", "kind", kind)
		return action.Fail(msgNoHandler, "no handler for "+string(kind))
	}

	if route == RouteDirect || route == RouteRecheck {
		release := d.guard.Hold(d.guardWindow)
		defer release()
	}
	result = d.invoke(ctx, kind, e.run, message, ac)
	d.audit.countOutcome(result.OK())
	d.record(ctx, kind, message, result)
	return result
}

// route picks the action kind for message.
func (d *Dispatcher) route(ctx context.Context, message string) (action.Kind, Route, string) {
	if k, ok := classify.MatchDirect(message); ok {
		return k, RouteDirect, ""
	}
	c := d.classifier.Classify(ctx, message)
	if c.OK {
		if c.Via == classify.ViaKeyword {
			return c.Kind, RouteKeyword, c.Via
		}
		return c.Kind, RouteClassifier, c.Via
	}
	if k, ok := classify.Recheck(message); ok {
		return k, RouteRecheck, c.Via
	}
	return "", RouteNone, c.Via
}

// Classify reports where message would be routed without running a
// handler.
func (d *Dispatcher) Classify(ctx context.Context, message string) (action.Kind, Route) {
	if strings.TrimSpace(message) == "" {
		return "", RouteNone
	}
	k, route, _ := d.route(ctx, message)
	return k, route
}

func (d *Dispatcher) invoke(ctx context.Context, kind action.Kind, h Handler, message string, ac ActionContext) (res action.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic",
				"kind", kind,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = action.Fail(msgProcessError, fmt.Sprint(r))
		}
	}()
	return h(ctx, message, ac)
}

// record writes the outcome to the ledger. Ledger failures never reach
// the caller.
func (d *Dispatcher) record(ctx context.Context, kind action.Kind, message string, res action.Result) {
	if d.ledger == nil {
		return
	}
	o := ledger.Outcome{
		Kind:    string(kind),
		Message: message,
		Success: res.OK(),
		Error:   res.Detail(),
		Detail:  map[string]any{"entityCount": entityCount(res.Data())},
	}
	if err := d.ledger.Record(ctx, o); err != nil {
		d.logger.Warn("ledger record failed", "kind", kind, "error", err)
	}
}

func entityCount(data any) int {
	switch v := data.(type) {
	case nil:
		return 0
	case map[string]any:
		return len(v)
	}
	return 1
}
