package dispatch

import (
	"context"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
)

type entry struct {
	run  Handler
	stub bool
}

// register builds the handler table. Catalog kinds without a handler
// get a stub; kinds whose collaborator is not configured get nothing
// and dispatch to the "no capability" reply.
func (d *Dispatcher) register() map[action.Kind]entry {
	m := make(map[action.Kind]entry, len(action.Kinds()))
	for _, k := range action.Kinds() {
		if h, ok := d.handlerFor(k); ok {
			if h != nil {
				m[k] = entry{run: h}
			}
			continue
		}
		m[k] = entry{run: stub(k), stub: true}
	}
	return m
}

// handlerFor returns the handler for k. ok is false for kinds that are
// not built yet; h is nil when k is built but unavailable in this
// configuration.
func (d *Dispatcher) handlerFor(k action.Kind) (h Handler, ok bool) {
	switch k {
	case action.AddProvider:
		return d.addProvider, true
	case action.AddAppointment:
		return d.addAppointment, true
	case action.TrackGrowth:
		return d.trackGrowth, true
	case action.QueryProviders:
		return d.queryProviders, true
	case action.QueryCalendar:
		return d.queryCalendar, true
	case action.AddTask:
		if d.board == nil {
			return nil, true
		}
		return d.addTask, true
	case action.QueryTasks:
		if d.board == nil {
			return nil, true
		}
		return d.queryTasks, true
	case action.AddEvent:
		if d.collector == nil {
			return nil, true
		}
		return d.addEvent, true
	}
	return nil, false
}

func stub(k action.Kind) Handler {
	msg := "Not implemented yet - " + k.Label() + " functionality coming soon!"
	return func(context.Context, string, ActionContext) action.Result {
		return action.Fail(msg, "handler not implemented")
	}
}

// Diagnostic describes the handler state of one action kind.
type Diagnostic struct {
	Implemented   bool `json:"implemented"`
	HandlerExists bool `json:"handlerExists"`
}

// Diagnostics reports, for every catalog kind, whether a handler is
// registered and whether it is more than a stub.
func (d *Dispatcher) Diagnostics() map[action.Kind]Diagnostic {
	out := make(map[action.Kind]Diagnostic, len(action.Kinds()))
	for _, k := range action.Kinds() {
		e, ok := d.handlers[k]
		out[k] = Diagnostic{Implemented: ok && !e.stub, HandlerExists: ok}
	}
	return out
}
