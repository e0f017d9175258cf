// Package events provides the notification bus that carries UI refresh
// signals (provider added, calendar refresh, task board updated, ...)
// from action handlers to whatever transport the front end listens on:
// the WebSocket stream and the optional MQTT fan-out. The bus is
// nil-safe: calling Publish or Notify on a nil *Bus is a no-op, so
// handlers do not need guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceDispatch identifies events from the action dispatcher and
	// its handlers.
	SourceDispatch = "dispatch"
	// SourceCollector identifies events from the event detail collector.
	SourceCollector = "collector"
)

// Kind constants name the notifications the front end reacts to.
const (
	// KindProviderAdded signals a new provider document.
	// Data: providerId.
	KindProviderAdded = "provider-added"
	// KindDirectoryRefresh asks provider directory views to reload.
	KindDirectoryRefresh = "directory-refresh-needed"
	// KindChildDataUpdated signals new child tracking data.
	// Data: childId, dataType (appointment, growth).
	KindChildDataUpdated = "child-data-updated"
	// KindTaskBoardUpdated signals a task was added to the board.
	// Data: taskId, column.
	KindTaskBoardUpdated = "task-board-updated"
	// KindCalendarRefresh asks calendar views to reload.
	// Data: eventId (optional).
	KindCalendarRefresh = "force-calendar-refresh"
	// KindActionCompleted is emitted once per dispatch.
	// Data: kind, success, route, elapsed_ms.
	KindActionCompleted = "action-completed"
)

// Sink receives fire-and-forget notifications. Implementations must not
// block the caller.
type Sink interface {
	Notify(source, kind string, data map[string]any)
}

// Event represents a single notification published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind names the notification.
	Kind string `json:"kind"`
	// Data identifies the affected entity.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs.
	recvToSend map[<-chan Event]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. If a subscriber's channel
// is full, the event is dropped for that subscriber. Safe to call on a
// nil receiver.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Notify implements [Sink].
func (b *Bus) Notify(source, kind string, data map[string]any) {
	b.Publish(Event{Source: source, Kind: kind, Data: data})
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Discard is a Sink that drops every notification.
type Discard struct{}

// Notify implements [Sink].
func (Discard) Notify(string, string, map[string]any) {}
