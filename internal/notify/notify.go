// Package notify publishes graph lifecycle events to external observers.
package notify

import (
	"context"
	"slices"
	"sync"
	"time"
)

// EventType names a lifecycle event.
type EventType string

const (
	GraphCompiled EventType = "graph_compiled"
	RunStarted    EventType = "run_started"
	RunFinished   EventType = "run_finished"
	RunFailed     EventType = "run_failed"
)

// Event is one lifecycle notification.
type Event struct {
	Type       EventType
	Graph      string
	Iteration  int
	Dispatches int
	Err        error
	Time       time.Time
}

// Payload is the wire form of an event.
func (e Event) Payload() map[string]any {
	p := map[string]any{
		"graph":      e.Graph,
		"iteration":  e.Iteration,
		"dispatches": e.Dispatches,
		"time":       e.Time.UTC().Format(time.RFC3339Nano),
	}
	if e.Err != nil {
		p["error"] = e.Err.Error()
	}
	return p
}

// Notifier delivers events. Notify must not block the caller for long and
// never fails the run; delivery problems are logged by the implementation.
type Notifier interface {
	Notify(ctx context.Context, e Event)
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
func (Nop) Close() error                  { return nil }

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *Recorder) Notify(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
