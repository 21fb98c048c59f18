// Package events defines the observer interface used by the engine to report
// lifecycle events (graph builds, PageRank runs, consolidation passes).
//
// Observers are injected explicitly at construction time. There is no global
// dispatcher: a component that is not given an observer emits nothing.
package events

import "time"

// Well-known event names emitted by the engine.
const (
	GraphBuilt             = "graph:built"
	PageRankComputed       = "pagerank:computed"
	CommunitiesDetected    = "communities:detected"
	ConsolidationCompleted = "consolidation:completed"
)

// Event is a single engine lifecycle notification.
type Event struct {
	// Name identifies the event (see the package constants).
	Name string

	// Timestamp is when the event was emitted.
	Timestamp time.Time

	// Fields carries event-specific payload (counts, durations).
	Fields map[string]interface{}
}

// Observer receives engine events. Implementations must be fast and must not
// block: events are emitted synchronously from engine operations.
type Observer interface {
	Notify(event Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Notify implements Observer.
func (f ObserverFunc) Notify(event Event) { f(event) }

// Nop returns an observer that discards all events.
func Nop() Observer {
	return ObserverFunc(func(Event) {})
}

// Emit constructs an event and delivers it to obs. A nil observer is a no-op,
// so callers never need to guard emission sites.
func Emit(obs Observer, name string, fields map[string]interface{}) {
	if obs == nil {
		return
	}
	obs.Notify(Event{
		Name:      name,
		Timestamp: time.Now(),
		Fields:    fields,
	})
}

// Recorder is an Observer that stores every event it receives. It is intended
// for tests and callers that poll events instead of reacting to them.
//
// Recorder is not safe for concurrent use; the engine is single-writer per
// instance, so this matches the engine's own concurrency contract.
type Recorder struct {
	Events []Event
}

// Notify implements Observer.
func (r *Recorder) Notify(event Event) {
	r.Events = append(r.Events, event)
}

// Named returns all recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
