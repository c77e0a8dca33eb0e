// Package memory provides the capturing instrumenter used as a test
// double: events are recorded in order and can be inspected afterwards.
package memory

import (
	"sync"

	"github.com/larouxn/flipper"
)

var _ flipper.Instrumenter = (*Instrumenter)(nil)

// Event is one recorded instrumentation call.
type Event struct {
	Name    string
	Payload map[string]any
}

// Instrumenter records every event in order. Safe for concurrent use.
type Instrumenter struct {
	mu     sync.Mutex
	events []Event
}

// New returns an empty capturing instrumenter.
func New() *Instrumenter {
	return &Instrumenter{}
}

// Instrument implements flipper.Instrumenter.
func (i *Instrumenter) Instrument(name string, payload map[string]any) {
	copied := make(map[string]any, len(payload))
	for k, v := range payload {
		copied[k] = v
	}

	i.mu.Lock()
	i.events = append(i.events, Event{Name: name, Payload: copied})
	i.mu.Unlock()
}

// Events returns a snapshot of everything recorded so far.
func (i *Instrumenter) Events() []Event {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]Event, len(i.events))
	copy(out, i.events)
	return out
}

// Last returns the most recent event, if any.
func (i *Instrumenter) Last() (Event, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.events) == 0 {
		return Event{}, false
	}
	return i.events[len(i.events)-1], true
}

// Reset drops everything recorded.
func (i *Instrumenter) Reset() {
	i.mu.Lock()
	i.events = nil
	i.mu.Unlock()
}
