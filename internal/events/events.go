// Package events delivers StreamEvents to interested consumers.
package events

import (
	"sync"

	"github.com/ShayCichocki/kai/pkg/models"
)

// Sink receives stream events. Implementations must be safe for
// concurrent use because plan steps run in parallel.
type Sink interface {
	Emit(event models.StreamEvent)
}

// Emit sends event to sink if sink is non-nil.
func Emit(sink Sink, event models.StreamEvent) {
	if sink != nil {
		sink.Emit(event)
	}
}

// Func adapts a function to a Sink.
type Func func(models.StreamEvent)

func (f Func) Emit(event models.StreamEvent) {
	if f != nil {
		f(event)
	}
}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Emit(event models.StreamEvent) {
	for _, s := range m {
		Emit(s, event)
	}
}

// Recorder keeps every event it receives. Useful in tests and for
// printing a summary after a run.
type Recorder struct {
	mu     sync.Mutex
	events []models.StreamEvent
}

func (r *Recorder) Emit(event models.StreamEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []models.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.StreamEvent(nil), r.events...)
}

// OfType returns recorded events with the given type.
func (r *Recorder) OfType(t models.EventType) []models.StreamEvent {
	var out []models.StreamEvent
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ Sink = Func(nil)
	_ Sink = Multi(nil)
	_ Sink = (*Recorder)(nil)
)
