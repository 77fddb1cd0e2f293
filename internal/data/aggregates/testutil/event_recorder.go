package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/clubops-backend/internal/events"
)

// EventRecorder is an in-memory events.Publisher for aggregate tests.
type EventRecorder struct {
	mu sync.Mutex

	Events   []events.Event
	FailNext error
}

var _ events.Publisher = (*EventRecorder)(nil)

func (r *EventRecorder) Publish(_ context.Context, evts ...events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailNext != nil {
		err := r.FailNext
		r.FailNext = nil
		return err
	}
	r.Events = append(r.Events, evts...)
	return nil
}

func (r *EventRecorder) Close() error { return nil }

// OfType returns the recorded events with the given type, in publish order.
func (r *EventRecorder) OfType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.Events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
