package alerts

import (
	"sync"

	"github.com/faoswatch/faoswatch/listener/internal/tracker"
)

// History keeps the most recent fired alerts, bounded in size.
// History is safe for concurrent use.
type History struct {
	mu     sync.Mutex
	max    int
	events []tracker.AlertEvent // oldest first
}

// NewHistory creates a History holding at most max events.
func NewHistory(max int) *History {
	if max <= 0 {
		max = 1
	}
	return &History{max: max}
}

// Add records ev, dropping the oldest entry when full.
func (h *History) Add(ev tracker.AlertEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	if len(h.events) > h.max {
		h.events = h.events[len(h.events)-h.max:]
	}
}

// Recent returns a copy of the recorded events, newest first.
func (h *History) Recent() []tracker.AlertEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]tracker.AlertEvent, len(h.events))
	for i, ev := range h.events {
		out[len(h.events)-1-i] = ev
	}
	return out
}

// Len returns the number of recorded events.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
