// Package livefeed relays assessment progress events from the backend to
// dashboard clients watching a run. Events are fan-out only; nothing is
// persisted, a client that connects late sees only what arrives after it.
package livefeed

import (
	"sync"
)

// Event is one progress update for an assessment run. Status values
// "completed" and "error" are terminal.
type Event struct {
	Stage     string `json:"stage"`
	Message   string `json:"message,omitempty"`
	TokensIn  int    `json:"tokens_in,omitempty"`
	TokensOut int    `json:"tokens_out,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Terminal reports whether the event ends the run's feed.
func (e Event) Terminal() bool {
	return e.Status == "completed" || e.Status == "error"
}

// Hub routes events to the subscribers of each run.
type Hub struct {
	mu   sync.Mutex
	runs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{runs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener for a run's events. The returned channel
// is closed when the run reaches a terminal event; cancel detaches early
// (a client navigating away) and is safe to call after the close.
func (h *Hub) Subscribe(runID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	subs, ok := h.runs[runID]
	if !ok {
		subs = make(map[chan Event]struct{})
		h.runs[runID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.runs[runID]; ok {
			if _, live := subs[ch]; live {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(h.runs, runID)
				}
			}
		}
	}
	return ch, cancel
}

// Publish delivers an event to the run's subscribers. Sends never block: a
// subscriber whose buffer is full misses the event. Terminal events close
// every subscription and drop the run.
func (h *Hub) Publish(runID string, e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.runs[runID]
	for ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}

	if e.Terminal() && subs != nil {
		for ch := range subs {
			close(ch)
		}
		delete(h.runs, runID)
	}
}

// Subscribers reports how many listeners a run currently has.
func (h *Hub) Subscribers(runID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs[runID])
}
