// Package view keeps open views consistent with persisted state by
// re-rendering them on a timer, on demand and after local mutations.
package view

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is how often an open view refreshes itself.
const DefaultInterval = time.Second

// RefreshFunc re-renders a view from current state.
type RefreshFunc func(ctx context.Context)

// Poller calls its refresh function once on start, on every tick and
// whenever Trigger is called. Triggers that arrive while a refresh is
// pending are coalesced.
type Poller struct {
	interval time.Duration
	refresh  RefreshFunc
	trigger  chan struct{}
}

// NewPoller returns a Poller. A nil refresh is a no-op, and a non-positive
// interval is DefaultInterval.
func NewPoller(interval time.Duration, refresh RefreshFunc) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if refresh == nil {
		refresh = func(context.Context) {}
	}
	return &Poller{
		interval: interval,
		refresh:  refresh,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate refresh. It never blocks.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.trigger:
		}
		if ctx.Err() != nil {
			return
		}
		p.refresh(ctx)
	}
}

// Hub routes mutation notices to the pollers watching the same session.
type Hub struct {
	mu      sync.Mutex
	pollers map[string]map[*Poller]struct{}
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{pollers: make(map[string]map[*Poller]struct{})}
}

// Watch registers p for session. The returned function unregisters it.
func (h *Hub) Watch(session string, p *Poller) (unwatch func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.pollers[session]
	if !ok {
		set = make(map[*Poller]struct{})
		h.pollers[session] = set
	}
	set[p] = struct{}{}

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		delete(set, p)
		if len(h.pollers[session]) == 0 {
			delete(h.pollers, session)
		}
	}
}

// Notify triggers every poller watching session.
func (h *Hub) Notify(session string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for p := range h.pollers[session] {
		p.Trigger()
	}
}

// Watchers reports how many pollers watch session.
func (h *Hub) Watchers(session string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pollers[session])
}
