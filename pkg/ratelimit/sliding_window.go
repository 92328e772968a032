// Package ratelimit implements per-client admission control for incoming requests.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults used when a zero Config value is passed to New.
const (
	DefaultLimit  = 10
	DefaultWindow = time.Second
)

// Config configures a SlidingWindow.
type Config struct {
	// Limit is the number of requests a client may make inside one window.
	Limit int

	// Window is the length of the trailing interval requests are counted over.
	Window time.Duration

	// Now returns the current time. Defaults to time.Now; tests replace it.
	Now func() time.Time
}

// SlidingWindow admits at most Limit requests per client in any trailing Window.
//
// The window moves with the clock, so a burst straddling a second boundary is
// still bounded, unlike a fixed bucket that resets on the boundary.
//
// Thread safety:
// All state sits behind mu. Admit holds it across prune, check and append.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time
}

// New creates a SlidingWindow. Zero fields in cfg take the package defaults.
func New(cfg Config) *SlidingWindow {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &SlidingWindow{
		limit:   cfg.Limit,
		window:  cfg.Window,
		now:     cfg.Now,
		clients: make(map[string][]time.Time),
	}
}

// Admit reports whether client may make a request now.
//
// Timestamps older than the window are dropped first. If fewer than Limit
// remain, now is recorded and the request admitted. A denied request is not
// recorded, so hammering the server does not extend a client's penalty.
func (l *SlidingWindow) Admit(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := prune(l.clients[client], now, l.window)

	if len(recent) >= l.limit {
		l.clients[client] = recent
		return false
	}

	l.clients[client] = append(recent, now)
	return true
}

// Sweep forgets clients with no admissions inside the current window.
// Returns the number of clients removed.
func (l *SlidingWindow) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for client, stamps := range l.clients {
		recent := prune(stamps, now, l.window)
		if len(recent) == 0 {
			delete(l.clients, client)
			removed++
			continue
		}
		l.clients[client] = recent
	}
	return removed
}

// Clients returns the number of clients currently tracked.
func (l *SlidingWindow) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Limit returns the configured per-window threshold.
func (l *SlidingWindow) Limit() int {
	return l.limit
}

// Window returns the configured window length.
func (l *SlidingWindow) Window() time.Duration {
	return l.window
}

// prune drops timestamps at least window old. Timestamps are appended in
// order, so everything before the first recent one is stale.
func prune(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	for i, ts := range stamps {
		if now.Sub(ts) < window {
			return stamps[i:]
		}
	}
	return stamps[:0]
}
