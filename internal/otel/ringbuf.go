package otel

import (
	"maps"
	"strings"
	"sync"
	"time"
)

// DefaultRingSize is the capacity used when NewRingBuffer gets a size <= 0.
const DefaultRingSize = 1024

// Filter selects buffered events. Zero fields match everything.
type Filter struct {
	Comp       string    // exact component, e.g. "listing:variants"
	Endpoint   string    // exact catalog endpoint
	KindPrefix string    // e.g. "fetch." or "window"
	Since      time.Time // events at or after this time
}

// Match reports whether e passes every set field of f.
func (f Filter) Match(e Event) bool {
	switch {
	case f.Comp != "" && e.Comp != f.Comp:
		return false
	case f.Endpoint != "" && e.Endpoint != f.Endpoint:
		return false
	case f.KindPrefix != "" && !strings.HasPrefix(string(e.Kind), f.KindPrefix):
		return false
	case !f.Since.IsZero() && e.Time.Before(f.Since):
		return false
	}
	return true
}

// RingBuffer keeps the most recent events in memory for the debug overlay.
// Safe for concurrent use.
type RingBuffer struct {
	mu   sync.Mutex
	buf  []Event
	next int  // slot for the next Push
	full bool // buf has wrapped at least once
}

// NewRingBuffer creates a ring buffer holding up to size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{buf: make([]Event, size)}
}

// Push stores e, evicting the oldest event when full. Extra is copied so the
// caller may keep mutating its map.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		e.Extra = maps.Clone(e.Extra)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = e
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// ordered returns the buffered events oldest first. Caller holds mu.
func (r *RingBuffer) ordered() []Event {
	if !r.full {
		return append([]Event(nil), r.buf[:r.next]...)
	}
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Snapshot returns a copy of every buffered event, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lenLocked() == 0 {
		return nil
	}
	return r.ordered()
}

// Last returns up to n of the newest events, oldest first.
func (r *RingBuffer) Last(n int) []Event {
	return r.Find(Filter{}, n)
}

// Find returns up to n of the newest events matching f, oldest first.
func (r *RingBuffer) Find(f Filter, n int) []Event {
	if n <= 0 {
		return nil
	}
	all := r.Snapshot()

	var out []Event
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		if f.Match(all[i]) {
			out = append(out, all[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Len returns the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

func (r *RingBuffer) lenLocked() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.buf)
}

// Stats counts buffered events by kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	for i := 0; i < r.lenLocked(); i++ {
		counts[r.buf[i].Kind]++
	}
	return counts
}
