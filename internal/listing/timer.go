package listing

import (
	"sync"
	"time"
)

// Timer holds at most one pending callback. Scheduling while a callback is
// pending replaces it, so bursts of requests collapse into the last one.
// The zero value is ready to use.
type Timer struct {
	mu      sync.Mutex
	t       *time.Timer
	seq     uint64
	pending bool
}

// Schedule arranges for fn to run after d, replacing any pending callback.
func (t *Timer) Schedule(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t != nil {
		t.t.Stop()
	}
	t.seq++
	seq := t.seq
	t.pending = true
	t.t = time.AfterFunc(d, func() {
		t.mu.Lock()
		// A Stop or reschedule raced with this fire.
		if seq != t.seq || !t.pending {
			t.mu.Unlock()
			return
		}
		t.pending = false
		t.mu.Unlock()
		fn()
	})
}

// Stop cancels the pending callback. It reports whether one was pending.
// A callback that has already fired and passed its check still runs.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	was := t.pending
	t.pending = false
	t.seq++
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	return was
}

// Pending reports whether a callback is waiting to fire.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
