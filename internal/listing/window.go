package listing

import (
	"sync"
	"time"
)

// WindowConfig sizes the revealed prefix and paces its growth.
type WindowConfig struct {
	Initial int           // visible rows after a reset
	Step    int           // rows revealed per expansion
	Quiet   time.Duration // debounce interval for expand requests
	Latency time.Duration // delay between starting and finishing an expansion
}

// DefaultWindowConfig returns the sizes used by the TUI.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Initial: 10,
		Step:    10,
		Quiet:   250 * time.Millisecond,
		Latency: 400 * time.Millisecond,
	}
}

func (c WindowConfig) withDefaults() WindowConfig {
	d := DefaultWindowConfig()
	if c.Initial <= 0 {
		c.Initial = d.Initial
	}
	if c.Step <= 0 {
		c.Step = d.Step
	}
	if c.Quiet < 0 {
		c.Quiet = 0
	}
	if c.Latency < 0 {
		c.Latency = 0
	}
	return c
}

// WindowState is the revealed prefix of the installed ResultSet.
type WindowState struct {
	Visible   int
	Expanding bool
}

// Window reveals a growing prefix of a fully fetched result set.
//
// Expansion is purely client side: nothing here touches the network, so
// load-more cannot fail. Expand requests are debounced through a single
// pending Timer; a burst of requests produces one expansion.
//
// onChange is invoked from timer goroutines with no Window lock held. Reset
// never invokes it; the caller that resets already knows the new state.
type Window struct {
	cfg      WindowConfig
	onChange func(WindowState)

	debounce Timer

	mu         sync.Mutex
	state      WindowState
	total      int
	revealing  bool
	expansions int
	closed     bool
}

// NewWindow creates a window sized for an empty result set.
func NewWindow(cfg WindowConfig, onChange func(WindowState)) *Window {
	cfg = cfg.withDefaults()
	return &Window{
		cfg:      cfg,
		onChange: onChange,
		state:    WindowState{Visible: cfg.Initial},
	}
}

// Config returns the effective configuration.
func (w *Window) Config() WindowConfig {
	return w.cfg
}

// Reset installs a new result set length and shrinks the window back to its
// initial size. A debounced request still waiting out its quiet interval is
// dropped. One whose timer has already fired cannot be recalled: it expands
// the new result set, capped by its length.
func (w *Window) Reset(total int) {
	w.debounce.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = WindowState{Visible: w.cfg.Initial}
	w.total = total
}

// RequestExpand asks for more rows. It reports whether a request was
// scheduled; false means an expansion is running or nothing is left to show.
func (w *Window) RequestExpand() bool {
	w.mu.Lock()
	ok := !w.closed && !w.state.Expanding && !w.revealing && w.state.Visible < w.total
	w.mu.Unlock()
	if !ok {
		return false
	}
	w.debounce.Schedule(w.cfg.Quiet, w.begin)
	return true
}

// begin runs once the quiet interval has elapsed.
func (w *Window) begin() {
	w.mu.Lock()
	if w.closed || w.state.Expanding || w.revealing || w.state.Visible >= w.total {
		w.mu.Unlock()
		return
	}
	w.state.Expanding = true
	w.revealing = true
	st := w.state
	w.mu.Unlock()

	w.notify(st)
	time.AfterFunc(w.cfg.Latency, w.reveal)
}

// reveal finishes an expansion. Once begun it always applies, capped by the
// length of whatever result set is installed at that moment.
func (w *Window) reveal() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	next := w.state.Visible + w.cfg.Step
	if next > w.total {
		next = w.total
	}
	if next > w.state.Visible {
		w.state.Visible = next
	}
	w.state.Expanding = false
	w.revealing = false
	w.expansions++
	st := w.state
	w.mu.Unlock()

	w.notify(st)
}

func (w *Window) notify(st WindowState) {
	if w.onChange != nil {
		w.onChange(st)
	}
}

// State returns the current window state.
func (w *Window) State() WindowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Expansions returns how many expansions have completed.
func (w *Window) Expansions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expansions
}

// Close stops pending timers. Later requests are ignored.
func (w *Window) Close() {
	w.debounce.Stop()
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// VisibleSlice returns the first min(ws.Visible, rs.Len()) items of rs.
func VisibleSlice(rs ResultSet, ws WindowState) []ListItem {
	n := ws.Visible
	if n > rs.Len() {
		n = rs.Len()
	}
	if n < 0 {
		n = 0
	}
	out := make([]ListItem, n)
	copy(out, rs.items[:n])
	return out
}
