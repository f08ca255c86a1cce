// Package listing implements the filtered-listing controller shared by every
// catalog screen.
//
// A Controller owns one filter state, fetches matching records through an
// Orchestrator, normalizes them into a keyed ResultSet, and reveals that set
// through a debounced Window. Views read a Presentation, either by polling
// CurrentState or by consuming the Subscribe channel.
//
// # Concurrency
//
// Controllers are safe for concurrent use. All state lives behind one mutex;
// fetches run on their own goroutines and settle through it. Each fetch is
// tagged with a Token, and a settled fetch whose token is no longer current is
// discarded without touching state, so results apply in token order even when
// the remote source completes requests out of order. A superseded request's
// context is also cancelled.
//
// Lock order is Controller then Window. The Window calls back into the
// Controller from timer goroutines without holding its own lock.
//
// Event channels have buffers to prevent blocking. If a subscriber doesn't
// consume events fast enough, events are dropped.
package listing

import (
	"context"
	"sync"
	"time"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
	"github.com/abelbrown/showroom/internal/logging"
	"github.com/abelbrown/showroom/internal/otel"
	"github.com/abelbrown/showroom/internal/shared"
)

// EventType categorizes controller events.
type EventType string

const (
	EventStarted   EventType = "started"
	EventInstalled EventType = "installed"
	EventError     EventType = "error"
	EventWindow    EventType = "window"
)

// Event is sent to subscribers when controller state changes.
type Event struct {
	Type         EventType
	Token        Token
	Presentation Presentation
	Err          error // Populated on EventError
}

// Options configures a Controller.
type Options struct {
	Endpoint   string        // name used in logs and errors
	Filters    filter.State  // mount-time filters, e.g. from deep-link flags
	Window     WindowConfig  // zero value uses DefaultWindowConfig
	Normalizer Normalizer    // key derivation
	Timeout    time.Duration // per-fetch timeout (default: 15s)
	Logger     *otel.Logger  // may be nil
	City       *shared.City  // shared city context, may be nil
}

// Controller is the filtered-listing controller for one screen.
type Controller struct {
	endpoint string
	comp     string
	timeout  time.Duration
	log      *otel.Logger
	city     *shared.City
	unsub    func()

	orch   *Orchestrator
	window *Window
	events chan Event

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Protected by mu
	mu       sync.Mutex
	filters  filter.State
	results  ResultSet
	fetching bool
	err      *catalog.FetchError
	resets   int
	closed   bool
}

// New creates a controller reading from src. It does not fetch until Mount.
func New(src catalog.Source, opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "listing"
	}

	c := &Controller{
		endpoint: opts.Endpoint,
		comp:     "listing:" + opts.Endpoint,
		timeout:  opts.Timeout,
		log:      opts.Logger,
		city:     opts.City,
		orch:     NewOrchestrator(opts.Endpoint, src, opts.Normalizer),
		events:   make(chan Event, 32),
		filters:  opts.Filters,
	}
	c.base, c.cancel = context.WithCancel(context.Background())
	c.window = NewWindow(opts.Window, c.onWindow)

	if c.city != nil {
		if v := c.city.Get(); v != "" {
			c.filters, _ = c.filters.With(filter.City, v)
		}
		c.unsub = c.city.Subscribe(c.onCity)
	}
	return c
}

// Endpoint returns the endpoint name the controller was created for.
func (c *Controller) Endpoint() string {
	return c.endpoint
}

// Mount starts the initial fetch for the mount-time filters.
func (c *Controller) Mount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.startLocked(otel.KindFetchStart)
}

// SetFilter changes one constraint. An empty value clears it. A re-fetch is
// started only when the normalized filter state actually changed.
func (c *Controller) SetFilter(k filter.Key, v string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.filters.With(k, v)
	if err != nil {
		return err
	}
	c.applyLocked(next)
	return nil
}

// SetFilters replaces the whole filter state, as when an outer view passes
// new props. The shared city, when present, always wins over s.
func (c *Controller) SetFilters(s filter.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.city != nil {
		s, _ = s.With(filter.City, c.city.Get())
	}
	c.applyLocked(s)
}

// ClearFilters drops every user-facing constraint. The city is kept.
func (c *Controller) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(c.filters.Cleared())
}

// Filters returns the current filter state.
func (c *Controller) Filters() filter.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

func (c *Controller) applyLocked(next filter.State) {
	if c.closed || filter.Equal(c.filters, next) {
		return
	}
	c.filters = next
	c.log.Emit(otel.Event{
		Level:    otel.LevelInfo,
		Kind:     otel.KindFilterChange,
		Comp:     c.comp,
		Endpoint: c.endpoint,
		Filters:  next.String(),
	})
	c.startLocked(otel.KindFetchStart)
}

func (c *Controller) onCity(v string) {
	c.log.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCityChange, Comp: c.comp, Msg: v})
	// City is a known key, so With cannot fail.
	_ = c.SetFilter(filter.City, v)
}

// startLocked begins a fetch on its own goroutine. Caller must hold c.mu.
func (c *Controller) startLocked(kind otel.EventKind) {
	tok, ctx, state := c.beginLocked(c.base, kind)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.settle(c.fetch(ctx, tok, state))
	}()
}

// beginLocked mints a token and marks the controller as loading.
func (c *Controller) beginLocked(parent context.Context, kind otel.EventKind) (Token, context.Context, filter.State) {
	tok, ctx := c.orch.Begin(parent)
	c.fetching = true
	state := c.filters

	c.log.Emit(otel.Event{
		Level:    otel.LevelDebug,
		Kind:     kind,
		Comp:     c.comp,
		Token:    uint64(tok),
		Endpoint: c.endpoint,
		Filters:  state.String(),
	})
	c.sendLocked(Event{Type: EventStarted, Token: tok})
	return tok, ctx, state
}

func (c *Controller) fetch(ctx context.Context, tok Token, state filter.State) Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.orch.Fetch(ctx, tok, state)
}

// settle applies an outcome if its token is still current. It returns the
// surfaced error, or nil when the outcome succeeded or was stale.
func (c *Controller) settle(out Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.orch.IsCurrent(out.Token) {
		c.log.Emit(otel.Event{
			Level:    otel.LevelDebug,
			Kind:     otel.KindFetchStale,
			Comp:     c.comp,
			Token:    uint64(out.Token),
			Endpoint: c.endpoint,
			Dur:      out.Dur,
		})
		return nil
	}
	c.orch.Settle(out.Token)
	c.fetching = false

	if out.Err != nil {
		// ResultSet and window are left as they were.
		c.err = out.Err
		c.log.Emit(otel.Event{
			Level:    otel.LevelError,
			Kind:     otel.KindFetchError,
			Comp:     c.comp,
			Token:    uint64(out.Token),
			Endpoint: c.endpoint,
			Filters:  c.filters.String(),
			Dur:      out.Dur,
			Err:      out.Err.Error(),
		})
		logging.Warn("listing fetch failed", "endpoint", c.endpoint, "kind", out.Err.Kind.String(), "err", out.Err)
		c.sendLocked(Event{Type: EventError, Token: out.Token, Err: out.Err, Presentation: c.deriveLocked()})
		return out.Err
	}

	c.results = out.Items
	c.err = nil
	c.window.Reset(out.Items.Len())
	c.resets++

	c.log.Emit(otel.Event{
		Level:    otel.LevelInfo,
		Kind:     otel.KindFetchComplete,
		Comp:     c.comp,
		Token:    uint64(out.Token),
		Endpoint: c.endpoint,
		Filters:  c.filters.String(),
		Count:    out.Items.Len(),
		Dur:      out.Dur,
	})
	c.log.Emit(otel.Event{
		Level: otel.LevelDebug,
		Kind:  otel.KindWindowReset,
		Comp:  c.comp,
		Token: uint64(out.Token),
		Count: c.window.State().Visible,
	})
	c.sendLocked(Event{Type: EventInstalled, Token: out.Token, Presentation: c.deriveLocked()})
	return nil
}

// OnNearEndOfList asks the window to reveal more rows. It never touches the
// network. It reports whether an expansion was scheduled.
func (c *Controller) OnNearEndOfList() bool {
	return c.window.RequestExpand()
}

// OnPullToRefresh re-runs the fetch for the current filters in the
// background. Use Refresh to wait for the result.
func (c *Controller) OnPullToRefresh() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.Refresh(c.base)
	}()
}

// Refresh re-runs the fetch for the current filters against the same source
// and, on success, resets the window. It blocks until the fetch settles.
//
// Refresh follows the same staleness rule as filter changes: if a newer fetch
// is started before this one settles, this result is discarded and Refresh
// returns nil.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	tok, fctx, state := c.beginLocked(ctx, otel.KindRefreshStart)
	c.mu.Unlock()

	return c.settle(c.fetch(fctx, tok, state))
}

// CurrentState derives the presentation from the current state.
func (c *Controller) CurrentState() Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deriveLocked()
}

// Results returns the installed result set, all of it, not just the
// visible slice.
func (c *Controller) Results() ResultSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}

// Resets returns how many times the window has been reset by an install.
func (c *Controller) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

func (c *Controller) deriveLocked() Presentation {
	return Derive(Inputs{
		Filters:  c.filters,
		Fetching: c.fetching,
		Results:  c.results,
		Window:   c.window.State(),
		Err:      c.err,
	})
}

// onWindow runs on window timer goroutines.
func (c *Controller) onWindow(ws WindowState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if !ws.Expanding {
		c.log.Emit(otel.Event{
			Level:    otel.LevelDebug,
			Kind:     otel.KindWindowExpand,
			Comp:     c.comp,
			Endpoint: c.endpoint,
			Count:    ws.Visible,
		})
	}
	c.sendLocked(Event{Type: EventWindow, Presentation: c.deriveLocked()})
}

// sendLocked sends an event to subscribers without blocking.
// If the channel is full, the event is dropped.
func (c *Controller) sendLocked(e Event) {
	select {
	case c.events <- e:
	default:
		// Channel full, drop event (subscriber not keeping up)
	}
}

// Subscribe returns the event channel.
//
// The channel is never closed - it lives for the lifetime of the controller.
func (c *Controller) Subscribe() <-chan Event {
	return c.events
}

// Wait blocks until background fetches started by Mount, filter changes and
// OnPullToRefresh have returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight work and stops timers. Late results are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.orch.Stop()
	c.mu.Unlock()

	c.window.Close()
	if c.unsub != nil {
		c.unsub()
	}
	c.cancel()
}
