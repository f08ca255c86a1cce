// Package coord provides background snapshot warming for showroom.
package coord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
	"github.com/abelbrown/showroom/internal/logging"
	"github.com/abelbrown/showroom/internal/otel"
	"github.com/abelbrown/showroom/internal/store"
)

// defaultFetchTimeout is the timeout for each individual fetch.
const defaultFetchTimeout = 30 * time.Second

// defaultMaxConcurrent limits parallel fetch operations.
const defaultMaxConcurrent = 4

// Target is one (endpoint, filters) query to keep warm.
type Target struct {
	Endpoint catalog.Endpoint
	Filters  filter.State
}

func (t Target) String() string {
	if q := t.Filters.String(); q != "" {
		return t.Endpoint.Name + "?" + q
	}
	return t.Endpoint.Name
}

// ParseTarget parses "endpoint" or "endpoint?key=value&key=value".
func ParseTarget(s string) (Target, error) {
	name, query, _ := strings.Cut(strings.TrimSpace(s), "?")
	e, err := catalog.LookupEndpoint(name)
	if err != nil {
		return Target{}, err
	}
	st, err := filter.ParseQuery(query)
	if err != nil {
		return Target{}, fmt.Errorf("target %q: %w", s, err)
	}
	return Target{Endpoint: e, Filters: st}, nil
}

// ParseTargets parses every entry, failing on the first bad one.
func ParseTargets(specs []string) ([]Target, error) {
	out := make([]Target, 0, len(specs))
	for _, s := range specs {
		t, err := ParseTarget(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Result reports one warmed target.
type Result struct {
	Target Target
	Count  int
	Err    error
	Dur    time.Duration
}

// Options configures a Warmer.
type Options struct {
	MaxConcurrent int           // parallel fetches (default: 4)
	Interval      time.Duration // 0 warms once per Start
	Timeout       time.Duration // per-fetch timeout (default: 30s)
	Logger        *otel.Logger  // may be nil
	OnResult      func(Result)  // called from worker goroutines, may be nil
}

// Warmer fetches a fixed set of targets and records them as snapshots.
// Uses context cancellation as the ONLY stop mechanism.
type Warmer struct {
	store   *store.Store
	source  func(catalog.Endpoint) catalog.Source
	targets []Target // IMMUTABLE: set at construction, never modified
	opts    Options
	wg      sync.WaitGroup
}

// NewWarmer creates a Warmer. source returns the live Source for an endpoint;
// every fetch is recorded into st.
func NewWarmer(st *store.Store, source func(catalog.Endpoint) catalog.Source, targets []Target, opts Options) *Warmer {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}

	// Copy targets slice to ensure immutability
	targetsCopy := make([]Target, len(targets))
	copy(targetsCopy, targets)

	return &Warmer{
		store:   st,
		source:  source,
		targets: targetsCopy,
		opts:    opts,
	}
}

// Start begins background warming. Call with a cancellable context.
// Warms immediately, then every Interval when one is set.
func (w *Warmer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.WarmOnce(ctx)
		if w.opts.Interval <= 0 {
			return
		}

		ticker := time.NewTicker(w.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.WarmOnce(ctx)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (w *Warmer) Wait() {
	w.wg.Wait()
}

// WarmOnce fetches every target in parallel and returns results in target
// order. Individual failures never abort the others.
func (w *Warmer) WarmOnce(ctx context.Context) []Result {
	w.opts.Logger.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindWarmStart,
		Comp:  "coord",
		Count: len(w.targets),
	})
	start := time.Now()

	results := make([]Result, len(w.targets))
	var g errgroup.Group
	g.SetLimit(w.opts.MaxConcurrent)

	for i, t := range w.targets {
		g.Go(func() error {
			// Early exit if context cancelled
			if ctx.Err() != nil {
				results[i] = Result{Target: t, Err: ctx.Err()}
				return nil
			}
			results[i] = w.warm(ctx, t)
			if w.opts.OnResult != nil {
				w.opts.OnResult(results[i])
			}
			return nil // never fail the group - errors reported per-target
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	w.opts.Logger.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindWarmComplete,
		Comp:  "coord",
		Count: len(results) - failed,
		Dur:   time.Since(start),
		Extra: map[string]any{"failed": failed},
	})
	return results
}

// warm fetches one target with timeout through a recording source.
func (w *Warmer) warm(ctx context.Context, t Target) Result {
	fetchCtx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	src := store.Recording(w.source(t.Endpoint), w.store, t.Endpoint.Name, w.opts.Logger)

	start := time.Now()
	records, err := src.Fetch(fetchCtx, filter.Normalize(t.Filters))
	r := Result{Target: t, Count: len(records), Err: err, Dur: time.Since(start)}
	if err != nil {
		logging.Warn("warm failed", "target", t.String(), "error", err)
	}
	return r
}
