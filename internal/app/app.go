// Package app wires configuration, persistence and the catalog client into
// the listing controllers used by the showroom commands.
package app

import (
	"fmt"
	"os"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/config"
	"github.com/abelbrown/showroom/internal/coord"
	"github.com/abelbrown/showroom/internal/filter"
	"github.com/abelbrown/showroom/internal/listing"
	"github.com/abelbrown/showroom/internal/otel"
	"github.com/abelbrown/showroom/internal/shared"
	"github.com/abelbrown/showroom/internal/store"
)

// ringSize is the number of events kept in memory for the debug overlay.
const ringSize = 512

// Runtime holds the long-lived collaborators of one process.
// IMPORTANT: Runtime owns the store and the event log. Call Close once.
type Runtime struct {
	Config *config.Config
	Store  *store.Store
	Events *otel.Logger
	Ring   *otel.RingBuffer
	City   *shared.City

	client   *catalog.Client
	offline  bool
	eventLog *os.File
}

// Options tunes Open.
type Options struct {
	Offline  bool // serve snapshots instead of the remote catalog
	NoEvents bool // discard the JSONL event log
}

// Open creates the data directory, the snapshot store and the event log.
func Open(cfg *config.Config, opts Options) (*Runtime, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:  cfg,
		Store:   st,
		Ring:    otel.NewRingBuffer(ringSize),
		City:    shared.NewCity(cfg.City),
		offline: opts.Offline,
		client: catalog.NewClient(catalog.ClientConfig{
			BaseURL:       cfg.Catalog.BaseURL,
			Token:         cfg.Catalog.Token,
			Timeout:       cfg.Catalog.Timeout,
			RatePerSecond: cfg.Catalog.RatePerSecond,
		}),
	}

	if opts.NoEvents {
		rt.Events = otel.NewNullLogger()
	} else {
		f, err := os.OpenFile(cfg.EventsPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("open event log: %w", err)
		}
		rt.eventLog = f
		rt.Events = otel.NewLogger(f)
	}
	rt.Events.SetRingBuffer(rt.Ring)
	rt.Events.SetFileLevel(otel.ParseLevel(cfg.Logging.Level))
	rt.Events.Info(otel.KindStartup, "app", fmt.Sprintf("offline=%t", opts.Offline))
	return rt, nil
}

// Offline reports whether sources are served from snapshots.
func (r *Runtime) Offline() bool {
	return r.offline
}

// Source returns the Source for e: the remote catalog recorded into the
// store, or the store alone when offline.
func (r *Runtime) Source(e catalog.Endpoint) catalog.Source {
	if r.offline {
		return store.Offline(r.Store, e.Name)
	}
	return store.Recording(r.client.Endpoint(e), r.Store, e.Name, r.Events)
}

// WindowConfig converts the listing settings.
func (r *Runtime) WindowConfig() listing.WindowConfig {
	l := r.Config.Listing
	return listing.WindowConfig{
		Initial: l.InitialWindow,
		Step:    l.WindowStep,
		Quiet:   l.Debounce,
		Latency: l.RevealLatency,
	}
}

// NewController builds a listing controller for e scoped to the shared city.
// The controller is not mounted.
func (r *Runtime) NewController(e catalog.Endpoint, filters filter.State) *listing.Controller {
	return listing.New(r.Source(e), listing.Options{
		Endpoint:   e.Name,
		Filters:    filters,
		Window:     r.WindowConfig(),
		Normalizer: listing.Normalizer{IDFields: catalog.IDFields},
		Timeout:    r.Config.Catalog.Timeout,
		Logger:     r.Events,
		City:       r.City,
	})
}

// NewWarmer builds a warmer over the configured targets.
func (r *Runtime) NewWarmer(onResult func(coord.Result)) (*coord.Warmer, error) {
	targets, err := coord.ParseTargets(r.Config.Warm.Targets)
	if err != nil {
		return nil, err
	}
	return coord.NewWarmer(r.Store, r.client.Endpoint, targets, coord.Options{
		MaxConcurrent: r.Config.Warm.MaxConcurrent,
		Interval:      r.Config.Warm.Interval,
		Timeout:       r.Config.Catalog.Timeout,
		Logger:        r.Events,
		OnResult:      onResult,
	}), nil
}

// Close flushes the event log and closes the store.
func (r *Runtime) Close() error {
	r.Events.Info(otel.KindShutdown, "app", "")
	r.Events.Close()
	if r.eventLog != nil {
		r.eventLog.Close()
	}
	return r.Store.Close()
}
