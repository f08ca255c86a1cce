// Package otel is showroom's structured event log.
//
// Each Event becomes one JSON line in <data_dir>/showroom.events.jsonl, written
// off the caller's goroutine by Logger. A RingBuffer can mirror recent events
// for the in-app debug overlay; `shr events` reads the file.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Listing fetch lifecycle
	KindFetchStart    EventKind = "fetch.start"
	KindFetchComplete EventKind = "fetch.complete"
	KindFetchError    EventKind = "fetch.error"
	KindFetchStale    EventKind = "fetch.stale"

	// Window and refresh
	KindWindowReset  EventKind = "window.reset"
	KindWindowExpand EventKind = "window.expand"
	KindRefreshStart EventKind = "refresh.start"

	// Filter scope
	KindFilterChange EventKind = "filter.change"
	KindCityChange   EventKind = "city.change"

	// Snapshot cache
	KindSnapshotSave  EventKind = "snapshot.save"
	KindSnapshotError EventKind = "snapshot.error"

	// Cache warming
	KindWarmStart    EventKind = "warm.start"
	KindWarmComplete EventKind = "warm.complete"

	// UI events
	KindKeyPress EventKind = "ui.key"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "listing", "coord", "ui", "store"
	SessionID string         `json:"session_id,omitempty"` // same for entire app run
	Token     uint64         `json:"tok,omitempty"`        // listing request generation
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Endpoint  string         `json:"endpoint,omitempty"`
	Filters   string         `json:"filters,omitempty"` // canonical filter query
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`   // free text
	Extra     map[string]any `json:"extra,omitempty"` // escape hatch for unusual fields
}

// eventJSON has Event's fields without its methods, so marshaling it does
// not recurse.
type eventJSON Event

// MarshalJSON writes Dur as fractional milliseconds in dur_ms. An explicit
// DurMs is kept when Dur is unset.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Dur > 0 {
		e.DurMs = e.Dur.Seconds() * 1000
	}
	return json.Marshal(eventJSON(e))
}
