package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
	"github.com/abelbrown/showroom/internal/logging"
	"github.com/abelbrown/showroom/internal/otel"
)

// Recording wraps src so every successful fetch is saved as a snapshot.
// Failed fetches pass through untouched and nothing is saved. A failed save
// is logged and does not fail the fetch.
func Recording(src catalog.Source, st *Store, endpoint string, log *otel.Logger) catalog.Source {
	return catalog.SourceFunc(func(ctx context.Context, p filter.Payload) ([]catalog.Record, error) {
		records, err := src.Fetch(ctx, p)
		if err != nil {
			return nil, err
		}

		if err := st.SaveSnapshot(endpoint, p, records, time.Now()); err != nil {
			log.Emit(otel.Event{
				Level:    otel.LevelWarn,
				Kind:     otel.KindSnapshotError,
				Comp:     "store",
				Endpoint: endpoint,
				Filters:  p.Canonical(),
				Err:      err.Error(),
			})
			logging.For("store").Warn("snapshot save failed", "endpoint", endpoint, "error", err)
			return records, nil
		}
		log.Emit(otel.Event{
			Level:    otel.LevelDebug,
			Kind:     otel.KindSnapshotSave,
			Comp:     "store",
			Endpoint: endpoint,
			Filters:  p.Canonical(),
			Count:    len(records),
		})
		return records, nil
	})
}

// Offline serves stored snapshots in place of the remote catalog. A query
// with no snapshot is reported as unreachable, the same as a dead network.
func Offline(st *Store, endpoint string) catalog.Source {
	return catalog.SourceFunc(func(ctx context.Context, p filter.Payload) ([]catalog.Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, catalog.Unreachable(endpoint, err)
		}
		snap, err := st.Snapshot(endpoint, p)
		if errors.Is(err, ErrNoSnapshot) {
			return nil, catalog.Unreachable(endpoint, fmt.Errorf("offline: no snapshot for %q", p.Canonical()))
		}
		if err != nil {
			return nil, catalog.Unreachable(endpoint, err)
		}
		return snap.Records, nil
	})
}
