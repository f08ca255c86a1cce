package coord

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
	"github.com/abelbrown/showroom/internal/store"
)

// mockCatalog hands out sources that record what they were asked for.
type mockCatalog struct {
	mu         sync.Mutex
	fetched    []string
	failFor    string
	fetchDelay time.Duration
	fetchCount atomic.Int32
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
}

func (m *mockCatalog) source(e catalog.Endpoint) catalog.Source {
	return catalog.SourceFunc(func(ctx context.Context, p filter.Payload) ([]catalog.Record, error) {
		m.fetchCount.Add(1)
		n := m.inFlight.Add(1)
		defer m.inFlight.Add(-1)
		for {
			seen := m.maxSeen.Load()
			if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}

		// Simulate delay if configured
		if m.fetchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.fetchDelay):
			}
		}

		m.mu.Lock()
		m.fetched = append(m.fetched, e.Name+"?"+p.Canonical())
		m.mu.Unlock()

		if e.Name == m.failFor {
			return nil, catalog.Unreachable(e.Name, errors.New("down"))
		}
		return []catalog.Record{{"id": e.Name + "-1"}, {"id": e.Name + "-2"}}, nil
	})
}

func (m *mockCatalog) getFetched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.fetched))
	copy(out, m.fetched)
	return out
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustTargets(t *testing.T, specs ...string) []Target {
	t.Helper()
	targets, err := ParseTargets(specs)
	if err != nil {
		t.Fatalf("ParseTargets: %v", err)
	}
	return targets
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"brands", "brands", false},
		{" variants?brand=Honda&fuel_type=Petrol ", "variants?brand=Honda&fuelType=Petrol", false},
		{"dealers?city=Pune", "dealers?city=Pune", false},
		{"variants?brand=", "variants", false},
		{"showrooms", "", true},
		{"variants?colour=red", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTarget(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTarget(%q): %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseTarget(%q) = %q, want %q", tt.in, got.String(), tt.want)
		}
	}
}

func TestWarmOnceRecordsSnapshots(t *testing.T) {
	s := openStore(t)
	mock := &mockCatalog{}
	targets := mustTargets(t, "brands", "variants?brand=Honda", "dealers")

	var reported atomic.Int32
	w := NewWarmer(s, mock.source, targets, Options{OnResult: func(Result) { reported.Add(1) }})
	results := w.WarmOnce(context.Background())

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("target %s failed: %v", r.Target, r.Err)
		}
		if r.Target.String() != targets[i].String() {
			t.Errorf("results out of target order at %d", i)
		}
	}
	if reported.Load() != 3 {
		t.Errorf("expected 3 OnResult calls, got %d", reported.Load())
	}

	snap, err := s.Snapshot("variants", filter.Payload{"brand": "Honda"})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Count != 2 {
		t.Errorf("expected 2 records, got %d", snap.Count)
	}
	if n, _ := s.SnapshotCount(); n != 3 {
		t.Errorf("expected 3 snapshots, got %d", n)
	}
}

func TestWarmOnceIsolatesFailures(t *testing.T) {
	s := openStore(t)
	mock := &mockCatalog{failFor: "dealers"}
	w := NewWarmer(s, mock.source, mustTargets(t, "brands", "dealers"), Options{})

	results := w.WarmOnce(context.Background())
	if results[0].Err != nil {
		t.Errorf("brands should succeed: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, catalog.ErrUnreachable) {
		t.Errorf("dealers should be unreachable, got %v", results[1].Err)
	}
	if _, err := s.Snapshot("dealers", nil); !errors.Is(err, store.ErrNoSnapshot) {
		t.Errorf("failed target must not be recorded, got %v", err)
	}
}

func TestWarmOnceRespectsLimit(t *testing.T) {
	s := openStore(t)
	mock := &mockCatalog{fetchDelay: 20 * time.Millisecond}
	targets := mustTargets(t,
		"variants?brand=Honda", "variants?brand=Tata", "variants?brand=Kia",
		"variants?brand=MG", "variants?brand=Toyota", "variants?brand=Hyundai",
	)
	w := NewWarmer(s, mock.source, targets, Options{MaxConcurrent: 2})
	w.WarmOnce(context.Background())

	if got := mock.maxSeen.Load(); got > 2 {
		t.Errorf("expected at most 2 concurrent fetches, saw %d", got)
	}
	if got := mock.fetchCount.Load(); got != 6 {
		t.Errorf("expected 6 fetches, got %d", got)
	}
}

func TestWarmerRespectsContextCancellation(t *testing.T) {
	s := openStore(t)
	mock := &mockCatalog{fetchDelay: 100 * time.Millisecond}
	w := NewWarmer(s, mock.source, mustTargets(t, "brands", "dealers", "variants"), Options{MaxConcurrent: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := w.WarmOnce(ctx)
	for _, r := range results {
		if r.Err == nil {
			t.Errorf("expected cancellation error for %s", r.Target)
		}
	}
	if got := len(mock.getFetched()); got != 0 {
		t.Errorf("expected no completed fetches, got %d", got)
	}
}

func TestWarmerStartPeriodic(t *testing.T) {
	s := openStore(t)
	mock := &mockCatalog{}
	w := NewWarmer(s, mock.source, mustTargets(t, "brands"), Options{Interval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for mock.fetchCount.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	w.Wait()

	if got := mock.fetchCount.Load(); got < 3 {
		t.Errorf("expected repeated warming, got %d fetches", got)
	}
}

func TestWarmerStartOnceExits(t *testing.T) {
	s := openStore(t)
	mock := &mockCatalog{}
	w := NewWarmer(s, mock.source, mustTargets(t, "brands"), Options{})

	w.Start(context.Background())

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot warmer did not exit")
	}
	if got := mock.fetchCount.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}
