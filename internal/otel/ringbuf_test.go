package otel

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func countsOf(events []Event) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.Count
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRingBufferOrdering(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		pushes int
		want   []int
	}{
		{"partial", 8, 5, []int{0, 1, 2, 3, 4}},
		{"exactly full", 4, 4, []int{0, 1, 2, 3}},
		{"wrapped once", 4, 6, []int{2, 3, 4, 5}},
		{"wrapped twice", 3, 8, []int{5, 6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRingBuffer(tt.size)
			for i := 0; i < tt.pushes; i++ {
				r.Push(Event{Kind: KindFetchComplete, Count: i})
			}
			if got := countsOf(r.Snapshot()); !equalInts(got, tt.want) {
				t.Errorf("Snapshot() = %v, want %v", got, tt.want)
			}
			if r.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", r.Len(), len(tt.want))
			}
		})
	}
}

func TestRingBufferEmpty(t *testing.T) {
	r := NewRingBuffer(4)
	if r.Snapshot() != nil {
		t.Error("empty Snapshot() should be nil")
	}
	if r.Last(3) != nil {
		t.Error("empty Last() should be nil")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRingBufferLast(t *testing.T) {
	r := NewRingBuffer(4)
	for i := 0; i < 6; i++ {
		r.Push(Event{Kind: KindWindowExpand, Count: i})
	}

	if got := countsOf(r.Last(2)); !equalInts(got, []int{4, 5}) {
		t.Errorf("Last(2) = %v, want [4 5]", got)
	}
	if got := countsOf(r.Last(10)); !equalInts(got, []int{2, 3, 4, 5}) {
		t.Errorf("Last(10) = %v, want every buffered event", got)
	}
	if r.Last(0) != nil || r.Last(-1) != nil {
		t.Error("Last(n<=0) should be nil")
	}
}

func TestRingBufferFind(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRingBuffer(16)
	r.Push(Event{Time: base, Kind: KindFetchStart, Comp: "listing:variants", Endpoint: "variants", Count: 1})
	r.Push(Event{Time: base.Add(time.Second), Kind: KindFetchComplete, Comp: "listing:variants", Endpoint: "variants", Count: 2})
	r.Push(Event{Time: base.Add(2 * time.Second), Kind: KindFetchStart, Comp: "listing:dealers", Endpoint: "dealers", Count: 3})
	r.Push(Event{Time: base.Add(3 * time.Second), Kind: KindWindowExpand, Comp: "listing:variants", Endpoint: "variants", Count: 4})
	r.Push(Event{Time: base.Add(4 * time.Second), Kind: KindSnapshotSave, Comp: "store", Endpoint: "variants", Count: 5})

	tests := []struct {
		name string
		f    Filter
		n    int
		want []int
	}{
		{"all", Filter{}, 10, []int{1, 2, 3, 4, 5}},
		{"by comp", Filter{Comp: "listing:variants"}, 10, []int{1, 2, 4}},
		{"by comp newest only", Filter{Comp: "listing:variants"}, 2, []int{2, 4}},
		{"by endpoint", Filter{Endpoint: "variants"}, 10, []int{1, 2, 4, 5}},
		{"by kind prefix", Filter{KindPrefix: "fetch."}, 10, []int{1, 2, 3}},
		{"since", Filter{Since: base.Add(3 * time.Second)}, 10, []int{4, 5}},
		{"combined", Filter{Endpoint: "variants", KindPrefix: "fetch"}, 10, []int{1, 2}},
		{"no match", Filter{Comp: "coord"}, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := countsOf(r.Find(tt.f, tt.n))
			if !equalInts(got, tt.want) {
				t.Errorf("Find(%+v, %d) = %v, want %v", tt.f, tt.n, got, tt.want)
			}
		})
	}
}

func TestRingBufferStats(t *testing.T) {
	r := NewRingBuffer(4)
	r.Push(Event{Kind: KindFetchError})
	r.Push(Event{Kind: KindFetchStart})
	r.Push(Event{Kind: KindFetchComplete})
	r.Push(Event{Kind: KindFetchStart})
	r.Push(Event{Kind: KindFetchStart}) // evicts the error

	stats := r.Stats()
	if stats[KindFetchStart] != 3 {
		t.Errorf("fetch.start = %d, want 3", stats[KindFetchStart])
	}
	if stats[KindFetchComplete] != 1 {
		t.Errorf("fetch.complete = %d, want 1", stats[KindFetchComplete])
	}
	if stats[KindFetchError] != 0 {
		t.Errorf("evicted fetch.error still counted: %d", stats[KindFetchError])
	}
}

func TestRingBufferCopiesExtra(t *testing.T) {
	r := NewRingBuffer(4)
	extra := map[string]any{"failed": 1}
	r.Push(Event{Kind: KindWarmComplete, Extra: extra})
	extra["failed"] = 99

	if got := r.Snapshot()[0].Extra["failed"]; got != 1 {
		t.Errorf("buffered Extra changed with the caller's map: %v", got)
	}
}

func TestRingBufferDefaultSize(t *testing.T) {
	if got := NewRingBuffer(0).Cap(); got != DefaultRingSize {
		t.Errorf("Cap() = %d, want %d", got, DefaultRingSize)
	}
	if got := NewRingBuffer(-3).Cap(); got != DefaultRingSize {
		t.Errorf("Cap() = %d, want %d", got, DefaultRingSize)
	}
	if got := NewRingBuffer(7).Cap(); got != 7 {
		t.Errorf("Cap() = %d, want 7", got)
	}
}

func TestRingBufferConcurrentPushAndRead(t *testing.T) {
	r := NewRingBuffer(64)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.Push(Event{Kind: KindFetchStart, Comp: "listing:variants"})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.Find(Filter{Comp: "listing:variants"}, 10)
				r.Stats()
			}
		}()
	}
	wg.Wait()

	if r.Len() != 64 {
		t.Errorf("Len() = %d, want 64", r.Len())
	}
}

func TestRingBufferFedByLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	r := NewRingBuffer(8)
	l.SetRingBuffer(r)

	l.Emit(Event{Kind: KindFetchStart, Comp: "listing:variants", Token: 1})
	l.Emit(Event{Kind: KindFetchComplete, Comp: "listing:variants", Token: 1, Dur: 40 * time.Millisecond})
	l.Close()

	got := r.Snapshot()
	if len(got) != 2 {
		t.Fatalf("ring holds %d events, want 2", len(got))
	}
	if got[1].Dur != 40*time.Millisecond {
		t.Errorf("ring copy lost Dur: %v", got[1].Dur)
	}
	if got[0].SessionID == "" || got[0].SessionID != l.SessionID() {
		t.Errorf("ring copy should carry the session id, got %q", got[0].SessionID)
	}
}
