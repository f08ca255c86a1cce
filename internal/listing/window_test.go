package listing

import (
	"sync"
	"testing"
	"time"
)

func TestRequestExpandDebounces(t *testing.T) {
	w := NewWindow(WindowConfig{Initial: 10, Step: 10, Quiet: 50 * time.Millisecond, Latency: 5 * time.Millisecond}, nil)
	defer w.Close()
	w.Reset(100)

	for i := 0; i < 10; i++ {
		w.RequestExpand()
	}

	waitFor(t, "one expansion", func() bool { return w.Expansions() == 1 })
	time.Sleep(150 * time.Millisecond)

	if got := w.Expansions(); got != 1 {
		t.Errorf("expected exactly 1 expansion, got %d", got)
	}
	if got := w.State().Visible; got != 20 {
		t.Errorf("expected 20 visible, got %d", got)
	}
}

func TestFiredExpansionAppliesAfterReset(t *testing.T) {
	cfg := fastWindow
	cfg.Quiet = time.Hour
	w := NewWindow(cfg, nil)
	defer w.Close()
	w.Reset(100)

	// The debounce timer fires, then a new result set arrives before begin
	// takes the window lock.
	w.Reset(3)
	w.begin()

	waitFor(t, "expansion done", func() bool { return w.Expansions() == 1 })
	st := w.State()
	if st.Visible != 3 || st.Expanding {
		t.Errorf("state = %+v, want {Visible:3 Expanding:false}", st)
	}
}

func TestResetDropsWaitingExpansion(t *testing.T) {
	cfg := fastWindow
	cfg.Quiet = 30 * time.Millisecond
	w := NewWindow(cfg, nil)
	defer w.Close()
	w.Reset(100)

	if !w.RequestExpand() {
		t.Fatal("expected request to be scheduled")
	}
	w.Reset(100)
	time.Sleep(100 * time.Millisecond)

	if got := w.Expansions(); got != 0 {
		t.Errorf("expansions = %d, want 0 after Reset", got)
	}
}

func TestRequestExpandNoOpWhenEverythingVisible(t *testing.T) {
	w := NewWindow(fastWindow, nil)
	defer w.Close()
	w.Reset(2)

	if w.RequestExpand() {
		t.Error("expected no-op when visible >= total")
	}
	w.Reset(0)
	if w.RequestExpand() {
		t.Error("expected no-op on empty result set")
	}
}

func TestRequestExpandNoOpWhileExpanding(t *testing.T) {
	cfg := fastWindow
	cfg.Latency = 200 * time.Millisecond
	w := NewWindow(cfg, nil)
	defer w.Close()
	w.Reset(10)

	w.RequestExpand()
	waitFor(t, "expanding", func() bool { return w.State().Expanding })

	if w.RequestExpand() {
		t.Error("expected no-op while expanding")
	}
	waitFor(t, "expansion done", func() bool { return !w.State().Expanding })
	if got := w.State().Visible; got != 4 {
		t.Errorf("expected 4 visible, got %d", got)
	}
}

func TestExpandCapsAtTotal(t *testing.T) {
	w := NewWindow(WindowConfig{Initial: 10, Step: 10, Quiet: 5 * time.Millisecond, Latency: time.Millisecond}, nil)
	defer w.Close()
	w.Reset(15)

	w.RequestExpand()
	waitFor(t, "expansion", func() bool { return w.Expansions() == 1 })
	if got := w.State().Visible; got != 15 {
		t.Errorf("expected visible capped at 15, got %d", got)
	}
}

func TestResetRestoresInitial(t *testing.T) {
	w := NewWindow(fastWindow, nil)
	defer w.Close()
	w.Reset(10)

	w.RequestExpand()
	waitFor(t, "expansion", func() bool { return w.Expansions() == 1 })

	for _, total := range []int{0, 1, 100} {
		w.Reset(total)
		st := w.State()
		if st.Visible != fastWindow.Initial || st.Expanding {
			t.Errorf("after Reset(%d): got %+v", total, st)
		}
	}
}

func TestResetDropsPendingRequest(t *testing.T) {
	w := NewWindow(fastWindow, nil)
	defer w.Close()
	w.Reset(10)

	if !w.RequestExpand() {
		t.Fatal("expected request to be scheduled")
	}
	w.Reset(10)
	time.Sleep(3 * fastWindow.Quiet)

	if got := w.Expansions(); got != 0 {
		t.Errorf("expected pending request dropped by reset, got %d expansions", got)
	}
}

func TestVisibleIsMonotonic(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	w := NewWindow(WindowConfig{Initial: 1, Step: 1, Quiet: time.Millisecond, Latency: time.Millisecond}, func(ws WindowState) {
		mu.Lock()
		seen = append(seen, ws.Visible)
		mu.Unlock()
	})
	defer w.Close()
	w.Reset(5)

	for i := 0; i < 4; i++ {
		want := i + 1
		waitFor(t, "request accepted", func() bool { return w.RequestExpand() })
		waitFor(t, "expansion", func() bool { return w.Expansions() == want })
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("visible decreased: %v", seen)
		}
	}
	if w.State().Visible != 5 {
		t.Errorf("expected 5 visible, got %d", w.State().Visible)
	}
}

func TestClosedWindowIgnoresRequests(t *testing.T) {
	w := NewWindow(fastWindow, nil)
	w.Reset(10)
	w.Close()
	if w.RequestExpand() {
		t.Error("closed window should ignore requests")
	}
}

func TestVisibleSlice(t *testing.T) {
	tests := []struct {
		visible, total, want int
	}{
		{10, 0, 0},
		{10, 5, 5},
		{10, 10, 10},
		{10, 25, 10},
		{0, 3, 0},
		{-1, 3, 0},
	}
	for _, tt := range tests {
		rs := Normalizer{}.Normalize(records(tt.total))
		got := VisibleSlice(rs, WindowState{Visible: tt.visible})
		if len(got) != tt.want {
			t.Errorf("VisibleSlice(visible=%d, total=%d) len = %d, want %d", tt.visible, tt.total, len(got), tt.want)
		}
		for i, item := range got {
			if item.Key != rs.At(i).Key {
				t.Errorf("item %d out of order", i)
			}
		}
	}
}

func TestWindowConfigDefaults(t *testing.T) {
	w := NewWindow(WindowConfig{}, nil)
	cfg := w.Config()
	if cfg.Initial != 10 || cfg.Step != 10 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if w.State().Visible != 10 {
		t.Errorf("expected initial visible 10, got %d", w.State().Visible)
	}
}

func TestTimerReplacesPending(t *testing.T) {
	var tm Timer
	var mu sync.Mutex
	fired := []int{}

	for i := 0; i < 5; i++ {
		i := i
		tm.Schedule(20*time.Millisecond, func() {
			mu.Lock()
			fired = append(fired, i)
			mu.Unlock()
		})
	}
	if !tm.Pending() {
		t.Error("expected pending callback")
	}
	waitFor(t, "timer fire", func() bool { return !tm.Pending() })
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != 4 {
		t.Errorf("expected only the last callback, got %v", fired)
	}
}

func TestTimerStop(t *testing.T) {
	var tm Timer
	fired := make(chan struct{}, 1)
	tm.Schedule(10*time.Millisecond, func() { fired <- struct{}{} })

	if !tm.Stop() {
		t.Error("expected Stop to report a pending callback")
	}
	if tm.Stop() {
		t.Error("second Stop should report nothing pending")
	}
	select {
	case <-fired:
		t.Error("stopped callback fired")
	case <-time.After(40 * time.Millisecond):
	}
}
