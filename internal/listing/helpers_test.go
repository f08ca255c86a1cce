package listing

import (
	"context"
	"testing"
	"time"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
)

// pendingCall is one fetch held open until the test replies.
type pendingCall struct {
	ctx     context.Context
	payload filter.Payload
	reply   chan fakeReply
}

type fakeReply struct {
	records []catalog.Record
	err     error
}

func (c *pendingCall) respond(records ...catalog.Record) {
	c.reply <- fakeReply{records: records}
}

func (c *pendingCall) fail(err error) {
	c.reply <- fakeReply{err: err}
}

// fakeSource hands every fetch to the test through calls. It ignores
// cancellation, like a remote that finishes a request nobody wants anymore,
// so tests control completion order exactly.
type fakeSource struct {
	calls chan *pendingCall
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: make(chan *pendingCall, 16)}
}

func (f *fakeSource) Fetch(ctx context.Context, p filter.Payload) ([]catalog.Record, error) {
	c := &pendingCall{ctx: ctx, payload: p, reply: make(chan fakeReply, 1)}
	f.calls <- c
	r := <-c.reply
	return r.records, r.err
}

func (f *fakeSource) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for fetch")
		return nil
	}
}

func (f *fakeSource) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected fetch with payload %v", c.payload)
	case <-time.After(d):
	}
}

// fastWindow keeps debounce tests quick.
var fastWindow = WindowConfig{Initial: 2, Step: 2, Quiet: 30 * time.Millisecond, Latency: 10 * time.Millisecond}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func rec(id any, name string) catalog.Record {
	r := catalog.Record{"name": name}
	if id != nil {
		r["id"] = id
	}
	return r
}

func records(n int) []catalog.Record {
	out := make([]catalog.Record, n)
	for i := range out {
		out[i] = rec(i+1, "car")
	}
	return out
}
