package otel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// queueSize bounds events waiting for the writer goroutine.
const queueSize = 4096

// queued pairs the encoded line with the event itself so the ring buffer
// keeps fields the JSON form drops, such as Dur.
type queued struct {
	line []byte
	ev   Event
}

// Logger writes events as JSONL from a single background goroutine.
//
// Emit never blocks: when the queue is full, or the logger is closed, the
// event is counted in Dropped and discarded. Every queued event reaches the
// ring buffer. Only events at or above the file level reach the writer.
type Logger struct {
	session string
	queue   chan queued
	out     io.Writer
	done    chan struct{}

	mu    sync.Mutex // guards ring
	ring  *RingBuffer
	floor atomic.Int32 // minimum rank written to out

	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewLogger starts a Logger writing to w. Call Close to flush.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		session: uuid.NewString(),
		queue:   make(chan queued, queueSize),
		out:     w,
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// NewNullLogger returns a Logger whose file output is discarded. Events
// still reach an attached ring buffer.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func rank(lv Level) int32 {
	switch lv {
	case LevelDebug:
		return 0
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default: // info and unset
		return 1
	}
}

// ParseLevel maps "debug", "info", "warn" or "error" to a Level. Anything
// else is LevelInfo.
func ParseLevel(s string) Level {
	switch lv := Level(strings.ToLower(strings.TrimSpace(s))); lv {
	case LevelDebug, LevelWarn, LevelError:
		return lv
	default:
		return LevelInfo
	}
}

// SetFileLevel drops events below lv from the file. The ring buffer is not
// affected. The default writes everything.
func (l *Logger) SetFileLevel(lv Level) {
	if l == nil {
		return
	}
	l.floor.Store(rank(lv))
}

func (l *Logger) run() {
	defer close(l.done)
	for q := range l.queue {
		if rank(q.ev.Level) >= l.floor.Load() {
			if _, err := l.out.Write(q.line); err != nil {
				l.dropped.Add(1)
			}
		}

		l.mu.Lock()
		ring := l.ring
		l.mu.Unlock()
		if ring != nil {
			ring.Push(q.ev)
		}
	}
}

// Emit queues e, stamping Time when unset and the session id. A nil Logger
// discards it. Safe to call concurrently with Close.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}
	// Close can win the race after the check above; a send on the closed
	// queue then panics and counts as a drop.
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}

	select {
	case l.queue <- queued{line: append(line, '\n'), ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info-level event.
func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Debug emits a debug-level event.
func (l *Logger) Debug(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelDebug, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn-level event.
func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. A nil err is logged with an empty Err.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

// SessionID returns the id stamped on every event of this run.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.session
}

// SetRingBuffer mirrors every later event into rb.
func (l *Logger) SetRingBuffer(rb *RingBuffer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.ring = rb
	l.mu.Unlock()
}

// Dropped returns how many events were discarded.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes queued events and stops the writer. Idempotent. Drops, if
// any, are reported on stderr.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.queue)
		<-l.done

		if n := l.dropped.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "showroom: %d events dropped in session %s\n", n, l.session)
		}
	})
}
