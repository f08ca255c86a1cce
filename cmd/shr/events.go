package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// eventRecord is the subset of an event log line shr understands. It is
// decoded independently of internal/otel so old logs stay readable.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	Token     uint64         `json:"tok"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Endpoint  string         `json:"endpoint"`
	Filters   string         `json:"filters"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// levelRank orders levels by severity. Unknown levels rank as debug.
func levelRank(level string) int {
	switch level {
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

// eventQuery holds the events filters. Empty fields match everything.
type eventQuery struct {
	kindPrefix string
	comp       string
	endpoint   string
	session    string
	minLevel   int
}

func (q eventQuery) match(ev eventRecord) bool {
	switch {
	case q.kindPrefix != "" && !strings.HasPrefix(ev.Kind, q.kindPrefix):
		return false
	case q.comp != "" && ev.Comp != q.comp:
		return false
	case q.endpoint != "" && ev.Endpoint != q.endpoint:
		return false
	case q.session != "" && !strings.HasPrefix(ev.SessionID, q.session):
		return false
	case levelRank(ev.Level) < q.minLevel:
		return false
	}
	return true
}

// rawEvent is one decoded line plus its original bytes.
type rawEvent struct {
	ev  eventRecord
	raw []byte
}

func runEvents() {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	tail := fs.Int("tail", 50, "Number of recent lines to show")
	follow := fs.Bool("f", false, "Follow mode (like tail -f)")
	kind := fs.String("kind", "", "Filter by event kind prefix (e.g. 'fetch')")
	level := fs.String("level", "", "Minimum level: debug, info, warn, error")
	comp := fs.String("comp", "", "Filter by component (e.g. 'listing:variants')")
	endpoint := fs.String("endpoint", "", "Filter by catalog endpoint")
	session := fs.String("session", "", "Filter by session ID prefix")
	rawJSON := fs.Bool("json", false, "Output raw JSON lines")
	fs.Parse(os.Args[1:])

	path := loadConfig().EventsPath()
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Fprintf(os.Stderr, "  No event log at %s. Run showroom or shr list first.\n", path)
		os.Exit(1)
	}
	defer f.Close()

	q := eventQuery{
		kindPrefix: *kind,
		comp:       *comp,
		endpoint:   *endpoint,
		session:    *session,
		minLevel:   levelRank(*level),
	}
	print := func(r rawEvent) {
		if *rawJSON {
			fmt.Println(string(r.raw))
			return
		}
		fmt.Println(formatEvent(r.ev))
	}

	for _, r := range tailEvents(f, *tail, q.match) {
		print(r)
	}
	if !*follow {
		return
	}

	// Poll for lines appended after the initial read.
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		if r, ok := decodeEvent(line); ok && q.match(r.ev) {
			print(r)
		}
	}
}

// decodeEvent parses one JSONL line. Blank and malformed lines are skipped.
func decodeEvent(line []byte) (rawEvent, bool) {
	line = []byte(strings.TrimRight(string(line), "\r\n"))
	if len(line) == 0 {
		return rawEvent{}, false
	}
	var ev eventRecord
	if json.Unmarshal(line, &ev) != nil {
		return rawEvent{}, false
	}
	return rawEvent{ev: ev, raw: line}, true
}

// tailEvents returns the last n events in r accepted by match, oldest first.
func tailEvents(r io.Reader, n int, match func(eventRecord) bool) []rawEvent {
	if n <= 0 {
		return nil
	}
	sc := bufio.NewScanner(r)
	// Events with a large Extra map can exceed the default token size.
	sc.Buffer(make([]byte, 0, 64*1024), 256*1024)

	keep := make([]rawEvent, n)
	seen := 0
	for sc.Scan() {
		ev, ok := decodeEvent(sc.Bytes())
		if !ok || !match(ev.ev) {
			continue
		}
		keep[seen%n] = ev
		seen++
	}

	if seen <= n {
		return keep[:seen]
	}
	start := seen % n
	return append(keep[start:], keep[:start]...)
}

// formatEvent renders one event as a single human-readable line.
func formatEvent(ev eventRecord) string {
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-18s] %-16s", ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}

	if ev.Token != 0 {
		parts = append(parts, fmt.Sprintf("tok=%d", ev.Token))
	}
	if ev.Endpoint != "" {
		parts = append(parts, "endpoint="+ev.Endpoint)
	}
	if ev.Filters != "" {
		parts = append(parts, fmt.Sprintf("filters=%q", ev.Filters))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Msg != "" {
		parts = append(parts, ev.Msg)
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func durPrecision(ms float64) int {
	switch {
	case ms >= 100:
		return 0
	case ms >= 1:
		return 1
	default:
		return 2
	}
}
