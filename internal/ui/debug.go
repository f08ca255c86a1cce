package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/showroom/internal/otel"
)

// Lines taken by the DebugPanel border and padding. Keep in sync with styles.go.
const debugPanelChrome = 4

// recentEvents is how many events the overlay lists.
const recentEvents = 20

type statRow struct {
	label  string
	format string
	kinds  [][]otel.EventKind // each entry is summed into one %d verb
}

var debugStats = []statRow{
	{"Fetches", "%d started, %d complete, %d errors, %d stale", [][]otel.EventKind{
		{otel.KindFetchStart, otel.KindRefreshStart},
		{otel.KindFetchComplete},
		{otel.KindFetchError},
		{otel.KindFetchStale},
	}},
	{"Window", "%d resets, %d expansions", [][]otel.EventKind{
		{otel.KindWindowReset},
		{otel.KindWindowExpand},
	}},
	{"Filters", "%d changes, %d city changes", [][]otel.EventKind{
		{otel.KindFilterChange},
		{otel.KindCityChange},
	}},
	{"Snapshots", "%d saved, %d errors", [][]otel.EventKind{
		{otel.KindSnapshotSave},
		{otel.KindSnapshotError},
	}},
}

func (r statRow) render(counts map[otel.EventKind]int) string {
	args := make([]any, len(r.kinds))
	for i, group := range r.kinds {
		n := 0
		for _, k := range group {
			n += counts[k]
		}
		args[i] = n
	}
	return fmt.Sprintf("  %-11s %s", r.label+":", fmt.Sprintf(r.format, args...))
}

// debugOverlay renders event counts from ring and its most recent events,
// narrowed to comp when it is non-empty. Returns "" for a nil ring.
func debugOverlay(ring *otel.RingBuffer, comp string, width, height int) string {
	if ring == nil {
		return ""
	}

	counts := ring.Stats()
	lines := []string{DebugHeaderStyle.Render("Listing Stats")}
	for _, row := range debugStats {
		lines = append(lines, row.render(counts))
	}
	lines = append(lines, fmt.Sprintf("  %-11s %d / %d events", "Buffer:", ring.Len(), ring.Cap()), "")

	title := "Recent Events"
	if comp != "" {
		title = fmt.Sprintf("%s (%s)", title, comp)
	}
	lines = append(lines, DebugHeaderStyle.Render(title))
	now := time.Now()
	for _, e := range ring.Find(otel.Filter{Comp: comp}, recentEvents) {
		lines = append(lines, describeEvent(e, now))
	}

	if limit := max(height-debugPanelChrome, 1); len(lines) > limit {
		lines = lines[:limit]
	}
	w := min(86, width-4)
	return DebugPanel.Width(max(w, 20)).Render(strings.Join(lines, "\n"))
}

// describeEvent renders one ring event as an overlay line.
func describeEvent(e otel.Event, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %6s  %-16s", formatAge(now.Sub(e.Time)), e.Kind)
	if e.Token != 0 {
		fmt.Fprintf(&b, "  tok:%d", e.Token)
	}
	if e.Count != 0 {
		fmt.Fprintf(&b, "  n:%d", e.Count)
	}
	for _, s := range []string{e.Filters, e.Msg} {
		if s != "" {
			b.WriteString("  " + truncateRunes(s, 30))
		}
	}
	if e.Err != "" {
		b.WriteString("  ERR:" + truncateRunes(e.Err, 30))
	}
	return b.String()
}

// formatAge renders d compactly. Clock skew can make it negative.
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// truncateRunes shortens s to at most n runes, marking the cut with "…".
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
