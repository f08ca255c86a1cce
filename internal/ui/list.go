package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/listing"
	"github.com/charmbracelet/lipgloss"
)

// detailFields are shown after a row's name, in order, when present.
var detailFields = []string{"brand", "fuelType", "transmission", "bodyType", "price", "city", "status"}

// RenderPresentation renders the body of one screen: a placeholder for the
// loading and empty states, otherwise the visible rows with the cursor row
// highlighted. The output never exceeds height lines.
func RenderPresentation(p listing.Presentation, cursor int, spin string, width, height int) string {
	if height < 1 {
		height = 1
	}

	switch p.State {
	case listing.Loading:
		return EmptyState.Render(spin + " Loading...")
	case listing.EmptyNoFilters:
		return EmptyState.Render("Nothing here yet. Press 'r' to refresh.")
	case listing.EmptyNoResults:
		return EmptyState.Render("No matches for " + p.Filters.String() + ". Press 'x' to clear filters.")
	}

	rows := height
	if p.State == listing.LoadingMore {
		rows--
	}
	if rows < 1 {
		rows = 1
	}

	var b strings.Builder
	offset := scrollOffset(cursor, len(p.Items), rows)
	for i := offset; i < len(p.Items) && i < offset+rows; i++ {
		b.WriteString(renderRow(p.Items[i].Payload, i == cursor, width))
		b.WriteString("\n")
	}
	if p.State == listing.LoadingMore {
		b.WriteString(LoadingMore.Render(spin + " Loading more..."))
		b.WriteString("\n")
	}
	return b.String()
}

// scrollOffset returns the first row index such that cursor is on screen.
func scrollOffset(cursor, n, rows int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		cursor = n - 1
	}
	if cursor >= rows {
		return cursor - rows + 1
	}
	return 0
}

// renderRow renders a single record line.
func renderRow(r catalog.Record, selected bool, width int) string {
	name := r.DisplayName()
	if name == "" {
		name = "(unnamed)"
	}

	var details []string
	for _, f := range detailFields {
		if v := r.String(f); v != "" && v != name {
			details = append(details, v)
		}
	}
	detail := strings.Join(details, " · ")

	// Name gets priority; details are cut first.
	avail := width - 4
	if avail < 20 {
		avail = 20
	}
	name = truncateRunes(name, avail)
	rest := avail - utf8.RuneCountInString(name) - 2
	if rest < 4 {
		detail = ""
	} else {
		detail = truncateRunes(detail, rest)
	}

	if selected {
		line := name
		if detail != "" {
			line += "  " + detail
		}
		return SelectedItem.Render(line)
	}
	line := NormalItem.Render(name)
	if detail != "" {
		line = lipgloss.JoinHorizontal(lipgloss.Top, line, " ", DetailText.Render(detail))
	}
	return line
}

// errorLine renders the error overlay for p, or "" when there is none.
func errorLine(p listing.Presentation, width int) string {
	if p.Err == nil {
		return ""
	}
	var msg string
	switch p.Err.Kind {
	case catalog.KindUnreachable:
		msg = "Catalog unreachable. Showing last results. Press 'r' to retry."
		return ErrorStyle.Width(width).Render(msg)
	case catalog.KindMalformedResponse:
		msg = "Catalog returned an unexpected response"
		if p.Err.Message != "" {
			msg += ": " + truncateRunes(p.Err.Message, 60)
		}
		return WarnStyle.Width(width).Render(msg)
	default:
		return ErrorStyle.Width(width).Render(p.Err.Error())
	}
}
