package listing

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/abelbrown/showroom/internal/catalog"
)

// ListItem is one renderable row. Key is unique within its ResultSet.
type ListItem struct {
	Key     string
	Payload catalog.Record
}

// ResultSet is the ordered output of one successful fetch.
// It is never mutated after construction; a new fetch builds a new one.
type ResultSet struct {
	items []ListItem
}

// Len returns the number of items.
func (rs ResultSet) Len() int {
	return len(rs.items)
}

// At returns the i-th item.
func (rs ResultSet) At(i int) ListItem {
	return rs.items[i]
}

// Items returns a copy of the items.
func (rs ResultSet) Items() []ListItem {
	out := make([]ListItem, len(rs.items))
	copy(out, rs.items)
	return out
}

// Normalizer turns upstream records into keyed list items.
type Normalizer struct {
	// IDFields overrides catalog.IDFields when non-empty.
	IDFields []string
}

// Normalize converts records into a ResultSet, preserving order.
//
// Keys are "<position>-<id>" when the record carries an identifier, and
// "<position>-item[-<name>]" otherwise. Every key begins with its own decimal
// position followed by '-', so keys are pairwise distinct even when upstream
// repeats an identifier (variants of the same base model share one).
func (n Normalizer) Normalize(records []catalog.Record) ResultSet {
	items := make([]ListItem, len(records))
	for i, r := range records {
		items[i] = ListItem{Key: n.key(i, r), Payload: r}
	}
	return ResultSet{items: items}
}

func (n Normalizer) key(i int, r catalog.Record) string {
	pos := strconv.Itoa(i)
	if id, ok := r.ID(n.IDFields...); ok {
		return pos + "-" + id
	}
	if name := slug(r.DisplayName()); name != "" {
		return pos + "-item-" + name
	}
	return pos + "-item"
}

// slug lowercases s and collapses runs of non-alphanumerics into '-'.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
