package filter

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// maxSuggestions caps the completion list shown in the filter editor.
const maxSuggestions = 5

// Suggest returns up to five known values that fuzzily match input, best
// match first. An exact case-insensitive match is always returned alone.
func Suggest(input string, known []string) []string {
	input = strings.TrimSpace(input)
	if input == "" || len(known) == 0 {
		return nil
	}

	for _, k := range known {
		if strings.EqualFold(k, input) {
			return []string{k}
		}
	}

	matches := fuzzy.Find(input, known)
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// Canonicalize maps a loosely typed value onto the known spelling when the
// fuzzy match is unambiguous. Otherwise input is returned unchanged.
func Canonicalize(input string, known []string) string {
	s := Suggest(input, known)
	if len(s) == 1 {
		return s[0]
	}
	return input
}
