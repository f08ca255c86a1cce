package ui

import (
	"strings"

	"github.com/abelbrown/showroom/internal/filter"
	"github.com/charmbracelet/bubbles/textinput"
)

// editMode selects what the text input is editing.
type editMode int

const (
	modeBrowse editMode = iota
	modeFilter
	modeCity
)

func newEditor() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 80
	ti.Width = 40
	ti.PromptStyle = FilterBarPrompt
	ti.PlaceholderStyle = FilterBarCount
	return ti
}

// suggestionsFor returns value completions for a "key=value" filter input.
// Only brand values are completed, from the names in brands.
func suggestionsFor(input string, brands []string) []string {
	name, value, ok := strings.Cut(input, "=")
	if !ok {
		return nil
	}
	k, err := filter.ParseKey(name)
	if err != nil || k != filter.Brand {
		return nil
	}
	return filter.Suggest(value, brands)
}

// completeInput replaces the value part of input with the first suggestion.
func completeInput(input string, brands []string) string {
	s := suggestionsFor(input, brands)
	if len(s) == 0 {
		return input
	}
	name, _, _ := strings.Cut(input, "=")
	return name + "=" + s[0]
}
