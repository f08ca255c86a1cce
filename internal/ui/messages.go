// Package ui provides the Bubble Tea TUI for showroom.
package ui

import (
	"github.com/abelbrown/showroom/internal/coord"
	"github.com/abelbrown/showroom/internal/listing"
)

// listingEventMsg carries one controller event to the model.
type listingEventMsg struct {
	Tab   int
	Event listing.Event
}

// listenTimeoutMsg re-arms a listener that saw no events for a while.
type listenTimeoutMsg struct {
	Tab int
}

// WarmResult is sent by the background warmer for each refreshed snapshot.
type WarmResult coord.Result
