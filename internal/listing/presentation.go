package listing

import (
	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
)

// State is what the view should render.
type State int

const (
	Loading State = iota
	EmptyNoFilters
	EmptyNoResults
	Populated
	LoadingMore
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case EmptyNoFilters:
		return "empty_no_filters"
	case EmptyNoResults:
		return "empty_no_results"
	case Populated:
		return "populated"
	case LoadingMore:
		return "loading_more"
	default:
		return "unknown"
	}
}

// Inputs is everything Derive looks at.
type Inputs struct {
	Filters  filter.State
	Fetching bool // a fetch for the current token has not settled
	Results  ResultSet
	Window   WindowState
	Err      *catalog.FetchError
}

// Presentation is a render-ready snapshot of a listing.
type Presentation struct {
	State   State
	Items   []ListItem // visible slice, only when Populated or LoadingMore
	Total   int
	Visible int
	HasMore bool
	Err     *catalog.FetchError // last error overlay, nil after a successful install
	Filters filter.State
}

// Derive computes the presentation. It performs no I/O.
func Derive(in Inputs) Presentation {
	p := Presentation{
		Total:   in.Results.Len(),
		Err:     in.Err,
		Filters: in.Filters,
	}
	switch {
	case in.Fetching:
		p.State = Loading
	case in.Results.Len() == 0 && !in.Filters.Constrained():
		p.State = EmptyNoFilters
	case in.Results.Len() == 0:
		p.State = EmptyNoResults
	case in.Window.Expanding:
		p.State = LoadingMore
	default:
		p.State = Populated
	}
	if p.State == Populated || p.State == LoadingMore {
		p.Items = VisibleSlice(in.Results, in.Window)
		p.Visible = len(p.Items)
		p.HasMore = p.Visible < p.Total
	}
	return p
}
