package listing

import (
	"testing"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
)

func TestDerive(t *testing.T) {
	honda, _ := filter.New(map[filter.Key]string{filter.Brand: "Honda"})
	cityOnly, _ := filter.New(map[filter.Key]string{filter.City: "Pune"})
	three := Normalizer{}.Normalize(records(3))
	malformed := catalog.Malformed("variants", "bad query")

	tests := []struct {
		name        string
		in          Inputs
		want        State
		wantVisible int
		wantMore    bool
	}{
		{"loading", Inputs{Fetching: true}, Loading, 0, false},
		{"loading hides prior results", Inputs{Fetching: true, Results: three, Window: WindowState{Visible: 2}}, Loading, 0, false},
		{"empty no filters", Inputs{}, EmptyNoFilters, 0, false},
		{"city alone is not a filter", Inputs{Filters: cityOnly}, EmptyNoFilters, 0, false},
		{"empty with brand", Inputs{Filters: honda}, EmptyNoResults, 0, false},
		{"populated", Inputs{Results: three, Window: WindowState{Visible: 2}}, Populated, 2, true},
		{"populated all visible", Inputs{Results: three, Window: WindowState{Visible: 10}}, Populated, 3, false},
		{"loading more", Inputs{Results: three, Window: WindowState{Visible: 2, Expanding: true}}, LoadingMore, 2, true},
		{"error over empty", Inputs{Filters: honda, Err: malformed}, EmptyNoResults, 0, false},
		{"error over populated", Inputs{Results: three, Window: WindowState{Visible: 2}, Err: malformed}, Populated, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Derive(tt.in)
			if p.State != tt.want {
				t.Errorf("state = %v, want %v", p.State, tt.want)
			}
			if len(p.Items) != tt.wantVisible || p.Visible != tt.wantVisible {
				t.Errorf("visible = %d/%d, want %d", len(p.Items), p.Visible, tt.wantVisible)
			}
			if p.HasMore != tt.wantMore {
				t.Errorf("HasMore = %v, want %v", p.HasMore, tt.wantMore)
			}
			if p.Err != tt.in.Err {
				t.Error("error overlay must pass through unchanged")
			}
		})
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		Loading:        "loading",
		EmptyNoFilters: "empty_no_filters",
		EmptyNoResults: "empty_no_results",
		Populated:      "populated",
		LoadingMore:    "loading_more",
		State(99):      "unknown",
	}
	for s, w := range want {
		if s.String() != w {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), w)
		}
	}
}
