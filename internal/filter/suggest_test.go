package filter

import "testing"

var brands = []string{"Honda", "Hyundai", "Mahindra", "Maruti Suzuki", "Tata", "Toyota"}

func TestSuggestExactMatchWins(t *testing.T) {
	got := Suggest("honda", brands)
	if len(got) != 1 || got[0] != "Honda" {
		t.Errorf("Suggest(honda) = %v, want [Honda]", got)
	}
}

func TestSuggestFuzzy(t *testing.T) {
	got := Suggest("mrt", brands)
	if len(got) == 0 || got[0] != "Maruti Suzuki" {
		t.Errorf("Suggest(mrt) = %v, want Maruti Suzuki first", got)
	}
}

func TestSuggestEmpty(t *testing.T) {
	if got := Suggest("", brands); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := Suggest("tata", nil); got != nil {
		t.Errorf("expected nil without candidates, got %v", got)
	}
}

func TestCanonicalize(t *testing.T) {
	if got := Canonicalize("toyo", brands); got != "Toyota" {
		t.Errorf("Canonicalize(toyo) = %q, want Toyota", got)
	}
	if got := Canonicalize("zzz", brands); got != "zzz" {
		t.Errorf("Canonicalize(zzz) = %q, want input unchanged", got)
	}
}
