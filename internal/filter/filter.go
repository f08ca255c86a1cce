// Package filter models the query constraints applied to catalog listings.
// All functions are pure. No side effects.
package filter

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"sort"
	"strings"
)

// Key identifies a recognized filter constraint.
type Key string

const (
	Budget       Key = "budget"
	FuelType     Key = "fuelType"
	Transmission Key = "transmission"
	Brand        Key = "brand"
	BodyType     Key = "bodyType"

	// City is the ambient location scope shared across screens. It narrows
	// the query like any other key but is not a user-selected constraint.
	City Key = "city"
)

// Keys lists every recognized key in display order.
var Keys = []Key{Budget, FuelType, Transmission, Brand, BodyType, City}

// ErrUnknownKey is returned when a key is not one of Keys.
var ErrUnknownKey = errors.New("unknown filter key")

// ParseKey resolves a user-supplied key name. Matching ignores case,
// underscores and dashes, so "fuel_type" and "FuelType" both resolve.
func ParseKey(s string) (Key, error) {
	want := squash(s)
	for _, k := range Keys {
		if squash(string(k)) == want {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

func squash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}

// State is the set of active constraints. The zero value has no constraints.
// State is a value type: every mutator returns a new State.
type State struct {
	values map[Key]string
}

// New builds a State from key/value pairs. Unknown keys are rejected.
func New(pairs map[Key]string) (State, error) {
	s := State{}
	for k, v := range pairs {
		var err error
		if s, err = s.With(k, v); err != nil {
			return State{}, err
		}
	}
	return s, nil
}

// With returns a copy of s with k set to v. An empty value clears k.
func (s State) With(k Key, v string) (State, error) {
	if !known(k) {
		return s, fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}
	out := State{values: make(map[Key]string, len(s.values)+1)}
	for kk, vv := range s.values {
		out.values[kk] = vv
	}
	if strings.TrimSpace(v) == "" {
		delete(out.values, k)
	} else {
		out.values[k] = v
	}
	return out, nil
}

// Without returns a copy of s with k cleared.
func (s State) Without(k Key) State {
	out, err := s.With(k, "")
	if err != nil {
		return s
	}
	return out
}

// Cleared returns a copy of s with every user-facing constraint removed.
// The ambient City scope is preserved.
func (s State) Cleared() State {
	out := State{}
	if c := s.Get(City); c != "" {
		out.values = map[Key]string{City: c}
	}
	return out
}

// Get returns the trimmed value for k, or "" if unset.
func (s State) Get(k Key) string {
	return strings.TrimSpace(s.values[k])
}

// Constrained reports whether any user-facing constraint is set.
// City does not count: it scopes every screen regardless of filters.
func (s State) Constrained() bool {
	for k := range s.values {
		if k != City && s.Get(k) != "" {
			return true
		}
	}
	return false
}

// Len returns the number of non-empty constraints, City included.
func (s State) Len() int {
	return len(Normalize(s))
}

// String renders s as a canonical query string.
func (s State) String() string {
	return Normalize(s).Canonical()
}

func known(k Key) bool {
	for _, kk := range Keys {
		if kk == k {
			return true
		}
	}
	return false
}

// Payload is the request form of a State: only non-empty constraints.
type Payload map[string]string

// Normalize strips absent and empty values. A key with an empty value is
// never present in the result.
func Normalize(s State) Payload {
	p := make(Payload, len(s.values))
	for k, v := range s.values {
		if v = strings.TrimSpace(v); v != "" {
			p[string(k)] = v
		}
	}
	return p
}

// Values converts p to URL query values.
func (p Payload) Values() url.Values {
	v := make(url.Values, len(p))
	for k, val := range p {
		v.Set(k, val)
	}
	return v
}

// Canonical returns a stable encoding of p with keys sorted.
func (p Payload) Canonical() string {
	return p.Values().Encode()
}

// Keys returns the payload keys in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether a and b impose the same constraints. Empty values
// and insertion order are ignored.
func Equal(a, b State) bool {
	pa, pb := Normalize(a), Normalize(b)
	if len(pa) != len(pb) {
		return false
	}
	for k, v := range pa {
		if pb[k] != v {
			return false
		}
	}
	return true
}

// ParsePair parses a single "key=value" constraint.
func ParsePair(s string) (Key, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", fmt.Errorf("filter: expected key=value, got %q", s)
	}
	k, err := ParseKey(name)
	if err != nil {
		return "", "", err
	}
	return k, strings.TrimSpace(value), nil
}

// ParsePairs folds "key=value" arguments into a State.
func ParsePairs(pairs []string) (State, error) {
	s := State{}
	for _, pair := range pairs {
		k, v, err := ParsePair(pair)
		if err != nil {
			return State{}, err
		}
		if s, err = s.With(k, v); err != nil {
			return State{}, err
		}
	}
	return s, nil
}

// ParseQuery parses a deep-link query string such as
// "brand=Honda&fuelType=Petrol" into a State. A repeated parameter keeps its
// last value. Two spellings of one key (fuel_type and fuelType) are an error.
func ParseQuery(q string) (State, error) {
	vals, err := url.ParseQuery(strings.TrimPrefix(q, "?"))
	if err != nil {
		return State{}, fmt.Errorf("filter: parse query: %w", err)
	}
	s := State{}
	seen := make(map[Key]string, len(vals))
	for _, name := range slices.Sorted(maps.Keys(vals)) {
		vs := vals[name]
		if len(vs) == 0 {
			continue
		}
		k, err := ParseKey(name)
		if err != nil {
			return State{}, err
		}
		if prev, dup := seen[k]; dup {
			return State{}, fmt.Errorf("filter: %q and %q both set %s", prev, name, k)
		}
		seen[k] = name
		if s, err = s.With(k, vs[len(vs)-1]); err != nil {
			return State{}, err
		}
	}
	return s, nil
}
