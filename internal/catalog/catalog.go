// Package catalog is the client side of the remote vehicle catalog API.
//
// The API is consumed as a black box. Every endpoint takes an optional set of
// filter constraints and answers with an envelope:
//
//	{"success": true, "<resultsField>": [ {...}, ... ], "message": "..."}
//
// Records are passed through opaquely as [Record]. The only fields this
// package interprets are an optional identifier and a display name.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/abelbrown/showroom/internal/filter"
)

// Source fetches the full filtered record set for one endpoint.
// Implementations must be safe for concurrent use.
type Source interface {
	Fetch(ctx context.Context, p filter.Payload) ([]Record, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, p filter.Payload) ([]Record, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, p filter.Payload) ([]Record, error) {
	return f(ctx, p)
}

// Endpoint describes one listing endpoint of the catalog API.
type Endpoint struct {
	Name         string // short name used in config, logs and the store
	Path         string // path relative to the base URL
	ResultsField string // envelope field holding the record array
	Title        string // human label for the screen
}

// Known endpoints.
var (
	Variants  = Endpoint{Name: "variants", Path: "/api/variants/search", ResultsField: "variants", Title: "Browse"}
	Brands    = Endpoint{Name: "brands", Path: "/api/brands", ResultsField: "brands", Title: "Brands"}
	Dealers   = Endpoint{Name: "dealers", Path: "/api/dealers", ResultsField: "dealers", Title: "Dealers"}
	Vehicles  = Endpoint{Name: "vehicles", Path: "/api/me/vehicles", ResultsField: "vehicles", Title: "My Vehicles"}
	Enquiries = Endpoint{Name: "enquiries", Path: "/api/me/enquiries", ResultsField: "enquiries", Title: "My Enquiries"}
)

// Endpoints lists the known endpoints in tab order.
var Endpoints = []Endpoint{Variants, Brands, Dealers, Vehicles, Enquiries}

// LookupEndpoint finds a known endpoint by name.
func LookupEndpoint(name string) (Endpoint, error) {
	for _, e := range Endpoints {
		if strings.EqualFold(e.Name, strings.TrimSpace(name)) {
			return e, nil
		}
	}
	return Endpoint{}, fmt.Errorf("catalog: unknown endpoint %q", name)
}

// Record is one opaque upstream record.
type Record map[string]any

// IDFields are consulted in order for a record identifier.
var IDFields = []string{"id", "_id"}

// NameFields are consulted in order for a record display name.
var NameFields = []string{"name", "title", "variantName", "model"}

// ID returns the first non-empty identifier found in fields (IDFields when
// none are given). Strings and numbers are accepted. Any other type, or an
// empty string, counts as absent.
func (r Record) ID(fields ...string) (string, bool) {
	if len(fields) == 0 {
		fields = IDFields
	}
	for _, f := range fields {
		if s, ok := scalar(r[f]); ok {
			return s, true
		}
	}
	return "", false
}

// DisplayName returns the first non-empty name found in NameFields.
func (r Record) DisplayName() string {
	for _, f := range NameFields {
		if s, ok := r[f].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// String returns field as display text, or "" when absent or not scalar.
func (r Record) String(field string) string {
	s, _ := scalar(r[field])
	return s
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		return x, x != ""
	case json.Number:
		return x.String(), x.String() != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	}
	return "", false
}
