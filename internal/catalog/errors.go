package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed fetch.
type ErrorKind int

const (
	// KindUnreachable is a network or transport failure.
	KindUnreachable ErrorKind = iota + 1

	// KindMalformedResponse is a decoded envelope that reported failure or
	// did not carry the expected results array. The upstream schema drifts,
	// so this degrades to an explained empty state rather than a crash.
	KindMalformedResponse

	// KindStale marks a result superseded by a newer request. It is never
	// surfaced to the view.
	KindStale
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindMalformedResponse:
		return "malformed_response"
	case KindStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Sentinels matched by FetchError.Is.
var (
	ErrUnreachable       = errors.New("catalog unreachable")
	ErrMalformedResponse = errors.New("catalog response malformed")
	ErrStale             = errors.New("catalog response stale")
)

// FetchError is the uniform error produced by a Source.
type FetchError struct {
	Kind     ErrorKind
	Endpoint string
	Message  string // upstream message or local explanation
	Err      error  // underlying cause, may be nil
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("catalog %s: %s", e.Endpoint, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	case ErrStale:
		return e.Kind == KindStale
	}
	return false
}

// Unreachable builds a KindUnreachable error.
func Unreachable(endpoint string, err error) *FetchError {
	return &FetchError{Kind: KindUnreachable, Endpoint: endpoint, Err: err}
}

// Malformed builds a KindMalformedResponse error.
func Malformed(endpoint, message string) *FetchError {
	return &FetchError{Kind: KindMalformedResponse, Endpoint: endpoint, Message: message}
}

// AsFetchError classifies any error returned by a Source. Errors that are not
// already a *FetchError are treated as transport failures.
func AsFetchError(endpoint string, err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return Unreachable(endpoint, err)
}
