package listing

import (
	"context"
	"time"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
)

// Token identifies one fetch initiation. Tokens increase monotonically per
// Orchestrator; only the latest may change controller state.
type Token uint64

// Outcome is a settled fetch. Exactly one of Items or Err is meaningful.
type Outcome struct {
	Token Token
	Items ResultSet
	Err   *catalog.FetchError
	Dur   time.Duration
}

// Orchestrator issues fetches against one source and tracks which request is
// current. It is not safe for concurrent use: Begin, IsCurrent, Current and
// Settle must be serialized by the caller. Fetch itself only reads immutable
// fields and may run on any goroutine.
type Orchestrator struct {
	endpoint   string
	source     catalog.Source
	normalizer Normalizer

	current Token
	cancel  context.CancelFunc
}

// NewOrchestrator creates an orchestrator for one endpoint.
func NewOrchestrator(endpoint string, src catalog.Source, n Normalizer) *Orchestrator {
	return &Orchestrator{endpoint: endpoint, source: src, normalizer: n}
}

// Begin mints a new current token and cancels the request it supersedes.
// The returned context is cancelled when the next Begin happens.
func (o *Orchestrator) Begin(parent context.Context) (Token, context.Context) {
	if o.cancel != nil {
		o.cancel()
	}
	o.current++
	ctx, cancel := context.WithCancel(parent)
	o.cancel = cancel
	return o.current, ctx
}

// Current returns the latest token, or 0 before the first Begin.
func (o *Orchestrator) Current() Token {
	return o.current
}

// IsCurrent reports whether tok is still the latest token.
func (o *Orchestrator) IsCurrent(tok Token) bool {
	return tok != 0 && tok == o.current
}

// Settle releases the context of tok if it is still current.
func (o *Orchestrator) Settle(tok Token) {
	if tok == o.current && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// Stop cancels any in-flight request without minting a token.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// Fetch sends the normalized state to the source and normalizes the records.
// The caller decides whether the outcome is stale.
func (o *Orchestrator) Fetch(ctx context.Context, tok Token, state filter.State) Outcome {
	start := time.Now()
	records, err := o.source.Fetch(ctx, filter.Normalize(state))
	out := Outcome{Token: tok, Dur: time.Since(start)}
	if err != nil {
		out.Err = catalog.AsFetchError(o.endpoint, err)
		return out
	}
	out.Items = o.normalizer.Normalize(records)
	return out
}
