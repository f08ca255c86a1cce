package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abelbrown/showroom/internal/filter"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// userAgent identifies this client to the catalog API.
const userAgent = "showroom/0.3 (+https://github.com/abelbrown/showroom)"

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL       string
	Token         string        // optional bearer token
	Timeout       time.Duration // per-request timeout (default 15s)
	RatePerSecond float64       // client-side request budget (default 4, <0 disables)
}

// Client talks to the remote catalog API over HTTP.
// Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Limit(cfg.RatePerSecond)
	switch {
	case cfg.RatePerSecond < 0:
		limit = rate.Inf
	case cfg.RatePerSecond == 0:
		limit = 4
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 2),
	}
}

// Endpoint returns a Source bound to e.
func (c *Client) Endpoint(e Endpoint) Source {
	return SourceFunc(func(ctx context.Context, p filter.Payload) ([]Record, error) {
		return c.Fetch(ctx, e, p)
	})
}

// Fetch retrieves every record of e matching p. Transport problems return a
// KindUnreachable *FetchError; envelope problems a KindMalformedResponse one.
// No retry is attempted.
func (c *Client) Fetch(ctx context.Context, e Endpoint, p filter.Payload) ([]Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, Unreachable(e.Name, fmt.Errorf("rate limiter wait: %w", err))
	}

	u := c.baseURL + e.Path
	if len(p) > 0 {
		u += "?" + p.Canonical()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, Unreachable(e.Name, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, Unreachable(e.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, Unreachable(e.Name, fmt.Errorf("read response: %w", err))
	}

	// The server is up but not serving: treat like a transport failure.
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, Unreachable(e.Name, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fe := Malformed(e.Name, fmt.Sprintf("status %d", resp.StatusCode))
		if msg := envelopeMessage(body); msg != "" {
			fe.Message += ": " + msg
		}
		return nil, fe
	}

	return DecodeEnvelope(e, body)
}

// DecodeEnvelope extracts e.ResultsField from a response body. A false or
// missing success flag, or a results field that is missing or not an array
// of objects, yields a KindMalformedResponse error.
func DecodeEnvelope(e Endpoint, body []byte) ([]Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, Malformed(e.Name, "body is not a JSON object")
	}

	var (
		success *bool
		message string
	)
	if raw, ok := fields["success"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			success = &b
		}
	}
	if raw, ok := fields["message"]; ok {
		_ = json.Unmarshal(raw, &message)
	}

	if success == nil {
		return nil, Malformed(e.Name, "missing success flag")
	}
	if !*success {
		msg := message
		if msg == "" {
			msg = "success flag is false"
		}
		return nil, Malformed(e.Name, msg)
	}

	raw, ok := fields[e.ResultsField]
	if !ok {
		return nil, Malformed(e.Name, fmt.Sprintf("missing %q field", e.ResultsField))
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, Malformed(e.Name, fmt.Sprintf("%q is not an array", e.ResultsField))
	}

	records := make([]Record, 0, len(elems))
	for i, el := range elems {
		dec := json.NewDecoder(bytes.NewReader(el))
		dec.UseNumber()
		var r Record
		if err := dec.Decode(&r); err != nil || r == nil {
			return nil, Malformed(e.Name, fmt.Sprintf("%s[%d] is not an object", e.ResultsField, i))
		}
		records = append(records, r)
	}
	return records, nil
}

// envelopeMessage best-effort extracts "message" from an error body.
func envelopeMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) != nil {
		return ""
	}
	return env.Message
}
