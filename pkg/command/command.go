// Package command submits voice transcripts to the language-model
// endpoint and interprets the reply.
//
// A Processor posts the transcript with a context snapshot to the
// primary endpoint and falls back to the secondary on failure. When
// both are down it answers with a canned apology so the voice cycle
// never stalls on the network. Replies are scanned for destination
// changes, either an explicit metadata field or a trigger phrase
// embedded in the response text.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sunosaarthi/go-saarthi/internal/httpc"
	"github.com/sunosaarthi/go-saarthi/internal/log"
)

// FallbackText is spoken when every endpoint fails.
const FallbackText = "I'm having trouble generating a response. Please try again later."

// DefaultTimeout bounds a single endpoint call.
const DefaultTimeout = 15 * time.Second

// QueryPath is the LLM query route on the gateway.
const QueryPath = "/api/llm/query"

// Response is the interpreted endpoint reply.
type Response struct {
	// Text is the assistant's reply, always non-empty.
	Text string

	// SessionID is the session identifier after this turn.
	SessionID string

	// DestinationChange is the new destination when the reply
	// requested one, empty otherwise.
	DestinationChange string

	// NewDirections carries the endpoint's pre-fetched directions for
	// a destination change, when it sent any.
	NewDirections json.RawMessage

	// ReloadMap reports whether dependent state should refresh.
	ReloadMap bool

	// Fallback reports whether Text is the canned local fallback
	// rather than a model reply.
	Fallback bool
}

// Processor drives the transcript → response exchange.
type Processor struct {
	primary   string
	secondary string
	http      *http.Client
	logger    *slog.Logger

	mu            sync.Mutex
	sessionID     string
	onDestination func(destination string)
}

// Option configures the processor.
type Option func(*Processor)

// WithSecondary sets the fallback endpoint base URL.
func WithSecondary(baseURL string) Option {
	return func(p *Processor) { p.secondary = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Processor) {
		if client != nil {
			p.http = client
		}
	}
}

// WithSessionID seeds the session identifier.
func WithSessionID(id string) Option {
	return func(p *Processor) { p.sessionID = id }
}

// WithDestinationHandler registers the callback invoked when a reply
// changes the destination.
func WithDestinationHandler(fn func(destination string)) Option {
	return func(p *Processor) { p.onDestination = fn }
}

// NewProcessor creates a processor against the primary endpoint base
// URL.
func NewProcessor(primary string, opts ...Option) *Processor {
	p := &Processor{
		primary: strings.TrimSuffix(primary, "/"),
		http:    httpc.NewClient(DefaultTimeout),
		logger:  log.With("component", "command"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SessionID returns the current session identifier.
func (p *Processor) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// SetSessionID replaces the session identifier.
func (p *Processor) SetSessionID(id string) {
	p.mu.Lock()
	p.sessionID = id
	p.mu.Unlock()
}

type queryRequest struct {
	Query     string `json:"query"`
	Context   string `json:"context,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Response string         `json:"response"`
	Status   string         `json:"status"`
	Metadata *queryMetadata `json:"metadata"`
}

type queryMetadata struct {
	SessionID         string          `json:"session_id"`
	DestinationChange string          `json:"destination_change"`
	NewDirections     json.RawMessage `json:"new_directions,omitempty"`
	ReloadMap         bool            `json:"reload_map"`
}

// Process submits a transcript with its context snapshot. The primary
// endpoint is tried first, then the secondary; when both fail the
// canned fallback is returned with a nil error and the session id is
// left unchanged. The only error paths are context cancellation and a
// reply too malformed to use.
func (p *Processor) Process(ctx context.Context, transcript string, cctx *Context) (*Response, error) {
	payload := queryRequest{
		Query:     strings.TrimSpace(transcript),
		SessionID: p.SessionID(),
	}
	if cctx != nil {
		payload.Context = cctx.Flatten()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("command: marshal request: %w", err)
	}

	var lastErr error
	for _, endpoint := range p.endpoints() {
		reply, err := p.post(ctx, endpoint, body)
		if err == nil {
			return p.interpret(reply), nil
		}
		lastErr = err
		p.logger.Warn("llm endpoint failed, trying next",
			"endpoint", endpoint,
			"error", err,
		)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	p.logger.Warn("all llm endpoints failed, using local fallback", "error", lastErr)
	return &Response{
		Text:      FallbackText,
		SessionID: p.SessionID(),
		Fallback:  true,
	}, nil
}

func (p *Processor) endpoints() []string {
	endpoints := make([]string, 0, 2)
	if p.primary != "" {
		endpoints = append(endpoints, p.primary)
	}
	if p.secondary != "" {
		endpoints = append(endpoints, p.secondary)
	}
	return endpoints
}

func (p *Processor) post(ctx context.Context, baseURL string, body []byte) (*queryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+QueryPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("command: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("command: query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	var reply queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("command: decode response: %w", err)
	}
	return &reply, nil
}

// interpret extracts the response fields, adopts the returned session
// id and fires the destination handler.
func (p *Processor) interpret(reply *queryResponse) *Response {
	out := &Response{Text: strings.TrimSpace(reply.Response)}
	if out.Text == "" {
		out.Text = FallbackText
		out.Fallback = true
	}

	if meta := reply.Metadata; meta != nil {
		if meta.SessionID != "" {
			p.SetSessionID(meta.SessionID)
		}
		out.DestinationChange = strings.TrimSpace(meta.DestinationChange)
		out.NewDirections = meta.NewDirections
		out.ReloadMap = meta.ReloadMap
	}
	out.SessionID = p.SessionID()

	// The metadata field wins; the text scan is the fallback for
	// replies where the model merely phrased the change.
	if out.DestinationChange == "" {
		if dest, ok := ParseDestinationChange(out.Text); ok {
			out.DestinationChange = dest
		}
	}

	if out.DestinationChange != "" {
		p.logger.Info("destination change detected", "destination", out.DestinationChange)
		if p.onDestination != nil {
			p.onDestination(out.DestinationChange)
		}
	}
	return out
}
