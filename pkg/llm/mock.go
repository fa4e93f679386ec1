package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Mock implements Provider for testing and for running the stack with
// no API keys configured.
type Mock struct {
	// CompleteFunc is called when Complete is invoked.
	CompleteFunc func(ctx context.Context, req *Request) (*Response, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Prompt string
	Time   time.Time
}

// NewMock creates a mock provider that answers with canned replies
// keyed off the prompt, so demos work end to end without a real model.
func NewMock() *Mock {
	return &Mock{
		CompleteFunc: func(ctx context.Context, req *Request) (*Response, error) {
			return &Response{
				Text:       CannedReply(req.Prompt),
				Model:      "mock",
				TokensUsed: 15,
				LatencyMs:  1,
			}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Name identifies the provider.
func (m *Mock) Name() string { return "mock" }

// Complete calls CompleteFunc and records the call.
func (m *Mock) Complete(ctx context.Context, req *Request) (*Response, error) {
	m.record("Complete", req.Prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", "")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close", "")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// record adds a call to the tracking list.
func (m *Mock) record(method, prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Prompt: prompt,
		Time:   time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock that always returns the given error.
func WithError(err error) *Mock {
	return &Mock{
		CompleteFunc: func(ctx context.Context, req *Request) (*Response, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Trigger phrases for the mock's destination replies, most specific
// first so "take me to" wins over "go to".
var mockDestinationTriggers = []string{
	"navigate to",
	"take me to",
	"drive to",
	"go to",
}

// CannedReply produces a plausible co-passenger answer for a prompt.
// Destination requests echo the place back in the phrasing the command
// layer knows how to parse; everything else gets a small-talk reply.
func CannedReply(prompt string) string {
	lower := strings.ToLower(prompt)

	for _, trigger := range mockDestinationTriggers {
		idx := strings.Index(lower, trigger)
		if idx < 0 {
			continue
		}
		dest := prompt[idx+len(trigger):]
		if cut := strings.IndexByte(dest, '\n'); cut >= 0 {
			dest = dest[:cut]
		}
		dest = strings.Trim(dest, ".,!?;: ")
		if dest == "" {
			continue
		}
		return fmt.Sprintf("Okay, changing destination to %s.", dest)
	}

	switch {
	case strings.Contains(lower, "traffic"):
		return "Traffic looks moderate on your route. You should keep moving at a steady pace."
	case strings.Contains(lower, "how long"),
		strings.Contains(lower, "eta"),
		strings.Contains(lower, "how far"):
		return "You're about fifteen minutes away at the current pace."
	case strings.Contains(lower, "hello"),
		strings.Contains(lower, "hi "):
		return "Hello! I'm right here with you. Where would you like to go?"
	default:
		return "I'm here to help with your drive. Ask me about your route, traffic, or a new destination."
	}
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
