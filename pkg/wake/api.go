package wake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sunosaarthi/go-saarthi/internal/httpc"
)

// DefaultAPITimeout bounds a single detection call. Wake detection
// sits on the hot path of the listening loop, so it fails fast and
// lets the chain fall through to the local detector.
const DefaultAPITimeout = 3 * time.Second

// API defers detection to the gateway's wake endpoint.
type API struct {
	baseURL string
	http    *http.Client
}

// APIOption configures the API detector.
type APIOption func(*API)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) APIOption {
	return func(a *API) {
		if client != nil {
			a.http = client
		}
	}
}

// NewAPI creates a detector that POSTs transcripts to
// baseURL/api/wake/detect.
func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpc.NewClient(DefaultAPITimeout),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name identifies the detector for logging.
func (a *API) Name() string { return "api" }

// Detect sends text to the wake endpoint and returns its verdict.
func (a *API) Detect(ctx context.Context, text string) (Result, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Result{}, fmt.Errorf("wake: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		a.baseURL+"/api/wake/detect", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("wake: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("wake: detect request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Result{}, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("wake: decode response: %w", err)
	}
	if result.Text == "" {
		result.Text = text
	}
	return result, nil
}

// Verify API implements Detector at compile time.
var _ Detector = (*API)(nil)
