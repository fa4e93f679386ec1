package command

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func queryServer(t *testing.T, handler func(req queryRequest) queryResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != QueryPath {
			t.Errorf("path = %s, want %s", r.URL.Path, QueryPath)
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(handler(req))
	}))
}

func TestProcessAdoptsSessionID(t *testing.T) {
	server := queryServer(t, func(req queryRequest) queryResponse {
		if req.Query != "how far to the destination" {
			t.Errorf("query = %q", req.Query)
		}
		if req.Context == "" {
			t.Error("context missing from request")
		}
		return queryResponse{
			Response: "About five kilometers remain.",
			Status:   "success",
			Metadata: &queryMetadata{SessionID: "sess-123"},
		}
	})
	defer server.Close()

	p := NewProcessor(server.URL)
	resp, err := p.Process(context.Background(), "how far to the destination", &Context{
		Destination: "Connaught Place",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Text != "About five kilometers remain." {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.SessionID != "sess-123" || p.SessionID() != "sess-123" {
		t.Errorf("session = %q / %q, want sess-123", resp.SessionID, p.SessionID())
	}
	if resp.Fallback {
		t.Error("marked fallback on success")
	}
	if resp.DestinationChange != "" {
		t.Errorf("unexpected destination change %q", resp.DestinationChange)
	}
}

func TestProcessSendsStoredSession(t *testing.T) {
	var got string
	server := queryServer(t, func(req queryRequest) queryResponse {
		got = req.SessionID
		return queryResponse{Response: "ok", Status: "success"}
	})
	defer server.Close()

	p := NewProcessor(server.URL, WithSessionID("sess-existing"))
	if _, err := p.Process(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != "sess-existing" {
		t.Errorf("sent session = %q, want sess-existing", got)
	}
	if p.SessionID() != "sess-existing" {
		t.Errorf("session mutated to %q without metadata", p.SessionID())
	}
}

func TestProcessFallsBackToSecondary(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer primary.Close()

	secondary := queryServer(t, func(req queryRequest) queryResponse {
		return queryResponse{
			Response: "Answer from the proxy.",
			Status:   "success",
			Metadata: &queryMetadata{SessionID: "sess-proxy"},
		}
	})
	defer secondary.Close()

	p := NewProcessor(primary.URL, WithSecondary(secondary.URL))
	resp, err := p.Process(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Text != "Answer from the proxy." {
		t.Errorf("text = %q", resp.Text)
	}
	if p.SessionID() != "sess-proxy" {
		t.Errorf("session = %q", p.SessionID())
	}
}

func TestProcessAllEndpointsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewProcessor(server.URL, WithSecondary("http://127.0.0.1:1"), WithSessionID("sess-keep"))
	resp, err := p.Process(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Process surfaced error %v, want canned fallback", err)
	}
	if !resp.Fallback {
		t.Error("response not marked fallback")
	}
	if resp.Text != FallbackText {
		t.Errorf("text = %q, want canned fallback", resp.Text)
	}
	if p.SessionID() != "sess-keep" {
		t.Errorf("session changed to %q on total failure", p.SessionID())
	}
}

func TestProcessExplicitDestinationChange(t *testing.T) {
	server := queryServer(t, func(req queryRequest) queryResponse {
		return queryResponse{
			Response: "Okay, changing destination to Connaught Place",
			Status:   "success",
			Metadata: &queryMetadata{
				SessionID:         "sess-1",
				DestinationChange: "Connaught Place",
				ReloadMap:         true,
			},
		}
	})
	defer server.Close()

	var mu sync.Mutex
	var changes []string
	p := NewProcessor(server.URL, WithDestinationHandler(func(dest string) {
		mu.Lock()
		changes = append(changes, dest)
		mu.Unlock()
	}))

	resp, err := p.Process(context.Background(), "take me to connaught place", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.DestinationChange != "Connaught Place" {
		t.Errorf("destination = %q", resp.DestinationChange)
	}
	if !resp.ReloadMap {
		t.Error("reload flag lost")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || changes[0] != "Connaught Place" {
		t.Errorf("handler calls = %v", changes)
	}
}

func TestProcessParsesDestinationFromText(t *testing.T) {
	// No structured metadata field; the trigger phrase in the text is
	// the only signal.
	server := queryServer(t, func(req queryRequest) queryResponse {
		return queryResponse{
			Response: "Okay, changing destination to Connaught Place.",
			Status:   "success",
			Metadata: &queryMetadata{SessionID: "sess-2"},
		}
	})
	defer server.Close()

	var got string
	p := NewProcessor(server.URL, WithDestinationHandler(func(dest string) { got = dest }))

	resp, err := p.Process(context.Background(), "go to connaught place instead", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.DestinationChange != "Connaught Place" {
		t.Errorf("destination = %q, want parsed from text", resp.DestinationChange)
	}
	if got != "Connaught Place" {
		t.Errorf("handler saw %q", got)
	}
}

func TestProcessMetadataWinsOverText(t *testing.T) {
	server := queryServer(t, func(req queryRequest) queryResponse {
		return queryResponse{
			Response: "Okay, changing destination to the airport",
			Status:   "success",
			Metadata: &queryMetadata{DestinationChange: "Indira Gandhi International Airport"},
		}
	})
	defer server.Close()

	p := NewProcessor(server.URL)
	resp, err := p.Process(context.Background(), "airport please", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.DestinationChange != "Indira Gandhi International Airport" {
		t.Errorf("destination = %q, want metadata value", resp.DestinationChange)
	}
}

func TestProcessEmptyResponseBecomesFallback(t *testing.T) {
	server := queryServer(t, func(req queryRequest) queryResponse {
		return queryResponse{Response: "   ", Status: "success"}
	})
	defer server.Close()

	p := NewProcessor(server.URL)
	resp, err := p.Process(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !resp.Fallback || resp.Text != FallbackText {
		t.Errorf("response = %+v, want canned fallback", resp)
	}
}

func TestProcessContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor("http://127.0.0.1:1")
	if _, err := p.Process(ctx, "hello", nil); err == nil {
		t.Fatal("no error with cancelled context")
	}
}
