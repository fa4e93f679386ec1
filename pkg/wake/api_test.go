package wake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIDetect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/wake/detect" {
			t.Errorf("path = %s, want /api/wake/detect", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("method = %s, want POST", r.Method)
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "suno saarthi" {
			t.Errorf("text = %q, want %q", req.Text, "suno saarthi")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Result{
			Detected:      true,
			Confidence:    0.95,
			Text:          req.Text,
			WakeWordFound: "suno saarthi",
		})
	}))
	defer server.Close()

	api := NewAPI(server.URL)
	result, err := api.Detect(context.Background(), "suno saarthi")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !result.Detected {
		t.Error("not detected")
	}
	if result.Confidence != 0.95 {
		t.Errorf("confidence = %.2f, want 0.95", result.Confidence)
	}
	if result.WakeWordFound != "suno saarthi" {
		t.Errorf("wake word = %q", result.WakeWordFound)
	}
}

func TestAPIDetectNegative(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Result{Detected: false, Text: "turn left"})
	}))
	defer server.Close()

	api := NewAPI(server.URL)
	result, err := api.Detect(context.Background(), "turn left")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Detected {
		t.Error("detected on negative response")
	}
	if result.Text != "turn left" {
		t.Errorf("text = %q, want input echoed", result.Text)
	}
}

func TestAPIDetectServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	api := NewAPI(server.URL)
	_, err := api.Detect(context.Background(), "suno saarthi")
	if err == nil {
		t.Fatal("no error on 500")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", apiErr.StatusCode)
	}
	if !apiErr.IsRetryable() {
		t.Error("500 not classified retryable")
	}
}

func TestAPIDetectUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	api := NewAPI(server.URL)
	if _, err := api.Detect(context.Background(), "suno saarthi"); err == nil {
		t.Fatal("no error against closed server")
	}
}
