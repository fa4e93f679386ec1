package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMockRecordsCalls(t *testing.T) {
	mock := NewMock()
	ctx := context.Background()

	mock.Complete(ctx, &Request{Prompt: "first"})
	mock.Complete(ctx, &Request{Prompt: "second"})
	mock.Health(ctx)

	if got := mock.CallCount("Complete"); got != 2 {
		t.Errorf("Expected 2 Complete calls, got %d", got)
	}
	if got := mock.CallCount("Health"); got != 1 {
		t.Errorf("Expected 1 Health call, got %d", got)
	}

	last := mock.LastCall()
	if last == nil || last.Method != "Health" {
		t.Errorf("Unexpected last call: %+v", last)
	}

	calls := mock.Calls()
	if len(calls) != 3 {
		t.Fatalf("Expected 3 calls, got %d", len(calls))
	}
	if calls[1].Prompt != "second" {
		t.Errorf("Expected recorded prompt, got %q", calls[1].Prompt)
	}

	mock.Reset()
	if len(mock.Calls()) != 0 {
		t.Error("Reset should clear recorded calls")
	}
}

func TestMockWithError(t *testing.T) {
	wantErr := errors.New("boom")
	mock := WithError(wantErr)

	_, err := mock.Complete(context.Background(), &Request{Prompt: "test"})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected wrapped error, got %v", err)
	}
	if err := mock.Health(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Expected health error, got %v", err)
	}
}

func TestCannedReplyDestination(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"navigate to Connaught Place", "Okay, changing destination to Connaught Place."},
		{"Take me to the airport.", "Okay, changing destination to the airport."},
		{"drive to Juhu Beach!", "Okay, changing destination to Juhu Beach."},
		{"can we go to MG Road", "Okay, changing destination to MG Road."},
	}

	for _, tt := range tests {
		if got := CannedReply(tt.prompt); got != tt.want {
			t.Errorf("CannedReply(%q) = %q, want %q", tt.prompt, got, tt.want)
		}
	}
}

func TestCannedReplyDestinationFromFullPrompt(t *testing.T) {
	prompt := BuildPrompt("take me to Bandra", map[string]any{
		"destination": "Andheri",
		"session_id":  "abc",
	})

	got := CannedReply(prompt)
	if got != "Okay, changing destination to Bandra." {
		t.Errorf("Unexpected reply: %q", got)
	}
}

func TestCannedReplySmallTalk(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"how's the traffic ahead?", "Traffic"},
		{"how long until we arrive?", "fifteen minutes"},
		{"what's the eta", "fifteen minutes"},
		{"hello there", "Hello!"},
		{"tell me a story", "help with your drive"},
	}

	for _, tt := range tests {
		got := CannedReply(tt.prompt)
		if !strings.Contains(got, tt.want) {
			t.Errorf("CannedReply(%q) = %q, want substring %q", tt.prompt, got, tt.want)
		}
	}
}

func TestMockCompleteUsesCannedReply(t *testing.T) {
	mock := NewMock()

	resp, err := mock.Complete(context.Background(), &Request{Prompt: "navigate to Pune"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != "Okay, changing destination to Pune." {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.Model != "mock" {
		t.Errorf("Unexpected model: %s", resp.Model)
	}
}
