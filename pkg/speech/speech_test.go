package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRecognitionErrorClassification(t *testing.T) {
	tests := []struct {
		code      Code
		terminal  bool
		transient bool
	}{
		{CodeNoSpeech, false, false},
		{CodeNotAllowed, true, false},
		{CodeServiceNotAllowed, true, false},
		{CodeNetwork, false, true},
		{CodeAborted, false, true},
		{CodeAudioCapture, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := NewRecognitionError(tt.code, "")
			if err.IsTerminal() != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", err.IsTerminal(), tt.terminal)
			}
			if err.IsTransient() != tt.transient {
				t.Errorf("IsTransient() = %v, want %v", err.IsTransient(), tt.transient)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	err := NewRecognitionError(CodeNoSpeech, "nothing heard")
	if code := CodeOf(err); code != CodeNoSpeech {
		t.Errorf("CodeOf = %q, want %q", code, CodeNoSpeech)
	}
	wrapped := fmt.Errorf("capture: %w", err)
	if code := CodeOf(wrapped); code != CodeNoSpeech {
		t.Errorf("CodeOf(wrapped) = %q, want %q", code, CodeNoSpeech)
	}
	if code := CodeOf(errors.New("plain")); code != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", code)
	}
}

func TestMockCaptureScript(t *testing.T) {
	mock := NewMock()
	mock.QueueUtterance("take me to the airport", 0.92)
	mock.QueueCaptureError(CodeNoSpeech)
	mock.QueueSilence()

	result, err := mock.Capture(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Capture 1: %v", err)
	}
	if result.Transcript != "take me to the airport" || !result.Final {
		t.Errorf("result = %+v", result)
	}

	_, err = mock.Capture(context.Background(), time.Second)
	if CodeOf(err) != CodeNoSpeech {
		t.Errorf("Capture 2 error = %v, want no-speech", err)
	}

	result, err = mock.Capture(context.Background(), time.Second)
	if err != nil || result.Transcript != "" {
		t.Errorf("Capture 3 = %+v, %v; want silence", result, err)
	}

	if mock.Captures != 3 {
		t.Errorf("capture count = %d, want 3", mock.Captures)
	}
	if mock.ScriptLen() != 0 {
		t.Errorf("script remaining = %d, want 0", mock.ScriptLen())
	}
}

func TestMockListenDeliversUtterances(t *testing.T) {
	mock := NewMock()

	var mu sync.Mutex
	var heard []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- mock.Listen(ctx, func(r Result) {
			mu.Lock()
			heard = append(heard, r.Transcript)
			mu.Unlock()
		})
	}()

	waitListening(t, mock)
	mock.SimulateUtterance("suno saarthi")
	mock.SimulateUtterance("hello there")
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Listen returned %v after cancel", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(heard) != 2 || heard[0] != "suno saarthi" {
		t.Errorf("heard = %v", heard)
	}
}

func TestMockListenStop(t *testing.T) {
	mock := NewMock()
	done := make(chan error, 1)
	go func() {
		done <- mock.Listen(context.Background(), func(Result) {})
	}()

	waitListening(t, mock)
	if err := mock.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Listen returned %v after Stop", err)
	}
	if mock.Listening() {
		t.Error("still listening after Stop")
	}
}

func TestMockListenError(t *testing.T) {
	mock := NewMock()
	done := make(chan error, 1)
	go func() {
		done <- mock.Listen(context.Background(), func(Result) {})
	}()

	waitListening(t, mock)
	mock.SimulateListenError(NewRecognitionError(CodeNetwork, "offline"))

	err := <-done
	if CodeOf(err) != CodeNetwork {
		t.Errorf("Listen error = %v, want network", err)
	}
}

func TestMockSpeakAndCancel(t *testing.T) {
	mock := NewMock()
	mock.SpeakDelay = 5 * time.Second

	done := make(chan error, 1)
	go func() {
		done <- mock.Speak(context.Background(), "turn right in two hundred meters")
	}()

	deadline := time.After(2 * time.Second)
	for len(mock.SpokenTexts()) == 0 {
		select {
		case <-deadline:
			t.Fatal("Speak never recorded the text")
		case <-time.After(time.Millisecond):
		}
	}

	if err := mock.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancelled Speak returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return after Cancel")
	}
	if mock.Cancels != 1 {
		t.Errorf("cancel count = %d, want 1", mock.Cancels)
	}
}

func TestMockFuncOverrides(t *testing.T) {
	mock := NewMock()
	override := errors.New("override")
	mock.SpeakFunc = func(ctx context.Context, text string) error { return override }
	mock.CaptureFunc = func(ctx context.Context, timeout time.Duration) (Result, error) {
		return Result{Transcript: "forced"}, nil
	}

	if err := mock.Speak(context.Background(), "x"); err != override {
		t.Errorf("Speak = %v, want override error", err)
	}
	result, _ := mock.Capture(context.Background(), 0)
	if result.Transcript != "forced" {
		t.Errorf("Capture = %+v", result)
	}
	if len(mock.SpokenTexts()) != 0 {
		t.Error("override path recorded text")
	}
}

func TestMockPlayCue(t *testing.T) {
	mock := NewMock()
	if err := mock.PlayCue(context.Background(), CueWake); err != nil {
		t.Fatalf("PlayCue: %v", err)
	}
	if len(mock.Cues) != 1 || mock.Cues[0] != CueWake {
		t.Errorf("cues = %v", mock.Cues)
	}
}

func TestMockReset(t *testing.T) {
	mock := NewMock()
	mock.QueueUtterance("left over", 1)
	_ = mock.Speak(context.Background(), "spoken")
	_, _ = mock.Capture(context.Background(), 0)

	mock.Reset()
	if len(mock.SpokenTexts()) != 0 || mock.Captures != 0 || mock.ScriptLen() != 0 {
		t.Error("Reset left captured state behind")
	}
}

func waitListening(t *testing.T, mock *Mock) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !mock.Listening() {
		select {
		case <-deadline:
			t.Fatal("Listen session never became active")
		case <-time.After(time.Millisecond):
		}
	}
}
