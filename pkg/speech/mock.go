package speech

import (
	"context"
	"sync"
	"time"
)

type captureStep struct {
	result Result
	err    error
	delay  time.Duration
}

// Mock is a scriptable Capability for tests and the headless demo.
// Capture consumes a queued script; Listen delivers whatever
// SimulateUtterance injects.
type Mock struct {
	mu sync.Mutex

	// Configurable behavior
	ListenFunc  func(ctx context.Context, fn func(Result)) error
	CaptureFunc func(ctx context.Context, timeout time.Duration) (Result, error)
	StopFunc    func() error
	SpeakFunc   func(ctx context.Context, text string) error
	CancelFunc  func() error
	PlayCueFunc func(ctx context.Context, cue Cue) error
	CloseFunc   func() error

	// SpeakDelay simulates playback duration; zero returns
	// immediately.
	SpeakDelay time.Duration

	// Captured calls for assertions
	Spoken   []string
	Cues     []Cue
	Captures int
	Stops    int
	Cancels  int

	script []captureStep

	listenFn   func(Result)
	listenStop chan struct{}
	listenErr  chan error
	speakStop  chan struct{}
	listening  bool
}

// NewMock creates a mock speech capability.
func NewMock() *Mock {
	return &Mock{listenErr: make(chan error, 1)}
}

// QueueUtterance appends a transcript to the capture script.
func (m *Mock) QueueUtterance(text string, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, captureStep{
		result: Result{Transcript: text, Confidence: confidence, Final: true},
	})
}

// QueueCaptureError appends a recognition failure to the capture
// script.
func (m *Mock) QueueCaptureError(code Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, captureStep{err: NewRecognitionError(code, "")})
}

// QueueSilence appends an empty capture, standing in for a silence
// timeout.
func (m *Mock) QueueSilence() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, captureStep{})
}

// Listen implements Recognizer. It blocks until ctx is cancelled,
// Stop is called, or an injected error arrives.
func (m *Mock) Listen(ctx context.Context, fn func(Result)) error {
	if m.ListenFunc != nil {
		return m.ListenFunc(ctx, fn)
	}

	stop := make(chan struct{})
	m.mu.Lock()
	m.listenFn = fn
	m.listenStop = stop
	m.listening = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.listening = false
		m.listenFn = nil
		m.listenStop = nil
		m.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil
	case <-stop:
		return nil
	case err := <-m.listenErr:
		return err
	}
}

// Capture implements Recognizer by consuming the next scripted step.
// An empty script reads as silence: the zero Result is returned as if
// the timeout had elapsed.
func (m *Mock) Capture(ctx context.Context, timeout time.Duration) (Result, error) {
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, timeout)
	}

	m.mu.Lock()
	m.Captures++
	if len(m.script) == 0 {
		m.mu.Unlock()
		return Result{}, nil
	}
	step := m.script[0]
	m.script = m.script[1:]
	m.mu.Unlock()

	if step.delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(step.delay):
		}
	}
	return step.result, step.err
}

// Stop implements Recognizer.
func (m *Mock) Stop() error {
	if m.StopFunc != nil {
		return m.StopFunc()
	}
	m.mu.Lock()
	m.Stops++
	stop := m.listenStop
	m.listenStop = nil
	m.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	return nil
}

// Speak implements Synthesizer, recording the text and simulating
// playback for SpeakDelay.
func (m *Mock) Speak(ctx context.Context, text string) error {
	if m.SpeakFunc != nil {
		return m.SpeakFunc(ctx, text)
	}

	stop := make(chan struct{})
	m.mu.Lock()
	m.Spoken = append(m.Spoken, text)
	m.speakStop = stop
	delay := m.SpeakDelay
	m.mu.Unlock()

	if delay == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return nil
	case <-time.After(delay):
		return nil
	}
}

// Cancel implements Synthesizer, ending any active utterance.
func (m *Mock) Cancel() error {
	if m.CancelFunc != nil {
		return m.CancelFunc()
	}
	m.mu.Lock()
	m.Cancels++
	stop := m.speakStop
	m.speakStop = nil
	m.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	return nil
}

// PlayCue implements CuePlayer, recording the cue.
func (m *Mock) PlayCue(ctx context.Context, cue Cue) error {
	if m.PlayCueFunc != nil {
		return m.PlayCueFunc(ctx, cue)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cues = append(m.Cues, cue)
	return nil
}

// Close implements Capability.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return m.Stop()
}

// Test helpers

// SimulateUtterance delivers a final transcript to an active Listen
// session.
func (m *Mock) SimulateUtterance(text string) {
	m.mu.Lock()
	fn := m.listenFn
	m.mu.Unlock()
	if fn != nil {
		fn(Result{Transcript: text, Confidence: 0.9, Final: true})
	}
}

// SimulateListenError fails the active (or next) Listen session.
func (m *Mock) SimulateListenError(err error) {
	select {
	case m.listenErr <- err:
	default:
	}
}

// Listening reports whether a Listen session is active.
func (m *Mock) Listening() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listening
}

// SpokenTexts returns a copy of everything spoken so far.
func (m *Mock) SpokenTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.Spoken...)
}

// ScriptLen reports how many capture steps remain queued.
func (m *Mock) ScriptLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}

// Reset clears all captured data and the remaining script.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Spoken = nil
	m.Cues = nil
	m.Captures = 0
	m.Stops = 0
	m.Cancels = 0
	m.script = nil
}

// Ensure Mock implements the capability interfaces.
var (
	_ Capability = (*Mock)(nil)
	_ CuePlayer  = (*Mock)(nil)
)
