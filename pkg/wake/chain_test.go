package wake

import (
	"context"
	"errors"
	"testing"
)

// stubDetector returns a fixed result or error.
type stubDetector struct {
	name   string
	result Result
	err    error
	calls  int
}

func (s *stubDetector) Name() string { return s.name }

func (s *stubDetector) Detect(ctx context.Context, text string) (Result, error) {
	s.calls++
	if s.err != nil {
		return Result{}, s.err
	}
	r := s.result
	r.Text = text
	return r, nil
}

func TestNewChainRequiresDetector(t *testing.T) {
	if _, err := NewChain(); err != ErrNoDetector {
		t.Errorf("NewChain() error = %v, want ErrNoDetector", err)
	}
}

func TestChainFirstPositiveWins(t *testing.T) {
	first := &stubDetector{
		name:   "api",
		result: Result{Detected: true, Confidence: 0.95, WakeWordFound: "suno saarthi"},
	}
	second := &stubDetector{name: "local"}

	chain, err := NewChain(first, second)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	result, err := chain.Detect(context.Background(), "suno saarthi")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !result.Detected || result.Confidence != 0.95 {
		t.Errorf("result = %+v", result)
	}
	if second.calls != 0 {
		t.Error("second detector consulted after a positive result")
	}
}

func TestChainSkipsFailingDetector(t *testing.T) {
	failing := &stubDetector{name: "api", err: errors.New("connection refused")}
	local := &stubDetector{
		name:   "local",
		result: Result{Detected: true, Confidence: 0.85, WakeWordFound: "hey saarthi"},
	}

	chain, _ := NewChain(failing, local)
	result, err := chain.Detect(context.Background(), "hey saarthi")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !result.Detected {
		t.Error("fallback detector result lost")
	}
	if result.WakeWordFound != "hey saarthi" {
		t.Errorf("wake word = %q", result.WakeWordFound)
	}
}

func TestChainReturnsLastNegative(t *testing.T) {
	first := &stubDetector{name: "api"}
	second := &stubDetector{name: "local"}

	chain, _ := NewChain(first, second)
	result, err := chain.Detect(context.Background(), "play some music")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Detected {
		t.Error("detected with all-negative detectors")
	}
	if result.Text != "play some music" {
		t.Errorf("text = %q, want input echoed", result.Text)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d, %d; want both consulted", first.calls, second.calls)
	}
}

func TestChainAllDetectorsFail(t *testing.T) {
	chain, _ := NewChain(
		&stubDetector{name: "api", err: errors.New("timeout")},
		&stubDetector{name: "backup", err: errors.New("refused")},
	)

	_, err := chain.Detect(context.Background(), "suno saarthi")
	if err == nil {
		t.Fatal("no error when every detector failed")
	}
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("error type %T, want *ChainError", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("aggregated %d errors, want 2", len(chainErr.Errors))
	}
}

func TestChainStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := &stubDetector{name: "api", err: context.Canceled}
	local := &stubDetector{name: "local", result: Result{Detected: true}}

	chain, _ := NewChain(slow, local)
	if _, err := chain.Detect(ctx, "suno saarthi"); err == nil {
		t.Fatal("no error with cancelled context")
	}
	if local.calls != 0 {
		t.Error("chain continued past cancelled context")
	}
}

func TestChainWithRealDetectors(t *testing.T) {
	// API detector against nothing falls through to local matching.
	api := NewAPI("http://127.0.0.1:1")
	chain, _ := NewChain(api, NewLocal())

	result, err := chain.Detect(context.Background(), "hello saarthi")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !result.Detected {
		t.Error("local fallback did not detect canonical phrase")
	}
	if result.Confidence != PrimaryConfidence {
		t.Errorf("confidence = %.2f, want %.2f", result.Confidence, PrimaryConfidence)
	}
}
