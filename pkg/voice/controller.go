package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sunosaarthi/go-saarthi/internal/log"
	"github.com/sunosaarthi/go-saarthi/pkg/command"
	"github.com/sunosaarthi/go-saarthi/pkg/speech"
	"github.com/sunosaarthi/go-saarthi/pkg/wake"
)

// captureOutcome classifies how a command capture ended.
type captureOutcome int

const (
	captureOK        captureOutcome = iota // usable transcript
	captureSkip                            // silence or too-short transcript
	captureSimulated                       // recognition kept failing, answer locally
	captureStopped                         // context cancelled or terminal error
)

// Controller drives the wake → command → response cycle on its own
// goroutine. Construct with NewController, then Start/Stop.
type Controller struct {
	speech    speech.Capability
	cues      speech.CuePlayer
	detector  wake.Detector
	processor Processor

	cfg       Config
	callbacks Callbacks
	contextFn func() *command.Context
	session   *Session
	metrics   *MetricsCollector
	logger    *slog.Logger

	mu      sync.Mutex
	phase   Phase
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets the cycle tuning. Zero fields fall back to defaults.
func WithConfig(cfg Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}

// WithCallbacks installs observer hooks.
func WithCallbacks(cb Callbacks) Option {
	return func(c *Controller) { c.callbacks = cb }
}

// WithCuePlayer sets the player for audio cues. By default the speech
// capability is used when it implements speech.CuePlayer.
func WithCuePlayer(p speech.CuePlayer) Option {
	return func(c *Controller) { c.cues = p }
}

// WithContextBuilder sets the function that snapshots the navigation
// context sent along with each command.
func WithContextBuilder(fn func() *command.Context) Option {
	return func(c *Controller) { c.contextFn = fn }
}

// NewController wires a speech capability, wake detector, and command
// processor into an interaction controller.
func NewController(capability speech.Capability, detector wake.Detector, processor Processor, opts ...Option) (*Controller, error) {
	if capability == nil {
		return nil, ErrSpeechRequired
	}
	if detector == nil {
		return nil, ErrDetectorRequired
	}
	if processor == nil {
		return nil, ErrProcessorRequired
	}

	c := &Controller{
		speech:    capability,
		detector:  detector,
		processor: processor,
		cfg:       DefaultConfig(),
		session:   &Session{},
		metrics:   NewMetricsCollector(),
		phase:     PhaseIdle,
		logger:    log.With("component", "voice.controller"),
	}
	if cues, ok := capability.(speech.CuePlayer); ok {
		c.cues = cues
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg = c.cfg.withDefaults()
	return c, nil
}

// Start launches the interaction cycle. It returns ErrAlreadyRunning
// while a previous cycle is active.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.running = true
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	c.logger.Info("voice controller starting",
		"silence_timeout", c.cfg.SilenceTimeout,
		"no_speech_retries", c.cfg.NoSpeechRetries)
	c.transition(PhaseWakeListening)

	go func() {
		defer close(done)
		c.run(runCtx)
	}()
	return nil
}

// Stop ends the interaction cycle and waits for it to wind down.
// Stopping a stopped controller is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.running = false
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
	if err := c.speech.Stop(); err != nil {
		c.logger.Debug("stop recognition failed", "error", err)
	}
	if err := c.speech.Cancel(); err != nil {
		c.logger.Debug("cancel synthesis failed", "error", err)
	}
	c.transition(PhaseIdle)
	c.logger.Info("voice controller stopped")
}

// Running reports whether the interaction cycle is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Phase returns the current interaction phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Session returns the shared interaction state.
func (c *Controller) Session() *Session {
	return c.session
}

// Metrics returns the cycle metrics collector.
func (c *Controller) Metrics() *MetricsCollector {
	return c.metrics
}

// Mute suppresses or restores spoken output. Muting cancels any
// in-flight synthesis immediately.
func (c *Controller) Mute(muted bool) {
	c.session.setMuted(muted)
	if muted {
		if err := c.speech.Cancel(); err != nil {
			c.logger.Debug("cancel synthesis failed", "error", err)
		}
		c.logger.Info("voice output muted")
		return
	}
	c.logger.Info("voice output unmuted")
}

// Muted reports whether spoken output is suppressed.
func (c *Controller) Muted() bool {
	return c.session.Muted()
}

func (c *Controller) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		c.transition(PhaseIdle)
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		res, ok := c.waitWake(ctx)
		if !ok {
			return
		}
		c.metrics.MarkWake()
		c.logger.Info("wake phrase detected", "text", res.Text, "confidence", res.Confidence)
		if c.callbacks.OnWake != nil {
			c.callbacks.OnWake(res.Text, res.Confidence)
		}

		if !c.transition(PhaseCommandListening) {
			return
		}
		c.playCue(ctx, speech.CueWake)

		transcript, outcome := c.captureCommand(ctx)
		switch outcome {
		case captureStopped:
			return

		case captureSkip:
			c.metrics.RecordTimeout()
			if c.transition(PhaseSpeaking) {
				c.speak(ctx, c.cfg.ClarificationPrompt)
			}

		case captureSimulated:
			c.speakResponse(ctx, &command.Response{Text: c.cfg.LocalResponse, Fallback: true})

		case captureOK:
			c.metrics.MarkTranscript()
			c.session.setLastTranscript(transcript)
			if c.callbacks.OnTranscript != nil {
				c.callbacks.OnTranscript(transcript)
			}
			if !c.transition(PhaseProcessing) {
				return
			}
			resp := c.processCommand(ctx, transcript)
			if ctx.Err() != nil {
				return
			}
			c.metrics.MarkResponse()
			c.speakResponse(ctx, resp)
			c.metrics.MarkSpoken()
			c.session.bumpCycles()
		}

		if ctx.Err() != nil {
			return
		}
		if !c.transition(PhaseWakeListening) {
			return
		}
	}
}

// waitWake listens continuously until the wake phrase is detected.
// It returns false when the controller should stop.
func (c *Controller) waitWake(ctx context.Context) (wake.Result, bool) {
	for {
		if ctx.Err() != nil {
			return wake.Result{}, false
		}

		res, err := c.scanForWake(ctx)
		if err == nil {
			return res, true
		}
		if ctx.Err() != nil {
			return wake.Result{}, false
		}

		c.metrics.RecordError()
		c.notifyError(err)

		var rerr *speech.RecognitionError
		if errors.As(err, &rerr) && rerr.IsTerminal() {
			c.logger.Error("recognition not permitted, stopping", "error", err)
			return wake.Result{}, false
		}

		c.logger.Warn("wake listening failed, restarting", "error", err)
		if !c.retryPause(ctx, PhaseWakeListening) {
			return wake.Result{}, false
		}
	}
}

// scanForWake runs one continuous recognition session, checking every
// final transcript against the wake detector. It returns the detection,
// or an error when the session ended without one.
func (c *Controller) scanForWake(ctx context.Context) (wake.Result, error) {
	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	transcripts := make(chan speech.Result, 8)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.speech.Listen(listenCtx, func(res speech.Result) {
			select {
			case transcripts <- res:
			default:
			}
		})
	}()

	for {
		select {
		case <-ctx.Done():
			cancel()
			<-errCh
			return wake.Result{}, ctx.Err()

		case err := <-errCh:
			if ctx.Err() != nil {
				return wake.Result{}, ctx.Err()
			}
			if err == nil {
				err = speech.NewRecognitionError(speech.CodeAborted, "recognition ended unexpectedly")
			}
			return wake.Result{}, err

		case res := <-transcripts:
			if !res.Final || strings.TrimSpace(res.Transcript) == "" {
				continue
			}
			det, err := c.detector.Detect(ctx, res.Transcript)
			if err != nil {
				c.logger.Warn("wake detection failed", "error", err)
				continue
			}
			if det.Detected {
				cancel()
				<-errCh
				return det, nil
			}
			c.logger.Debug("no wake phrase", "text", res.Transcript)
		}
	}
}

// captureCommand records one utterance after the wake phrase. It
// applies the retry policy: no-speech errors are retried up to the
// configured budget, other recognition errors once before falling back
// to a local response, permission errors stop the controller.
func (c *Controller) captureCommand(ctx context.Context) (string, captureOutcome) {
	noSpeech := 0
	transient := 0

	for {
		if ctx.Err() != nil {
			return "", captureStopped
		}

		res, err := c.speech.Capture(ctx, c.cfg.SilenceTimeout)
		if err == nil {
			text := strings.TrimSpace(res.Transcript)
			if text == "" {
				c.logger.Info("command capture timed out")
				return "", captureSkip
			}
			if utf8.RuneCountInString(text) < c.cfg.MinTranscriptLength {
				c.logger.Info("transcript too short to act on", "text", text)
				return "", captureSkip
			}
			return text, captureOK
		}

		if ctx.Err() != nil {
			return "", captureStopped
		}
		c.metrics.RecordError()
		c.notifyError(err)

		var rerr *speech.RecognitionError
		switch {
		case errors.As(err, &rerr) && rerr.IsTerminal():
			c.logger.Error("recognition not permitted, stopping", "error", err)
			return "", captureStopped

		case errors.As(err, &rerr) && rerr.Code == speech.CodeNoSpeech:
			noSpeech++
			if noSpeech > c.cfg.NoSpeechRetries {
				c.logger.Info("no speech after retries, giving up", "attempts", noSpeech)
				return "", captureSkip
			}
			c.logger.Debug("no speech detected, retrying", "attempt", noSpeech)

		default:
			transient++
			if transient > 1 {
				c.logger.Warn("recognition keeps failing, answering locally", "error", err)
				return "", captureSimulated
			}
			c.logger.Warn("recognition failed, retrying", "error", err)
		}

		if !c.retryPause(ctx, PhaseCommandListening) {
			return "", captureStopped
		}
	}
}

// processCommand runs the transcript through the command processor.
// Failures degrade to the local fallback response so the cycle always
// has something to say.
func (c *Controller) processCommand(ctx context.Context, transcript string) *command.Response {
	c.session.setProcessing(true)
	defer c.session.setProcessing(false)

	var cctx *command.Context
	if c.contextFn != nil {
		cctx = c.contextFn()
	}

	resp, err := c.processor.Process(ctx, transcript, cctx)
	if err != nil || resp == nil {
		if err != nil && ctx.Err() == nil {
			c.logger.Warn("command processing failed", "error", err)
			c.metrics.RecordError()
			c.notifyError(err)
		}
		return &command.Response{Text: c.cfg.LocalResponse, Fallback: true}
	}
	if resp.SessionID != "" {
		c.session.setID(resp.SessionID)
	}
	return resp
}

// speakResponse announces a response, prefixing the destination cue
// when the command changed the destination.
func (c *Controller) speakResponse(ctx context.Context, resp *command.Response) {
	c.session.setLastResponse(resp)
	if c.callbacks.OnResponse != nil {
		c.callbacks.OnResponse(resp)
	}

	if !c.transition(PhaseSpeaking) {
		return
	}
	if resp.DestinationChange != "" {
		c.playCue(ctx, speech.CueDestination)
		c.sleepCtx(ctx, c.cfg.DestinationSpeechDelay)
	}
	c.speak(ctx, resp.Text)
}

func (c *Controller) speak(ctx context.Context, text string) {
	if text == "" || c.session.Muted() {
		return
	}
	if err := c.speech.Speak(ctx, text); err != nil && ctx.Err() == nil {
		c.logger.Warn("speech synthesis failed", "error", err)
		c.metrics.RecordError()
		c.notifyError(err)
	}
}

func (c *Controller) playCue(ctx context.Context, cue speech.Cue) {
	if c.cues == nil || c.session.Muted() {
		return
	}
	if err := c.cues.PlayCue(ctx, cue); err != nil && ctx.Err() == nil {
		c.logger.Debug("cue playback failed", "cue", string(cue), "error", err)
	}
}

// retryPause dips into the error-retry phase, waits the retry delay,
// and resumes the given phase. It returns false when the context ended.
func (c *Controller) retryPause(ctx context.Context, resume Phase) bool {
	if !c.transition(PhaseErrorRetry) {
		return false
	}
	if !c.sleepCtx(ctx, c.cfg.RetryDelay) {
		return false
	}
	return c.transition(resume)
}

// transition moves the phase machine, returning false for moves the
// machine does not allow. Self-transitions are silently accepted.
func (c *Controller) transition(to Phase) bool {
	c.mu.Lock()
	from := c.phase
	if from == to {
		c.mu.Unlock()
		return true
	}
	if !transitionAllowed(from, to) {
		c.mu.Unlock()
		c.logger.Warn("invalid phase transition", "from", string(from), "to", string(to))
		return false
	}
	c.phase = to
	c.mu.Unlock()

	c.logger.Debug("phase changed", "from", string(from), "to", string(to))
	if c.callbacks.OnPhaseChange != nil {
		c.callbacks.OnPhaseChange(from, to)
	}
	return true
}

func (c *Controller) notifyError(err error) {
	if c.callbacks.OnError != nil {
		c.callbacks.OnError(err)
	}
}

// sleepCtx waits d or until the context ends, reporting whether the
// full wait elapsed.
func (c *Controller) sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
