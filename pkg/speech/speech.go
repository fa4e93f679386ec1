// Package speech defines the recognition and synthesis capability the
// voice controller drives.
//
// The engine itself never touches audio hardware; a Capability
// implementation (browser bridge, on-device recognizer, mock) supplies
// transcripts and plays responses. Recognition errors carry a small
// fixed code vocabulary so the controller can pick a retry policy
// without knowing the implementation.
package speech

import (
	"context"
	"time"
)

// Result is one recognition outcome.
type Result struct {
	// Transcript is the recognized text.
	Transcript string

	// Confidence is the recognizer's confidence in [0,1], zero when
	// the implementation does not report one.
	Confidence float64

	// Final reports whether the transcript is final rather than an
	// interim hypothesis.
	Final bool
}

// Recognizer converts speech to transcripts.
//
// Only one session may be active at a time; starting a new one
// implicitly aborts the previous session.
type Recognizer interface {
	// Listen runs continuous recognition, delivering each final
	// transcript to fn until ctx is cancelled or Stop is called, and
	// returns nil in both cases. A *RecognitionError is returned when
	// the session dies for any other reason. The callback runs on the
	// recognizer's goroutine and must not block.
	Listen(ctx context.Context, fn func(Result)) error

	// Capture records a single utterance, waiting up to timeout for
	// speech to end. The zero Result with a nil error means the
	// timeout elapsed without an utterance.
	Capture(ctx context.Context, timeout time.Duration) (Result, error)

	// Stop aborts any active session.
	Stop() error
}

// Synthesizer speaks text aloud.
type Synthesizer interface {
	// Speak plays text, blocking until playback finishes, Cancel is
	// called, or ctx is cancelled.
	Speak(ctx context.Context, text string) error

	// Cancel stops any active utterance.
	Cancel() error
}

// Capability bundles recognition and synthesis behind one handle.
type Capability interface {
	Recognizer
	Synthesizer

	// Close releases the underlying audio resources.
	Close() error
}

// Cue names a short notification sound.
type Cue string

// Cues played by the voice controller.
const (
	// CueWake confirms wake-phrase detection before command capture.
	CueWake Cue = "wake"

	// CueDestination precedes speech when the response changes the
	// destination.
	CueDestination Cue = "destination"
)

// CuePlayer is implemented by capabilities that can play notification
// sounds. The controller probes for it and skips cues otherwise.
type CuePlayer interface {
	PlayCue(ctx context.Context, cue Cue) error
}
