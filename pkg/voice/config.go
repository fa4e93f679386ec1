package voice

import (
	"fmt"
	"time"
)

// Tuning defaults for the interaction cycle.
const (
	// DefaultSilenceTimeout bounds how long command capture waits for
	// speech before prompting the user again.
	DefaultSilenceTimeout = 4 * time.Second

	// MinSilenceTimeout and MaxSilenceTimeout bound the configurable
	// silence window. Shorter cuts speakers off mid-address, longer
	// leaves the cabin hanging.
	MinSilenceTimeout = 3 * time.Second
	MaxSilenceTimeout = 5 * time.Second

	// DefaultMinTranscriptLength is the minimum rune count for a
	// transcript to be treated as a command.
	DefaultMinTranscriptLength = 2

	// DefaultNoSpeechRetries is how many consecutive no-speech
	// recognition errors are retried before the capture gives up.
	DefaultNoSpeechRetries = 3

	// DefaultRetryDelay spaces recognition restarts after an error.
	DefaultRetryDelay = 300 * time.Millisecond

	// DefaultDestinationSpeechDelay separates the destination chime
	// from the spoken confirmation so they do not overlap.
	DefaultDestinationSpeechDelay = 500 * time.Millisecond
)

// Default spoken lines.
const (
	// DefaultClarificationPrompt is spoken when capture times out or
	// the transcript is too short to act on.
	DefaultClarificationPrompt = "Sorry, I didn't catch that. Could you say it again?"

	// DefaultLocalResponse is spoken when recognition keeps failing
	// transiently and the controller answers without a command.
	DefaultLocalResponse = "I'm here. Where would you like to go?"
)

// Config holds the tunable parameters for the interaction cycle.
type Config struct {
	// Capture settings
	SilenceTimeout      time.Duration // How long command capture waits for speech (default: 4s)
	MinTranscriptLength int           // Minimum rune count to forward a transcript (default: 2)

	// Recovery settings
	NoSpeechRetries int           // Consecutive no-speech errors to retry (default: 3)
	RetryDelay      time.Duration // Pause between recognition restarts (default: 300ms)

	// Speech output settings
	DestinationSpeechDelay time.Duration // Pause between destination cue and speech (default: 500ms)
	ClarificationPrompt    string        // Spoken when nothing usable was captured
	LocalResponse          string        // Spoken when recognition fails transiently
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		SilenceTimeout:      DefaultSilenceTimeout,
		MinTranscriptLength: DefaultMinTranscriptLength,

		NoSpeechRetries: DefaultNoSpeechRetries,
		RetryDelay:      DefaultRetryDelay,

		DestinationSpeechDelay: DefaultDestinationSpeechDelay,
		ClarificationPrompt:    DefaultClarificationPrompt,
		LocalResponse:          DefaultLocalResponse,
	}
}

// Validate checks the configuration against the supported ranges.
func (c Config) Validate() error {
	if c.SilenceTimeout < MinSilenceTimeout || c.SilenceTimeout > MaxSilenceTimeout {
		return fmt.Errorf("voice: silence timeout must be between %s and %s, got %s",
			MinSilenceTimeout, MaxSilenceTimeout, c.SilenceTimeout)
	}
	if c.MinTranscriptLength < 1 {
		return fmt.Errorf("voice: min transcript length must be at least 1, got %d", c.MinTranscriptLength)
	}
	if c.NoSpeechRetries < 0 {
		return fmt.Errorf("voice: no-speech retries must not be negative, got %d", c.NoSpeechRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("voice: retry delay must not be negative, got %s", c.RetryDelay)
	}
	return nil
}

// WithSilenceTimeout returns a copy with the silence timeout set.
func (c Config) WithSilenceTimeout(d time.Duration) Config {
	c.SilenceTimeout = d
	return c
}

// WithMinTranscriptLength returns a copy with the minimum transcript
// length set.
func (c Config) WithMinTranscriptLength(n int) Config {
	c.MinTranscriptLength = n
	return c
}

// WithNoSpeechRetries returns a copy with the no-speech retry budget set.
func (c Config) WithNoSpeechRetries(n int) Config {
	c.NoSpeechRetries = n
	return c
}

// WithRetryDelay returns a copy with the retry delay set.
func (c Config) WithRetryDelay(d time.Duration) Config {
	c.RetryDelay = d
	return c
}

// WithClarificationPrompt returns a copy with the clarification prompt set.
func (c Config) WithClarificationPrompt(text string) Config {
	c.ClarificationPrompt = text
	return c
}

// WithLocalResponse returns a copy with the local fallback response set.
func (c Config) WithLocalResponse(text string) Config {
	c.LocalResponse = text
	return c
}

// withDefaults fills zero values so a partially specified config is
// still usable. Range enforcement stays in Validate.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SilenceTimeout <= 0 {
		c.SilenceTimeout = def.SilenceTimeout
	}
	if c.MinTranscriptLength <= 0 {
		c.MinTranscriptLength = def.MinTranscriptLength
	}
	if c.NoSpeechRetries < 0 {
		c.NoSpeechRetries = def.NoSpeechRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.DestinationSpeechDelay < 0 {
		c.DestinationSpeechDelay = def.DestinationSpeechDelay
	}
	if c.ClarificationPrompt == "" {
		c.ClarificationPrompt = def.ClarificationPrompt
	}
	if c.LocalResponse == "" {
		c.LocalResponse = def.LocalResponse
	}
	return c
}
