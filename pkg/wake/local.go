package wake

import (
	"context"
	"strings"
	"unicode"
)

// Local matches transcripts against the wake vocabulary without any
// network dependency. An exact (substring) match returns the phrase's
// fixed confidence; otherwise the best token-overlap score across the
// vocabulary is compared against SimilarityThreshold.
type Local struct {
	phrases []Phrase
}

// LocalOption configures the local detector.
type LocalOption func(*Local)

// WithPhrases replaces the default vocabulary.
func WithPhrases(phrases []Phrase) LocalOption {
	return func(l *Local) {
		if len(phrases) > 0 {
			l.phrases = phrases
		}
	}
}

// NewLocal creates a local detector over the default vocabulary.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{phrases: Vocabulary()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name identifies the detector for logging.
func (l *Local) Name() string { return "local" }

// Detect checks text for a wake phrase. It never returns an error;
// unrecognizable input is simply not detected.
func (l *Local) Detect(ctx context.Context, text string) (Result, error) {
	result := Result{Text: text}

	normalized := Normalize(text)
	if normalized == "" {
		return result, nil
	}

	// Exact containment first: the phrase's fixed confidence beats
	// any computed score.
	for _, p := range l.phrases {
		if strings.Contains(normalized, p.Text) {
			result.Detected = true
			result.Confidence = p.Confidence
			result.WakeWordFound = p.Text
			return result, nil
		}
	}

	var bestScore float64
	var bestPhrase string
	tokens := strings.Fields(normalized)
	for _, p := range l.phrases {
		if score := Similarity(tokens, strings.Fields(p.Text)); score > bestScore {
			bestScore = score
			bestPhrase = p.Text
		}
	}
	if bestScore >= SimilarityThreshold {
		result.Detected = true
		result.Confidence = bestScore
		result.WakeWordFound = bestPhrase
	}
	return result, nil
}

// Normalize lowercases text, strips punctuation and collapses runs of
// whitespace so recognizer output compares cleanly against the
// vocabulary.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity scores token overlap between a transcript and a phrase
// using the Dice coefficient: 2·|common| / (|a| + |b|), in [0,1].
// Word order does not matter; extra words dilute the score.
func Similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	seen := make(map[string]int, len(a))
	for _, tok := range a {
		seen[tok]++
	}
	var common int
	for _, tok := range b {
		if seen[tok] > 0 {
			seen[tok]--
			common++
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}

// Verify Local implements Detector at compile time.
var _ Detector = (*Local)(nil)
