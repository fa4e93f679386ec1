// Package wake detects the activation phrase in recognized speech.
//
// Detection is text-based: the speech layer hands over final
// transcripts and a Detector decides whether one contains a wake
// phrase. The Local detector matches against a fixed vocabulary with
// a token-overlap fallback; the API detector defers to the gateway's
// wake endpoint. A Chain combines them, first positive wins.
package wake

import "context"

// SimilarityThreshold is the minimum token-overlap score that counts
// as a detection when no phrase matches exactly.
const SimilarityThreshold = 0.8

// Confidence levels reported for exact phrase matches.
const (
	PrimaryConfidence = 0.95
	VariantConfidence = 0.85
)

// Phrase is a wake phrase with the confidence reported when it
// matches exactly.
type Phrase struct {
	Text       string
	Confidence float64
}

// Vocabulary returns the default wake vocabulary: the canonical
// phrases plus common mishearings at lower confidence.
func Vocabulary() []Phrase {
	v := make([]Phrase, 0, len(primaryPhrases)+len(variantPhrases))
	for _, p := range primaryPhrases {
		v = append(v, Phrase{Text: p, Confidence: PrimaryConfidence})
	}
	for _, p := range variantPhrases {
		v = append(v, Phrase{Text: p, Confidence: VariantConfidence})
	}
	return v
}

var primaryPhrases = []string{
	"suno saarthi",
	"hello saarthi",
}

// Variant spellings and phonetic matches seen in recognizer output.
var variantPhrases = []string{
	"hey saarthi",
	"ok saarthi",
	"suno sathi",
	"hello sathi",
	"hey sathi",
	"suno saathi",
	"hello saathi",
	"suno sarthi",
	"hello sarthi",
}

// Result is the outcome of a detection attempt.
type Result struct {
	// Detected reports whether a wake phrase was found.
	Detected bool `json:"detected"`

	// Confidence is the detection confidence in [0,1]. Exact matches
	// carry the phrase's fixed confidence; similarity matches carry
	// the computed score.
	Confidence float64 `json:"confidence"`

	// Text echoes the input transcript.
	Text string `json:"text"`

	// WakeWordFound is the matched phrase, empty when not detected.
	WakeWordFound string `json:"wake_word_found,omitempty"`
}

// Detector decides whether a transcript contains a wake phrase.
type Detector interface {
	// Detect checks text for a wake phrase.
	Detect(ctx context.Context, text string) (Result, error)

	// Name identifies the detector for logging.
	Name() string
}
