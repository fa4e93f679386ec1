package command

import "strings"

// Destination-change trigger phrases, most specific first. Matching
// is case-insensitive; the destination is whatever follows the
// trigger.
var destinationTriggers = []string{
	"okay, changing destination to",
	"changing destination to",
	"setting destination to",
	"navigating to",
}

// ParseDestinationChange scans free-form response text for a
// destination-change directive. This is a best-effort heuristic over
// model output, not a contract: the structured metadata field always
// takes precedence when present.
func ParseDestinationChange(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, trigger := range destinationTriggers {
		idx := strings.Index(lower, trigger)
		if idx < 0 {
			continue
		}
		dest := strings.TrimSpace(text[idx+len(trigger):])
		dest = strings.TrimRight(dest, ".,!?;: ")
		if dest == "" {
			continue
		}
		return dest, true
	}
	return "", false
}
