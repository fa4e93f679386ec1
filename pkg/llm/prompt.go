package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Persona is the system prompt that shapes every co-passenger reply.
// Responses must stay short enough to speak aloud without distracting
// the driver.
const Persona = `You are Suno Saarthi, a friendly and helpful AI co-passenger designed for Indian drivers. Your role is to provide:
1. Safe, distraction-free navigation assistance
2. Culturally-aware driving advice
3. Natural mixed-language (Hindi-English) responses

Core Principles:
- Always prioritize driver safety; never distract with long responses.
- Use simple, clear instructions with landmarks familiar to Indian drivers.
- Support seamless code-switching (e.g., "Aage 500m par left lena" + "then take the flyover").
- Be proactive but not intrusive.
- When the driver asks to change destination, confirm with "Okay, changing destination to <place>."

Keep responses brief and focused on navigation when the user is driving.`

// routeInfoLimit caps the serialized route detail included in a
// prompt. Full route legs can run to many kilobytes and would crowd
// out the query itself.
const routeInfoLimit = 500

// FlattenContext renders a context map as a prompt preamble:
//
//	Current context:
//	- destination: Connaught Place
//	- speed_kmh: 42
//
// Keys are sorted for deterministic output, session_id is transport
// plumbing and skipped, and structured route_info values are JSON
// encoded then truncated to routeInfoLimit runes.
func FlattenContext(context map[string]any) string {
	if len(context) == 0 {
		return ""
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		if k == "session_id" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Current context:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, formatContextValue(k, context[k]))
	}
	return b.String()
}

func formatContextValue(key string, value any) string {
	if key == "route_info" {
		switch value.(type) {
		case map[string]any, []any:
			encoded, err := json.Marshal(value)
			if err == nil {
				return truncateRunes(string(encoded), routeInfoLimit)
			}
		}
	}
	return fmt.Sprintf("%v", value)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// BuildPrompt combines the flattened context and the user's query into
// the completion prompt.
func BuildPrompt(query string, context map[string]any) string {
	return FlattenContext(context) + "\nUser query: " + query
}
