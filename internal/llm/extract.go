package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON recovers a JSON candidate from provider output that may be
// wrapped in prose or a code fence despite a "JSON only" instruction.
//
// If the text contains a fenced block (``` optionally tagged json), its
// trimmed interior is used; otherwise the whole text. Within the candidate,
// the span from the first '{' to the last '}' is sliced out when both exist
// in that order; otherwise the candidate is returned unchanged.
func ExtractJSON(text string) string {
	candidate := text

	if idx := strings.Index(candidate, "```"); idx != -1 {
		inner := candidate[idx+3:]
		if rest, ok := strings.CutPrefix(inner, "json"); ok {
			inner = rest
		} else if rest, ok := strings.CutPrefix(inner, "JSON"); ok {
			inner = rest
		}
		if end := strings.Index(inner, "```"); end != -1 {
			inner = inner[:end]
		}
		candidate = strings.TrimSpace(inner)
	}

	first := strings.Index(candidate, "{")
	last := strings.LastIndex(candidate, "}")
	if first != -1 && last > first {
		return candidate[first : last+1]
	}

	return candidate
}

// Parse runs ExtractJSON and attempts to unmarshal the result. On any parse
// failure it returns nil rather than an error, so callers can fall back to
// treating the whole text as a plain summary.
func Parse(text string) map[string]any {
	candidate := ExtractJSON(text)

	var out map[string]any
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return nil
	}
	return out
}
