package llm

import (
	"strings"

	"github.com/loopline/concierge/pkg/api"
)

// instructionPreamble introduces merged system instructions when a provider
// rejects the system role and they have to travel as user content instead.
const instructionPreamble = "Follow these instructions for the rest of the conversation:"

// Normalize rewrites messages for providers that reject a "system" role.
//
// With omitSystemRole false the input is returned unchanged. Otherwise all
// system-role contents (trimmed, blanks dropped) are concatenated in order,
// joined by a blank line, and prepended as a single synthetic user message
// ahead of the remaining messages. If no system content survives trimming,
// the system messages are simply dropped.
//
// The relative order of non-system messages is never changed, and applying
// Normalize twice with the same flag yields the same result.
func Normalize(messages []api.ChatMessage, omitSystemRole bool) []api.ChatMessage {
	if !omitSystemRole {
		return messages
	}

	var instructions []string
	rest := make([]api.ChatMessage, 0, len(messages))

	for _, m := range messages {
		if m.Role == api.RoleSystem {
			if trimmed := strings.TrimSpace(m.Content); trimmed != "" {
				instructions = append(instructions, trimmed)
			}
			continue
		}
		rest = append(rest, m)
	}

	if len(instructions) == 0 {
		return rest
	}

	merged := api.ChatMessage{
		Role:    api.RoleUser,
		Content: instructionPreamble + "\n\n" + strings.Join(instructions, "\n\n"),
	}

	out := make([]api.ChatMessage, 0, len(rest)+1)
	out = append(out, merged)
	out = append(out, rest...)
	return out
}
