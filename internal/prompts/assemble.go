// Package prompts assembles completion requests from personality and context.
//
// Prompt text is Go code rather than config files because it is program
// logic: rendering uses plain string building, benefits from compile-time
// embedding, and can be validated by tests. Assembly is pure data
// transformation — the same profile, summary, and input always produce an
// identical prompt, and empty inputs still yield a well-formed one.
package prompts

import (
	"strings"

	"github.com/gupshup-ai/gupshup/internal/memory"
	"github.com/gupshup-ai/gupshup/internal/persona"
)

// noContextMarker is emitted when the context summary is empty, so the
// backend always receives a distinguishable context block.
const noContextMarker = "(no prior context)"

// Prompt is a fully assembled completion request. Transient: one per
// request, never persisted.
type Prompt struct {
	// SystemInstructions come verbatim from the active tone profile.
	SystemInstructions string

	// ContextBlock is the serialized context summary: role-tagged recent
	// turns followed by a topics line, or the no-context marker.
	ContextBlock string

	// UserInput is the literal latest user message, unmodified.
	UserInput string
}

// Build assembles a prompt from the active profile, the extracted context
// summary, and the latest user input.
func Build(profile persona.Profile, summary memory.Summary, userInput string) Prompt {
	return Prompt{
		SystemInstructions: profile.SystemInstructions,
		ContextBlock:       renderContext(summary),
		UserInput:          userInput,
	}
}

// renderContext serializes a context summary. Recent turns are rendered
// one per line as "Role: content" in dialogue order, followed by a line
// listing extracted topics.
func renderContext(summary memory.Summary) string {
	if summary.Empty() {
		return noContextMarker
	}

	var sb strings.Builder
	sb.WriteString("Recent conversation:\n")
	for _, turn := range summary.Recent {
		sb.WriteString(capitalizeRole(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	if len(summary.Topics) > 0 {
		sb.WriteString("Topics: ")
		sb.WriteString(strings.Join(summary.Topics, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// capitalizeRole renders a role tag for the context block ("user" → "User").
func capitalizeRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
