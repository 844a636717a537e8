package prompts

import "github.com/gupshup-ai/gupshup/internal/llm"

// Messages renders the prompt into the wire-format message list: one
// system message carrying the tone instructions and context block, and
// one user message with the literal input. The three prompt fields stay
// distinguishable in the serialized form.
func (p Prompt) Messages() []llm.Message {
	system := p.SystemInstructions
	if p.ContextBlock != "" {
		system += "\n\n" + p.ContextBlock
	}

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: p.UserInput},
	}
}
