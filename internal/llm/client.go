// Package llm provides language-model backend clients.
package llm

import (
	"context"
	"time"
)

// Message represents a chat message for the LLM.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Completion is the unified result of a completion request.
type Completion struct {
	Model     string
	CreatedAt time.Time
	Content   string

	// Token usage (populated when the backend reports it)
	InputTokens  int
	OutputTokens int

	// TotalDuration is the backend-reported wall time, when available.
	TotalDuration time.Duration
}

// Client is the interface all backend providers implement.
type Client interface {
	// Generate sends a completion request and returns the response.
	Generate(ctx context.Context, messages []Message) (*Completion, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
