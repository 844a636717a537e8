// Package agent implements the companion's core request path: ledger
// append, context extraction, prompt assembly, backend completion with
// demo fallback, and tone styling.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gupshup-ai/gupshup/internal/connstate"
	"github.com/gupshup-ai/gupshup/internal/llm"
	"github.com/gupshup-ai/gupshup/internal/memory"
	"github.com/gupshup-ai/gupshup/internal/persona"
	"github.com/gupshup-ai/gupshup/internal/prompts"
)

// Reply is the result of one submitted turn. Text is always well-formed:
// either a styled backend completion or a styled demo line, flagged so
// the caller can tell real answers from simulated ones.
type Reply struct {
	Text string
	Demo bool
}

// Recorder receives one usage record per completed turn. Implementations
// must be safe for concurrent use. Recording is best-effort — failures
// are logged and never affect the reply.
type Recorder interface {
	Record(ctx context.Context, rec UsageRecord) error
}

// UsageRecord describes one interaction for usage tracking.
type UsageRecord struct {
	ConversationID string
	Tone           string
	Demo           bool
	Latency        time.Duration
	InputTokens    int
	OutputTokens   int
	TurnCount      int
}

// Config wires a Companion. Registry, Client, and Monitor are required.
type Config struct {
	Registry  *persona.Registry
	Extractor *memory.Extractor
	Client    llm.Client
	Monitor   *connstate.Monitor

	// MaxHistory is the per-conversation ledger bound.
	MaxHistory int

	// DefaultTone is used when a submission names no tone.
	DefaultTone string

	// Usage optionally records per-turn usage. Nil disables recording.
	Usage Recorder

	Logger *slog.Logger
}

// Companion orchestrates conversations. Each conversation processes one
// submission at a time, end-to-end; the backend connectivity monitor is
// shared across all of them.
type Companion struct {
	registry    *persona.Registry
	extractor   *memory.Extractor
	client      llm.Client
	monitor     *connstate.Monitor
	usage       Recorder
	logger      *slog.Logger
	maxHistory  int
	defaultTone string

	mu       sync.Mutex
	sessions map[string]*session
}

// session holds one conversation's ledger plus the mutex that serializes
// its request path.
type session struct {
	mu     sync.Mutex
	ledger *memory.Ledger
}

// NewCompanion creates a companion orchestrator.
func NewCompanion(cfg Config) *Companion {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = memory.NewExtractor(5, 5)
	}
	if cfg.DefaultTone == "" {
		cfg.DefaultTone = "friendly"
	}
	return &Companion{
		registry:    cfg.Registry,
		extractor:   cfg.Extractor,
		client:      cfg.Client,
		monitor:     cfg.Monitor,
		usage:       cfg.Usage,
		logger:      cfg.Logger,
		maxHistory:  cfg.MaxHistory,
		defaultTone: cfg.DefaultTone,
		sessions:    make(map[string]*session),
	}
}

// Submit processes one user turn for a conversation and returns the
// companion's reply. The only error it returns is an unknown tone name;
// backend failures degrade to a flagged demo reply instead.
func (c *Companion) Submit(ctx context.Context, conversationID, userText, tone string) (Reply, error) {
	if tone == "" {
		tone = c.defaultTone
	}
	profile, err := c.registry.Get(tone)
	if err != nil {
		return Reply{}, fmt.Errorf("submit turn: %w", err)
	}

	sess := c.session(conversationID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := time.Now()
	sess.ledger.Append(memory.Turn{Role: "user", Content: userText})

	snapshot := sess.ledger.Snapshot()
	summary := c.extractor.Extract(snapshot)
	prompt := prompts.Build(profile, summary, userText)

	raw, completion, demo := c.complete(ctx, prompt)
	styled := c.registry.ApplyStyle(profile, raw)

	sess.ledger.Append(memory.Turn{Role: "assistant", Content: styled})

	c.logger.Info("turn completed",
		"conversation", conversationID,
		"tone", tone,
		"demo", demo,
		"latency", time.Since(start).Truncate(time.Millisecond),
	)

	c.record(ctx, UsageRecord{
		ConversationID: conversationID,
		Tone:           tone,
		Demo:           demo,
		Latency:        time.Since(start),
		InputTokens:    completion.InputTokens,
		OutputTokens:   completion.OutputTokens,
		TurnCount:      sess.ledger.Len(),
	})

	return Reply{Text: styled, Demo: demo}, nil
}

// complete runs the backend call when the cached connection state allows
// it, falling back to the deterministic demo line on any failure. It
// never returns an error: failures become state transitions plus demo
// output.
func (c *Companion) complete(ctx context.Context, prompt prompts.Prompt) (string, llm.Completion, bool) {
	if c.monitor.Check(ctx) != connstate.Connected {
		return demoResponse, llm.Completion{}, true
	}

	completion, err := c.client.Generate(ctx, prompt.Messages())
	if err != nil {
		c.monitor.ReportFailure(err)
		c.logger.Warn("completion failed, using demo response", "error", err)
		return demoResponse, llm.Completion{}, true
	}
	return completion.Content, *completion, false
}

// demoResponse is the canned fallback returned when the backend is
// unavailable. Deterministic and clearly simulated; tone styling is
// applied to it the same way as to real completions.
const demoResponse = "This is a demo response. Connect an Ollama backend for real conversations."

// Summarize returns a human-readable synopsis of a conversation.
func (c *Companion) Summarize(conversationID string) string {
	sess := c.session(conversationID)
	return c.extractor.Summarize(sess.ledger.Snapshot())
}

// Topics returns the extracted topics for a conversation.
func (c *Companion) Topics(conversationID string) []string {
	sess := c.session(conversationID)
	return c.extractor.Extract(sess.ledger.Snapshot()).Topics
}

// History returns a copy of a conversation's retained turns.
func (c *Companion) History(conversationID string) []memory.Turn {
	return c.session(conversationID).ledger.Snapshot()
}

// Reset clears a conversation's ledger. Used on session reset.
func (c *Companion) Reset(conversationID string) {
	c.session(conversationID).ledger.Clear()
}

// Seed appends pre-built turns to a conversation, used by the sample
// data loader. Records with roles outside system/user/assistant are
// rejected before any turn is appended.
func (c *Companion) Seed(conversationID string, turns []memory.Turn) error {
	for _, t := range turns {
		switch t.Role {
		case "system", "user", "assistant":
		default:
			return fmt.Errorf("seed conversation: invalid role %q", t.Role)
		}
	}

	sess := c.session(conversationID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, t := range turns {
		sess.ledger.Append(t)
	}
	return nil
}

// Tones returns the registered tone names in registration order.
func (c *Companion) Tones() []string {
	return c.registry.List()
}

// BackendStatus returns the shared connectivity snapshot.
func (c *Companion) BackendStatus() connstate.Status {
	return c.monitor.Status()
}

// session returns the conversation session, creating it on first use.
func (c *Companion) session(conversationID string) *session {
	if conversationID == "" {
		conversationID = "default"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[conversationID]
	if !ok {
		s = &session{ledger: memory.NewLedger(c.maxHistory)}
		c.sessions[conversationID] = s
	}
	return s
}

// record sends a usage record if a recorder is configured.
func (c *Companion) record(ctx context.Context, rec UsageRecord) {
	if c.usage == nil {
		return
	}
	if err := c.usage.Record(ctx, rec); err != nil {
		c.logger.Warn("usage record failed", "error", err)
	}
}
