// Package memory provides bounded conversation memory and context extraction.
package memory

import (
	"sync"
	"time"
)

// Turn represents one utterance in a conversation.
type Turn struct {
	Role      string    `json:"role"` // system, user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger is the bounded, ordered store of turns for one conversation.
// System turns are pinned: when an append would exceed the retention
// bound, the oldest non-system turn is evicted instead.
type Ledger struct {
	mu       sync.RWMutex
	turns    []Turn
	maxTurns int
}

// NewLedger creates a ledger retaining at most maxTurns turns.
func NewLedger(maxTurns int) *Ledger {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Ledger{maxTurns: maxTurns}
}

// Append adds a turn at the end of the ledger. If the resulting length
// exceeds the retention bound, the oldest non-system turn is evicted.
// Append always succeeds.
func (l *Ledger) Append(t Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	l.turns = append(l.turns, t)

	if len(l.turns) <= l.maxTurns {
		return
	}

	// Evict the oldest evictable turn. If every retained turn is a pinned
	// system turn, the ledger grows past the bound rather than dropping one.
	for i, turn := range l.turns {
		if turn.Role != "system" {
			l.turns = append(l.turns[:i], l.turns[i+1:]...)
			return
		}
	}
}

// Snapshot returns a copy of the current turn sequence. The copy does not
// track later mutations of the ledger.
func (l *Ledger) Snapshot() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	turns := make([]Turn, len(l.turns))
	copy(turns, l.turns)
	return turns
}

// Len returns the number of retained turns.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Clear resets the ledger to empty. Used on session reset.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}
