package memory

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Summary is a derived, transient digest of a ledger snapshot: the most
// recent turns plus extracted topic keywords. It is recomputed on demand
// and never stored.
type Summary struct {
	Recent []Turn
	Topics []string
}

// Empty reports whether the summary carries no context at all.
func (s Summary) Empty() bool {
	return len(s.Recent) == 0 && len(s.Topics) == 0
}

// Extractor derives bounded context summaries from ledger snapshots.
// Extraction is deterministic: the same snapshot always produces the
// same summary, with no hidden state and no network access.
type Extractor struct {
	window     int // recent turns included in a summary
	topicLimit int // cap on extracted topics
}

// NewExtractor creates an extractor with the given recent-turn window
// and topic cap. Non-positive values fall back to defaults.
func NewExtractor(window, topicLimit int) *Extractor {
	if window <= 0 {
		window = 5
	}
	if topicLimit <= 0 {
		topicLimit = 5
	}
	return &Extractor{window: window, topicLimit: topicLimit}
}

// Extract returns a context summary for the snapshot: the last window
// turns in order, plus frequency-ranked topic keywords from user turns.
// An empty snapshot yields an empty summary, not an error.
func (e *Extractor) Extract(snapshot []Turn) Summary {
	var s Summary

	start := len(snapshot) - e.window
	if start < 0 {
		start = 0
	}
	if len(snapshot) > 0 {
		s.Recent = make([]Turn, len(snapshot)-start)
		copy(s.Recent, snapshot[start:])
	}

	s.Topics = extractTopics(snapshot, e.topicLimit)
	return s
}

// Summarize returns a one-line human-readable synopsis of the snapshot
// (turn count and top topics). Intended for display and debugging, not
// for feeding back into prompts.
func (e *Extractor) Summarize(snapshot []Turn) string {
	if len(snapshot) == 0 {
		return "No conversation history"
	}

	summary := fmt.Sprintf("Conversation with %d turns", len(snapshot))
	if topics := extractTopics(snapshot, 3); len(topics) > 0 {
		summary += ", discussing: " + strings.Join(topics, ", ")
	}
	return summary
}

// minTopicLen filters out short tokens that are rarely meaningful topics.
const minTopicLen = 4

// stopwords are common English tokens excluded from topic extraction.
// The exact list is an implementation detail; only determinism matters.
var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "because": true,
	"been": true, "before": true, "being": true, "between": true, "both": true,
	"could": true, "does": true, "doing": true, "down": true, "each": true,
	"from": true, "have": true, "having": true, "here": true, "into": true,
	"just": true, "like": true, "mean": true, "more": true, "most": true,
	"much": true, "need": true, "only": true, "other": true, "over": true,
	"really": true, "same": true, "should": true, "some": true, "somewhat": true,
	"such": true, "tell": true, "than": true, "that": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"thing": true, "think": true, "this": true, "those": true, "through": true, "very": true, "want": true, "well": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"will": true, "with": true, "would": true, "your": true,
}

// extractTopics returns up to limit topic keywords from user turns,
// ranked by frequency with alphabetical tie-break for determinism.
func extractTopics(snapshot []Turn, limit int) []string {
	counts := make(map[string]int)

	for _, turn := range snapshot {
		if turn.Role != "user" {
			continue
		}
		for _, field := range strings.Fields(strings.ToLower(turn.Content)) {
			word := strings.TrimFunc(field, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
			if len(word) < minTopicLen || stopwords[word] {
				continue
			}
			counts[word]++
		}
	}

	if len(counts) == 0 {
		return nil
	}

	topics := make([]string, 0, len(counts))
	for word := range counts {
		topics = append(topics, word)
	}
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})

	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}
