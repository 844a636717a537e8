// Package sample loads pre-built conversation records for seeding a
// companion session, typically for demos and first-run experience.
package sample

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gupshup-ai/gupshup/internal/memory"
)

// record is the on-disk shape of one sample turn.
type record struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

//go:embed sample_chat.json
var defaultSample []byte

// Default returns the embedded sample conversation.
func Default() ([]memory.Turn, error) {
	return parse(defaultSample)
}

// LoadFile reads sample records from a JSON file.
func LoadFile(path string) ([]memory.Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample data: %w", err)
	}
	return parse(data)
}

// parse validates records and maps them to turns. Every record must
// carry a known role and non-empty content; timestamps are optional
// RFC 3339 strings.
func parse(data []byte) ([]memory.Turn, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse sample data: %w", err)
	}

	turns := make([]memory.Turn, 0, len(records))
	for i, r := range records {
		switch r.Role {
		case "system", "user", "assistant":
		default:
			return nil, fmt.Errorf("sample record %d: invalid role %q", i, r.Role)
		}
		if r.Content == "" {
			return nil, fmt.Errorf("sample record %d: empty content", i)
		}

		turn := memory.Turn{Role: r.Role, Content: r.Content}
		if r.Timestamp != "" {
			ts, err := time.Parse(time.RFC3339, r.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("sample record %d: bad timestamp %q: %w", i, r.Timestamp, err)
			}
			turn.Timestamp = ts
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
