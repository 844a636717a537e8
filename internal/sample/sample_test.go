package sample

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	turns, err := Default()
	if err != nil {
		t.Fatalf("Default error: %v", err)
	}
	if len(turns) == 0 {
		t.Fatal("embedded sample should not be empty")
	}
	for i, turn := range turns {
		if turn.Role != "user" && turn.Role != "assistant" && turn.Role != "system" {
			t.Errorf("turn %d has role %q", i, turn.Role)
		}
		if turn.Content == "" {
			t.Errorf("turn %d has empty content", i)
		}
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chat.json")
	data := `[
		{"role": "user", "content": "hello", "timestamp": "2024-06-01T10:00:00Z"},
		{"role": "assistant", "content": "hi there"}
	]`
	os.WriteFile(path, []byte(data), 0600)

	turns, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Timestamp.IsZero() {
		t.Error("timestamp should be parsed when present")
	}
	if !turns[1].Timestamp.IsZero() {
		t.Error("missing timestamp should stay zero")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"bad role", `[{"role": "narrator", "content": "x"}]`},
		{"empty content", `[{"role": "user", "content": ""}]`},
		{"bad timestamp", `[{"role": "user", "content": "x", "timestamp": "yesterday"}]`},
		{"not json", `oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chat.json")
			os.WriteFile(path, []byte(tt.data), 0600)
			if _, err := LoadFile(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()
	if _, err := LoadFile("/nonexistent/chat.json"); err == nil {
		t.Error("expected error for missing file")
	}
}
