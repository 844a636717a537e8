// Package usage provides persistent interaction tracking for companion
// turns. Records are append-only and indexed by timestamp and
// conversation for aggregation queries. This is operational telemetry,
// not conversation history — turn text is never stored here.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gupshup-ai/gupshup/internal/agent"
)

// Record represents a single companion interaction.
type Record struct {
	ID             string
	Timestamp      time.Time
	ConversationID string
	Tone           string
	Demo           bool
	LatencyMS      int64
	InputTokens    int
	OutputTokens   int
	TurnCount      int
}

// Summary holds aggregated interaction totals.
type Summary struct {
	TotalRecords      int
	DemoRecords       int
	TotalInputTokens  int64
	TotalOutputTokens int64
	AvgLatencyMS      float64
}

// Store is an append-only SQLite store for interaction records. All
// public methods are safe for concurrent use (SQLite serializes writes).
type Store struct {
	db *sql.DB
}

// NewStore creates a usage store at the given database path. The schema
// is created automatically on first use.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage schema: %w", err)
	}

	return s, nil
}

// NewStoreWithDB wraps an existing database connection. Used by tests
// that supply an alternative driver.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate usage schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interactions (
		id              TEXT PRIMARY KEY,
		timestamp       TEXT NOT NULL,
		conversation_id TEXT,
		tone            TEXT NOT NULL,
		demo            INTEGER NOT NULL,
		latency_ms      INTEGER NOT NULL,
		input_tokens    INTEGER NOT NULL,
		output_tokens   INTEGER NOT NULL,
		turn_count      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_timestamp ON interactions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_interactions_conversation ON interactions(conversation_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record persists an interaction record from the agent. Implements
// [agent.Recorder]. A UUIDv7 is generated per row.
func (s *Store) Record(ctx context.Context, rec agent.UsageRecord) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate interaction ID: %w", err)
	}

	demo := 0
	if rec.Demo {
		demo = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interactions
			(id, timestamp, conversation_id, tone, demo, latency_ms,
			 input_tokens, output_tokens, turn_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(),
		time.Now().UTC().Format(time.RFC3339),
		rec.ConversationID,
		rec.Tone,
		demo,
		rec.Latency.Milliseconds(),
		rec.InputTokens,
		rec.OutputTokens,
		rec.TurnCount,
	)
	if err != nil {
		return fmt.Errorf("insert interaction record: %w", err)
	}
	return nil
}

// Summary returns aggregated totals for records within [start, end).
func (s *Store) Summary(start, end time.Time) (*Summary, error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(demo), 0),
		        COALESCE(SUM(input_tokens), 0),
		        COALESCE(SUM(output_tokens), 0),
		        COALESCE(AVG(latency_ms), 0)
		 FROM interactions
		 WHERE timestamp >= ? AND timestamp < ?`,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	)

	var sum Summary
	if err := row.Scan(&sum.TotalRecords, &sum.DemoRecords, &sum.TotalInputTokens,
		&sum.TotalOutputTokens, &sum.AvgLatencyMS); err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	return &sum, nil
}

// SummaryByTone returns per-tone aggregated totals for records within
// [start, end).
func (s *Store) SummaryByTone(start, end time.Time) (map[string]*Summary, error) {
	rows, err := s.db.Query(
		`SELECT tone, COUNT(*),
		        COALESCE(SUM(demo), 0),
		        COALESCE(SUM(input_tokens), 0),
		        COALESCE(SUM(output_tokens), 0),
		        COALESCE(AVG(latency_ms), 0)
		 FROM interactions
		 WHERE timestamp >= ? AND timestamp < ?
		 GROUP BY tone
		 ORDER BY COUNT(*) DESC`,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("query usage by tone: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*Summary)
	for rows.Next() {
		var tone string
		var sum Summary
		if err := rows.Scan(&tone, &sum.TotalRecords, &sum.DemoRecords,
			&sum.TotalInputTokens, &sum.TotalOutputTokens, &sum.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("scan usage by tone: %w", err)
		}
		result[tone] = &sum
	}
	return result, rows.Err()
}
