// Package telemetry counts which CLI commands users run.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/clitask/internal/log"
)

// Usage is one feature_usage row.
type Usage struct {
	Command    string    `json:"command"`
	Count      int64     `json:"count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Store keeps per-command usage counters in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: log.WithComponent("telemetry"),
	}
}

// Record bumps the counter for command. Failures are logged, never returned.
func (s *Store) Record(ctx context.Context, command string) {
	if err := s.record(ctx, command); err != nil {
		s.logger.Warn("failed to record feature usage", "command", command, "error", err)
	}
}

func (s *Store) record(ctx context.Context, command string) error {
	if command == "" {
		return fmt.Errorf("command is empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO feature_usage(command, count, last_used_at)
VALUES(?, 1, ?)
ON CONFLICT(command) DO UPDATE SET
  count = count + 1,
  last_used_at = excluded.last_used_at;
`, command, now)
	if err != nil {
		return fmt.Errorf("upsert feature usage: %w", err)
	}
	return nil
}

// Counts returns usage ordered by count, highest first.
func (s *Store) Counts(ctx context.Context) ([]Usage, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT command, count, last_used_at
FROM feature_usage
ORDER BY count DESC, command ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("query feature usage: %w", err)
	}
	defer rows.Close()

	var out []Usage
	for rows.Next() {
		var (
			u       Usage
			lastRaw string
		)
		if err := rows.Scan(&u.Command, &u.Count, &lastRaw); err != nil {
			return nil, fmt.Errorf("scan feature usage: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, lastRaw); err == nil {
			u.LastUsedAt = t
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature usage: %w", err)
	}
	return out, nil
}

// Nop discards usage. Used when telemetry is disabled.
type Nop struct{}

func (Nop) Record(context.Context, string) {}

func (Nop) Counts(context.Context) ([]Usage, error) { return nil, nil }
