package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattjoyce/clitask/internal/task"
)

func (e *Engine) insertRun(ctx context.Context, exe Execution, t *task.Task) error {
	if e.db == nil {
		return nil
	}
	flags := t.Request.Flags
	if flags == nil {
		flags = []string{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	_, err = e.db.ExecContext(ctx, `
INSERT INTO task_runs(id, name, scope, command, positional, flags, fingerprint, status, started_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);
`, exe.ID, t.Name, string(t.Scope), t.Request.Command, t.Request.Positional, string(flagsJSON),
		t.Request.Fingerprint(), StatusRunning, exe.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert task run: %w", err)
	}
	return nil
}

func (e *Engine) completeRun(ctx context.Context, ended Ended, stderr string) error {
	if e.db == nil {
		return nil
	}
	var stderrVal any
	if stderr != "" {
		stderrVal = stderr
	}
	_, err := e.db.ExecContext(ctx, `
UPDATE task_runs
SET status = ?, exit_code = ?, completed_at = ?, stderr = ?
WHERE id = ?;
`, ended.Status, ended.ExitCode, ended.CompletedAt.Format(time.RFC3339Nano), stderrVal, ended.ExecutionID)
	if err != nil {
		return fmt.Errorf("update task run: %w", err)
	}
	return nil
}

// RecoverOrphans marks runs left "running" by a previous process as orphaned.
// Call once at startup, before any Submit.
func (e *Engine) RecoverOrphans(ctx context.Context) (int, error) {
	if e.db == nil {
		return 0, nil
	}
	res, err := e.db.ExecContext(ctx, `
UPDATE task_runs
SET status = ?, completed_at = ?
WHERE status = ?;
`, StatusOrphaned, time.Now().UTC().Format(time.RFC3339Nano), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("recover orphaned runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count orphaned runs: %w", err)
	}
	if n > 0 {
		e.logger.Warn("marked orphaned task runs", "count", n)
	}
	return int(n), nil
}

// Recent returns up to limit runs, newest first.
func (e *Engine) Recent(ctx context.Context, limit int) ([]Run, error) {
	if e.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := e.db.QueryContext(ctx, `
SELECT id, name, scope, command, positional, flags, fingerprint, status, exit_code, started_at, completed_at, stderr
FROM task_runs
ORDER BY started_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query task runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r            Run
			scope        string
			flagsJSON    string
			status       string
			exitCode     sql.NullInt64
			startedAtS   string
			completedAtS sql.NullString
			stderr       sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Name, &scope, &r.Command, &r.Positional, &flagsJSON, &r.Fingerprint,
			&status, &exitCode, &startedAtS, &completedAtS, &stderr); err != nil {
			return nil, fmt.Errorf("scan task run: %w", err)
		}
		r.Scope = task.Scope(scope)
		r.Status = Status(status)
		if err := json.Unmarshal([]byte(flagsJSON), &r.Flags); err != nil {
			return nil, fmt.Errorf("decode flags for run %s: %w", r.ID, err)
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			r.ExitCode = &code
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAtS); err == nil {
			r.StartedAt = t
		}
		if completedAtS.Valid {
			if t, err := time.Parse(time.RFC3339Nano, completedAtS.String); err == nil {
				r.CompletedAt = &t
			}
		}
		if stderr.Valid {
			r.Stderr = stderr.String
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task runs: %w", err)
	}
	return out, nil
}
