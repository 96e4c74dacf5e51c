package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/metdata-explorer/internal/weather"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
  id               INTEGER PRIMARY KEY AUTOINCREMENT,
  started_at       TEXT    NOT NULL,
  duration_ms      INTEGER NOT NULL,
  outcome          TEXT    NOT NULL,
  failure_kind     TEXT    NOT NULL DEFAULT '',
  detail           TEXT    NOT NULL DEFAULT '',
  locations        INTEGER NOT NULL,
  vars             TEXT    NOT NULL,
  query_time       TEXT    NOT NULL,
  hours            INTEGER NOT NULL,
  interval_hours   INTEGER NOT NULL,
  failed_locations INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_submissions_started_at ON submissions(started_at);
`

const insertSQL = `
INSERT INTO submissions (
  started_at, duration_ms, outcome, failure_kind, detail,
  locations, vars, query_time, hours, interval_hours, failed_locations
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const recentSQL = `
SELECT started_at, duration_ms, outcome, failure_kind, detail,
       locations, vars, query_time, hours, interval_hours, failed_locations
FROM submissions
ORDER BY id DESC
LIMIT ?`

// SQLite is a weather.Journal backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the journal at path. ":memory:" is accepted.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends a submission.
func (j *SQLite) Record(ctx context.Context, sub weather.Submission) error {
	_, err := j.db.ExecContext(ctx, insertSQL,
		sub.StartedAt.UTC().Format(time.RFC3339Nano),
		sub.Duration.Milliseconds(),
		string(sub.Outcome),
		sub.FailureKind,
		sub.Detail,
		sub.Locations,
		strings.Join(sub.Vars, ","),
		sub.Time,
		sub.Hours,
		sub.Interval,
		sub.FailedLocations,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// Recent returns up to limit submissions, newest first.
func (j *SQLite) Recent(ctx context.Context, limit int) (_ []weather.Submission, err error) {
	rows, err := j.db.QueryContext(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close submissions rows: %w", cerr)
		}
	}()

	var out []weather.Submission
	for rows.Next() {
		var (
			sub        weather.Submission
			startedAt  string
			durationMs int64
			outcome    string
			vars       string
		)
		if err := rows.Scan(&startedAt, &durationMs, &outcome, &sub.FailureKind, &sub.Detail,
			&sub.Locations, &vars, &sub.Time, &sub.Hours, &sub.Interval, &sub.FailedLocations); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
		}
		sub.StartedAt = t
		sub.Duration = time.Duration(durationMs) * time.Millisecond
		sub.Outcome = weather.Outcome(outcome)
		if vars != "" {
			sub.Vars = strings.Split(vars, ",")
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
