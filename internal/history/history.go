// Package history records build runs in a local SQLite database so past
// runs can be listed and compared after the fact.
//
// The history is purely informational. It is written after the stores
// are updated and a failure to record a run is logged, never fatal.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"atp/internal/logging"
)

// Run is one recorded build invocation
type Run struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	Revision   string    `json:"revision,omitempty"`
	Dirty      bool      `json:"dirty"`
	TestCount  int       `json:"testCount"`
	Changed    int       `json:"changed"`
	StaleLocks int       `json:"staleLocks"`
}

// DB is the run-history database
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	revision    TEXT NOT NULL DEFAULT '',
	dirty       INTEGER NOT NULL DEFAULT 0,
	test_count  INTEGER NOT NULL,
	changed     INTEGER NOT NULL,
	stale_locks INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Open opens or creates the history database at the given path
func Open(dbPath string, logger *logging.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck // Best effort cleanup
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &DB{conn: conn, logger: logger, dbPath: dbPath}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Record inserts one run into the history
func (db *DB) Record(run Run) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (run_id, started_at, revision, dirty, test_count, changed, stale_locks)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Revision,
		boolInt(run.Dirty),
		run.TestCount,
		run.Changed,
		run.StaleLocks,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	db.logger.Debug("Recorded run", map[string]interface{}{
		"runId": run.RunID,
		"path":  db.dbPath,
	})
	return nil
}

// Recent returns up to limit runs, most recent first
func (db *DB) Recent(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT run_id, started_at, revision, dirty, test_count, changed, stale_locks
		 FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			started string
			dirty   int
		)
		if err := rows.Scan(&run.RunID, &started, &run.Revision, &dirty,
			&run.TestCount, &run.Changed, &run.StaleLocks); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, started)
		run.Dirty = dirty != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
