// Package runs keeps an append-only ledger of completed agent runs.
// It stores outcomes only; conversation turns never touch disk here.
package runs

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Run is one ledger row.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Objective  string
	Status     string
	Summary    string
	Iterations int
	Model      string
	Serial     string
}

// Store persists run outcomes. Append-only table keyed by run ID.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the ledger DB under dataDir/runs.db.
func Open(dataDir string) (*Store, error) {
	return OpenDSN(filepath.Join(dataDir, "runs.db"))
}

// OpenDSN opens a ledger using the given sqlite DSN/path. Tests may
// pass ":memory:" to avoid touching disk.
func OpenDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open runs db: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	objective TEXT NOT NULL,
	status TEXT NOT NULL,
	summary TEXT,
	iterations INTEGER,
	model TEXT,
	serial TEXT
);
`)
	if err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records one finished run. A zero ID gets a fresh UUID; the
// stored run is returned with it filled in.
func (s *Store) Append(run Run) (Run, error) {
	if s == nil || s.db == nil {
		return Run{}, fmt.Errorf("run store not initialized")
	}
	if run.Objective == "" {
		return Run{}, fmt.Errorf("objective is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.db.Exec(`
INSERT INTO runs (id, started_at, finished_at, objective, status, summary, iterations, model, serial)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Objective,
		run.Status,
		run.Summary,
		run.Iterations,
		run.Model,
		run.Serial,
	)
	if err != nil {
		return Run{}, fmt.Errorf("persist run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("run store not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
SELECT id, started_at, finished_at, objective, status, COALESCE(summary, ''), COALESCE(iterations, 0), COALESCE(model, ''), COALESCE(serial, '')
FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Objective, &r.Status, &r.Summary, &r.Iterations, &r.Model, &r.Serial); err != nil {
			return nil, err
		}
		if ts, perr := time.Parse(time.RFC3339Nano, started); perr == nil {
			r.StartedAt = ts
		}
		if ts, perr := time.Parse(time.RFC3339Nano, finished); perr == nil {
			r.FinishedAt = ts
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
