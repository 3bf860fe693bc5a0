package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"bggsync/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  dryRun INTEGER NOT NULL DEFAULT 0,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mutation_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  productId TEXT NOT NULL,
  action TEXT NOT NULL,
  status TEXT NOT NULL,
  objectid TEXT,
  ambiguousJson TEXT,
  error TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_mutation_log_run ON mutation_log(runId);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

type RunRow struct {
	ID        int
	TraceID   string
	DryRun    bool
	Counts    internal.RunCounts
	CreatedAt string
}

func (d *DB) InsertRun(traceID string, dryRun bool, timings map[string]float64, counts internal.RunCounts) (int64, error) {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	dry := 0
	if dryRun {
		dry = 1
	}
	result, err := d.conn.Exec(
		`INSERT INTO runs (traceId, dryRun, timingsJson, countsJson) VALUES (?, ?, ?, ?)`,
		traceID, dry, string(timingsJSON), string(countsJSON),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) InsertMutationOutcomes(runID int64, outcomes []internal.MutationOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO mutation_log (runId, productId, action, status, objectid, ambiguousJson, error)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, outcome := range outcomes {
		var ambiguousJSON *string
		if len(outcome.Ambiguous) > 0 {
			blob, _ := json.Marshal(outcome.Ambiguous)
			s := string(blob)
			ambiguousJSON = &s
		}
		if _, err := stmt.Exec(
			runID, outcome.ProductID, string(outcome.Action), string(outcome.Status),
			outcome.ObjectID, ambiguousJSON, outcome.Error,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListRecentRuns(limit int) ([]RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, dryRun, countsJson, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		var dry int
		var countsJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &dry, &countsJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.DryRun = dry != 0
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
