// Package store provides SQLite-backed persistence for simulation runs
// and calibration sample chains.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/epimath/go-epimod/model"
	"github.com/epimath/go-epimod/results"
)

// ErrNotFound is returned when the requested run does not exist.
var ErrNotFound = errors.New("store: run not found")

// Store handles SQLite database operations for run archival.
type Store struct {
	db *sql.DB
}

// RunInfo summarizes a stored run for listings.
type RunInfo struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Solver    string    `json:"solver,omitempty"`
	Draws     int       `json:"draws"`
}

// Open opens (or creates) the database at the given path and applies
// the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL DEFAULT 'success',
		solver TEXT,
		compute_time REAL DEFAULT 0,
		draws INTEGER DEFAULT 0,
		document TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		value REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_chains_run ON chains(run_id, name, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveRun persists a complete run document.
func (s *Store) SaveRun(ctx context.Context, r *results.Results) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, model, created_at, status, solver, compute_time, draws, document)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Metadata.RunID, r.Model.Name, r.Metadata.Timestamp.UTC(),
		r.Metadata.Status, r.Metadata.Solver, r.Metadata.ComputeTime,
		r.Simulation.Draws, string(doc),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run document by id.
func (s *Store) GetRun(ctx context.Context, id string) (*results.Results, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM runs WHERE id = ?`, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return results.FromJSON(doc)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, created_at, status, solver, draws
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var infos []*RunInfo
	for rows.Next() {
		var info RunInfo
		var solver sql.NullString
		err := rows.Scan(&info.ID, &info.Model, &info.Timestamp,
			&info.Status, &solver, &info.Draws)
		if err != nil {
			return nil, err
		}
		if solver.Valid {
			info.Solver = solver.String
		}
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}

// RunsForModel returns all stored runs of one model, newest first.
func (s *Store) RunsForModel(ctx context.Context, name string) ([]*RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, created_at, status, solver, draws
		 FROM runs WHERE model = ? ORDER BY created_at DESC`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var infos []*RunInfo
	for rows.Next() {
		var info RunInfo
		var solver sql.NullString
		err := rows.Scan(&info.ID, &info.Model, &info.Timestamp,
			&info.Status, &solver, &info.Draws)
		if err != nil {
			return nil, err
		}
		if solver.Valid {
			info.Solver = solver.String
		}
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}

// DeleteRun removes a run and its sample chains.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chains WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("delete chains: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// SaveSamples persists calibration sample chains under a run id. Chain
// order is preserved through the position column.
func (s *Store) SaveSamples(ctx context.Context, runID string, samples model.Samples) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chains (run_id, name, position, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for name, chain := range samples {
		for i, v := range chain {
			if _, err := stmt.ExecContext(ctx, runID, name, i, v); err != nil {
				return fmt.Errorf("insert chain %s: %w", name, err)
			}
		}
	}
	return tx.Commit()
}

// GetSamples retrieves the sample chains stored under a run id.
func (s *Store) GetSamples(ctx context.Context, runID string) (model.Samples, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value FROM chains WHERE run_id = ? ORDER BY name, position`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chains: %w", err)
	}
	defer rows.Close()

	samples := make(model.Samples)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		samples[name] = append(samples[name], value)
	}
	return samples, rows.Err()
}
