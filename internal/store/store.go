// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/subcrack/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNoSeries is returned when a run has no stored convergence points.
var ErrNoSeries = errors.New("store: no convergence series")

// Store wraps SQLite access for run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			created_at TEXT NOT NULL,
			params TEXT NOT NULL,
			key TEXT NOT NULL,
			plaintext TEXT NOT NULL,
			score REAL NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			status TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS convergence_points (
			run_id TEXT NOT NULL,
			budget INTEGER NOT NULL,
			trials INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			mean_score REAL NOT NULL,
			std_score REAL NOT NULL,
			mean_accuracy REAL NOT NULL,
			std_accuracy REAL NOT NULL,
			mean_key_accuracy REAL,
			no_data INTEGER NOT NULL,
			PRIMARY KEY (run_id, budget)
		);`,
		`CREATE TABLE IF NOT EXISTS bench_results (
			run_id TEXT NOT NULL,
			case_idx INTEGER NOT NULL,
			algorithm TEXT NOT NULL,
			status TEXT NOT NULL,
			text_acc REAL,
			key_acc REAL,
			elapsed_ms INTEGER NOT NULL,
			exit_code INTEGER NOT NULL,
			stderr TEXT NOT NULL,
			PRIMARY KEY (run_id, case_idx, algorithm)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAnalysis stores a single analysis run and returns its id.
func (s *Store) InsertAnalysis(ctx context.Context, run model.RunRecord) (string, error) {
	run.Kind = model.KindAnalyze
	return s.insert(ctx, run, nil)
}

// InsertConvergence stores a convergence run with its points.
func (s *Store) InsertConvergence(ctx context.Context, run model.RunRecord, points []model.ConvergencePoint) (string, error) {
	run.Kind = model.KindConverge
	return s.insert(ctx, run, func(tx *sql.Tx, id string) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO convergence_points (run_id, budget, trials, completed, mean_score, std_score, mean_accuracy, std_accuracy, mean_key_accuracy, no_data)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, id, p.Budget, p.Trials, p.Completed,
				p.MeanScore, p.StdScore, p.MeanAccuracy, p.StdAccuracy,
				nullFloat(p.MeanKeyAccuracy), p.NoData); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertBench stores a benchmark run with its per-trial results.
func (s *Store) InsertBench(ctx context.Context, run model.RunRecord, results []model.BenchRecord) (string, error) {
	run.Kind = model.KindBench
	return s.insert(ctx, run, func(tx *sql.Tx, id string) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO bench_results (run_id, case_idx, algorithm, status, text_acc, key_acc, elapsed_ms, exit_code, stderr)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, r := range results {
			if _, err := stmt.ExecContext(ctx, id, r.CaseIdx, r.Algorithm, r.Status,
				nullFloat(r.TextAccuracy), nullFloat(r.KeyAccuracy),
				r.ElapsedMs, r.ExitCode, r.Stderr); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insert(ctx context.Context, run model.RunRecord, children func(tx *sql.Tx, id string) error) (id string, err error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = "ok"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, algorithm, created_at, params, key, plaintext, score, elapsed_ms, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Kind),
		run.Algorithm,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.Params,
		run.Key,
		run.Plaintext,
		run.Score,
		run.ElapsedMs,
		run.Status,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	if children != nil {
		if err = children(tx, run.ID); err != nil {
			return "", fmt.Errorf("failed to insert %s rows: %w", run.Kind, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

// ListRuns returns runs matching filter, newest first.
func (s *Store) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.RunRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, kind, algorithm, created_at, params, key, plaintext, score, elapsed_ms, status
		FROM runs
		WHERE %s
		ORDER BY created_at DESC`, strings.Join(clauses, " AND "))
	if filter.Last > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunRecord
	for rows.Next() {
		var run model.RunRecord
		var kind, createdAt string
		if err := rows.Scan(&run.ID, &kind, &run.Algorithm, &createdAt, &run.Params, &run.Key,
			&run.Plaintext, &run.Score, &run.ElapsedMs, &run.Status); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		run.Kind = model.RunKind(kind)
		run.CreatedAt = parsed
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetConvergence returns the points of a convergence run ordered by budget.
func (s *Store) GetConvergence(ctx context.Context, runID string) ([]model.ConvergencePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT budget, trials, completed, mean_score, std_score, mean_accuracy, std_accuracy, mean_key_accuracy, no_data
		FROM convergence_points
		WHERE run_id = ?
		ORDER BY budget ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var points []model.ConvergencePoint
	for rows.Next() {
		var p model.ConvergencePoint
		var keyAcc sql.NullFloat64
		if err := rows.Scan(&p.Budget, &p.Trials, &p.Completed, &p.MeanScore, &p.StdScore,
			&p.MeanAccuracy, &p.StdAccuracy, &keyAcc, &p.NoData); err != nil {
			return nil, err
		}
		p.MeanKeyAccuracy = floatPtr(keyAcc)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: run %s", ErrNoSeries, runID)
	}
	return points, nil
}

// ListBenchResults returns the trials of a benchmark run.
func (s *Store) ListBenchResults(ctx context.Context, runID string) ([]model.BenchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT case_idx, algorithm, status, text_acc, key_acc, elapsed_ms, exit_code, stderr
		FROM bench_results
		WHERE run_id = ?
		ORDER BY case_idx ASC, algorithm ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var results []model.BenchRecord
	for rows.Next() {
		var r model.BenchRecord
		var textAcc, keyAcc sql.NullFloat64
		if err := rows.Scan(&r.CaseIdx, &r.Algorithm, &r.Status, &textAcc, &keyAcc,
			&r.ElapsedMs, &r.ExitCode, &r.Stderr); err != nil {
			return nil, err
		}
		r.TextAccuracy = floatPtr(textAcc)
		r.KeyAccuracy = floatPtr(keyAcc)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
