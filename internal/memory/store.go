package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"funcagent/internal/domain"

	_ "modernc.org/sqlite"
)

const defaultListLimit = 20

// SQLiteStore implements domain.RunStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ domain.RunStore = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// SaveRun writes the run and its step log in one transaction. Saving an
// existing id replaces the previous record.
func (s *SQLiteStore) SaveRun(ctx context.Context, run domain.RunRecord) (err error) {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM run_steps WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear run steps: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		 (id, kind, title, request, state, result, steps, tokens_in, tokens_out, provider, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Title, run.Request, string(run.State), run.Result,
		run.Steps, run.TokensIn, run.TokensOut, run.Provider, run.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, st := range run.StepLog {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_steps (run_id, step_index, requirement, state, result, iterations)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, st.Index, st.Requirement, string(st.State), st.Result, st.Steps,
		); err != nil {
			return fmt.Errorf("insert run step %d: %w", st.Index, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	s.logger.Debug("run journaled", "id", run.ID, "kind", run.Kind, "state", run.State)
	return nil
}

// GetRun returns nil, nil when no run has the given id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, title, request, state, result, steps, tokens_in, tokens_out, provider, created_at
		 FROM runs WHERE id = ?`, id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step_index, requirement, state, result, iterations
		 FROM run_steps WHERE run_id = ? ORDER BY step_index`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st domain.PlanStepResult
		var state string
		if err := rows.Scan(&st.Index, &st.Requirement, &state, &st.Result, &st.Steps); err != nil {
			return nil, err
		}
		st.State = domain.State(state)
		run.StepLog = append(run.StepLog, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first, without their step logs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, title, request, state, result, steps, tokens_in, tokens_out, provider, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountByState returns how many journaled runs ended in each state.
func (s *SQLiteStore) CountByState(ctx context.Context) (map[domain.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM runs GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.State]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[domain.State(state)] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (domain.RunRecord, error) {
	var run domain.RunRecord
	var kind, state string
	var provider sql.NullString
	var created int64
	err := r.Scan(&run.ID, &kind, &run.Title, &run.Request, &state, &run.Result,
		&run.Steps, &run.TokensIn, &run.TokensOut, &provider, &created)
	if err != nil {
		return run, err
	}
	run.Kind = domain.RunKind(kind)
	run.State = domain.State(state)
	run.Provider = provider.String
	run.CreatedAt = time.UnixMilli(created)
	return run, nil
}
