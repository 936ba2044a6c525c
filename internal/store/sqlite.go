package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                   TEXT PRIMARY KEY,
	generated_at         DATETIME NOT NULL,
	school_count         INTEGER NOT NULL,
	total_risk_score     REAL NOT NULL,
	expected_acceptances REAL NOT NULL,
	result               TEXT NOT NULL,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_schools (
	run_id                TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	school_id             TEXT NOT NULL,
	overall_status        TEXT NOT NULL,
	risk_category         TEXT NOT NULL,
	admission_probability REAL NOT NULL,
	overall_score         REAL NOT NULL,
	PRIMARY KEY (run_id, school_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at);
CREATE INDEX IF NOT EXISTS idx_run_schools_school_id ON run_schools(school_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.RunResult) error {
	ensureID(run)

	resultJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, generated_at, school_count, total_risk_score, expected_acceptances, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   generated_at = excluded.generated_at,
		   school_count = excluded.school_count,
		   total_risk_score = excluded.total_risk_score,
		   expected_acceptances = excluded.expected_acceptances,
		   result = excluded.result`,
		run.ID, run.GeneratedAt.UTC(), run.Portfolio.SchoolCount, run.Portfolio.TotalRiskScore,
		run.Portfolio.ExpectedAcceptances, string(resultJSON), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_schools WHERE run_id = ?`, run.ID); err != nil {
		return eris.Wrapf(err, "sqlite: clear schools for run %s", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_schools (run_id, school_id, overall_status, risk_category, admission_probability, overall_score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare school insert")
	}
	defer stmt.Close()

	for _, row := range schoolRows(run) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert school %v for run %s", row[1], run.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.RunResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT result FROM runs WHERE id = ?`, id)
	run, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	return run, err
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*model.RunResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM runs ORDER BY generated_at DESC, created_at DESC LIMIT 1`,
	)
	run, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	query := `SELECT id, generated_at, school_count, total_risk_score, expected_acceptances, created_at
		FROM runs ORDER BY generated_at DESC, created_at DESC LIMIT ?`
	args := []any{pageLimit(filter.Limit)}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.GeneratedAt, &r.SchoolCount, &r.TotalRiskScore, &r.ExpectedAcceptances, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run summary")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SchoolHistory(ctx context.Context, schoolID string, limit int) ([]SchoolSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rs.run_id, r.generated_at, rs.school_id, rs.overall_status, rs.risk_category,
		        rs.admission_probability, rs.overall_score
		 FROM run_schools rs JOIN runs r ON r.id = rs.run_id
		 WHERE rs.school_id = ?
		 ORDER BY r.generated_at DESC, r.created_at DESC LIMIT ?`,
		schoolID, pageLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: school history %s", schoolID)
	}
	defer rows.Close()

	var out []SchoolSnapshot
	for rows.Next() {
		var h SchoolSnapshot
		if err := rows.Scan(&h.RunID, &h.GeneratedAt, &h.SchoolID, &h.OverallStatus, &h.RiskCategory,
			&h.AdmissionProbability, &h.OverallScore); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan school history")
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: school history iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

// scanResult decodes the result column. sql.ErrNoRows is returned unwrapped
// so callers can map it.
func scanResult(row scannable) (*model.RunResult, error) {
	var resultJSON string
	if err := row.Scan(&resultJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	var run model.RunResult
	if err := json.Unmarshal([]byte(resultJSON), &run); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run")
	}
	return &run, nil
}
