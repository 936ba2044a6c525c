package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/db"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"get_run":    `SELECT result FROM runs WHERE id = $1`,
	"latest_run": `SELECT result FROM runs ORDER BY generated_at DESC, created_at DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	generated_at         TIMESTAMPTZ NOT NULL,
	school_count         INTEGER NOT NULL,
	total_risk_score     DOUBLE PRECISION NOT NULL,
	expected_acceptances DOUBLE PRECISION NOT NULL,
	result               JSONB NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_schools (
	run_id                TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	school_id             TEXT NOT NULL,
	overall_status        TEXT NOT NULL,
	risk_category         TEXT NOT NULL,
	admission_probability DOUBLE PRECISION NOT NULL,
	overall_score         DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, school_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at DESC);
CREATE INDEX IF NOT EXISTS idx_run_schools_school_id ON run_schools(school_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.RunResult) error {
	ensureID(run)

	resultJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, generated_at, school_count, total_risk_score, expected_acceptances, result)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   generated_at = EXCLUDED.generated_at,
		   school_count = EXCLUDED.school_count,
		   total_risk_score = EXCLUDED.total_risk_score,
		   expected_acceptances = EXCLUDED.expected_acceptances,
		   result = EXCLUDED.result`,
		run.ID, run.GeneratedAt.UTC(), run.Portfolio.SchoolCount, run.Portfolio.TotalRiskScore,
		run.Portfolio.ExpectedAcceptances, resultJSON,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM run_schools WHERE run_id = $1`, run.ID); err != nil {
		return eris.Wrapf(err, "postgres: clear schools for run %s", run.ID)
	}

	if _, err := db.UpsertRows(ctx, tx, db.UpsertConfig{
		Table:        "run_schools",
		Columns:      schoolColumns,
		ConflictKeys: []string{"run_id", "school_id"},
	}, schoolRows(run)); err != nil {
		return eris.Wrapf(err, "postgres: write schools for run %s", run.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.RunResult, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT result FROM runs WHERE id = $1`, id).Scan(&resultJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return decodeRun(resultJSON)
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*model.RunResult, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM runs ORDER BY generated_at DESC, created_at DESC LIMIT 1`,
	).Scan(&resultJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest run")
	}
	return decodeRun(resultJSON)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, generated_at, school_count, total_risk_score, expected_acceptances, created_at
		 FROM runs ORDER BY generated_at DESC, created_at DESC LIMIT $1 OFFSET $2`,
		pageLimit(filter.Limit), max(filter.Offset, 0),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.GeneratedAt, &r.SchoolCount, &r.TotalRiskScore, &r.ExpectedAcceptances, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run summary")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SchoolHistory(ctx context.Context, schoolID string, limit int) ([]SchoolSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rs.run_id, r.generated_at, rs.school_id, rs.overall_status, rs.risk_category,
		        rs.admission_probability, rs.overall_score
		 FROM run_schools rs JOIN runs r ON r.id = rs.run_id
		 WHERE rs.school_id = $1
		 ORDER BY r.generated_at DESC, r.created_at DESC LIMIT $2`,
		schoolID, pageLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: school history %s", schoolID)
	}
	defer rows.Close()

	var out []SchoolSnapshot
	for rows.Next() {
		var (
			h                SchoolSnapshot
			status, category string
		)
		if err := rows.Scan(&h.RunID, &h.GeneratedAt, &h.SchoolID, &status, &category,
			&h.AdmissionProbability, &h.OverallScore); err != nil {
			return nil, eris.Wrap(err, "postgres: scan school history")
		}
		h.OverallStatus = model.Status(status)
		h.RiskCategory = model.RiskCategory(category)
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "postgres: school history iterate")
}

func decodeRun(b []byte) (*model.RunResult, error) {
	var run model.RunResult
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run")
	}
	return &run, nil
}
