package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	run := testRun(t0, map[string]model.Status{"aalto": model.StatusEligible, "liu": model.StatusWarning})
	run.ID = "run-1"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", t0, 2, 4.5, 1.8, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM run_schools WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_run_schools"}, schoolColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "run_schools"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_AssignsID(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := testRun(t0, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM run_schools`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.Len(t, run.ID, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_RollsBackOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := testRun(t0, map[string]model.Status{"aalto": model.StatusEligible})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.SaveRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	want := testRun(t0, map[string]model.Status{"aalto": model.StatusEligible})
	want.ID = "run-1"
	body, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT result FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(body))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	require.Len(t, got.Assessments, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT result FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestRun_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT result FROM runs ORDER BY generated_at DESC`).
		WillReturnError(pgx.ErrNoRows)

	got, err := s.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, generated_at, school_count, total_risk_score, expected_acceptances, created_at`).
		WithArgs(100, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "generated_at", "school_count", "total_risk_score", "expected_acceptances", "created_at"}).
			AddRow("run-2", t0.Add(24*time.Hour), 5, 4.2, 2.1, t0).
			AddRow("run-1", t0, 4, 5.0, 1.5, t0))

	runs, err := s.ListRuns(context.Background(), RunFilter{Offset: -3})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, 5, runs[0].SchoolCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SchoolHistory(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM run_schools rs JOIN runs r`).
		WithArgs("aalto", 5).
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "generated_at", "school_id", "overall_status", "risk_category", "admission_probability", "overall_score"}).
			AddRow("run-1", t0, "aalto", "WARNING", "target", 0.45, 0.6))

	hist, err := s.SchoolHistory(context.Background(), "aalto", 5)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.StatusWarning, hist[0].OverallStatus)
	assert.Equal(t, model.RiskTarget, hist[0].RiskCategory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
