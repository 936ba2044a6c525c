package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	s, err := Open(context.Background(), config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func testRun(generated time.Time, statuses map[string]model.Status) *model.RunResult {
	run := &model.RunResult{
		GeneratedAt: generated,
		Profile: model.ProfileSummary{
			IELTSOverall: 7,
			TargetBudget: model.Money{Amount: 12500, Currency: "EUR"},
		},
	}
	for _, id := range []string{"aalto", "taltech", "liu"} {
		st, ok := statuses[id]
		if !ok {
			continue
		}
		p := 0.5
		if st == model.StatusEligible {
			p = 0.8
		}
		run.Assessments = append(run.Assessments, model.Assessment{
			Eligibility: model.EligibilityResult{SchoolID: id, OverallStatus: st},
			Risk: model.RiskProfile{
				SchoolID:             id,
				AdmissionProbability: p,
				RiskCategory:         model.CategoryFor(p),
				OverallScore:         p - 0.1,
			},
		})
	}
	run.Portfolio = model.PortfolioSummary{
		SchoolCount:         len(run.Assessments),
		TotalRiskScore:      4.5,
		ExpectedAcceptances: 1.8,
	}
	return run
}

var t0 = time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := testRun(t0, map[string]model.Status{"aalto": model.StatusEligible, "taltech": model.StatusWarning})
		require.NoError(t, s.SaveRun(ctx, run))
		require.NotEmpty(t, run.ID)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.True(t, run.GeneratedAt.Equal(got.GeneratedAt))
		require.Len(t, got.Assessments, 2)
		assert.Equal(t, model.StatusWarning, got.Assessments[1].Eligibility.OverallStatus)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("LatestEmpty", func(t *testing.T) {
		s := newStore(t)
		got, err := s.LatestRun(context.Background())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("LatestByGeneratedAt", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		newer := testRun(t0.Add(24*time.Hour), map[string]model.Status{"aalto": model.StatusWarning})
		older := testRun(t0, map[string]model.Status{"aalto": model.StatusEligible})
		require.NoError(t, s.SaveRun(ctx, newer))
		require.NoError(t, s.SaveRun(ctx, older))

		got, err := s.LatestRun(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, newer.ID, got.ID)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := testRun(t0, map[string]model.Status{"aalto": model.StatusEligible, "liu": model.StatusEligible})
		require.NoError(t, s.SaveRun(ctx, run))

		run.Assessments = run.Assessments[:1]
		run.Portfolio.SchoolCount = 1
		require.NoError(t, s.SaveRun(ctx, run))

		runs, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, 1, runs[0].SchoolCount)

		hist, err := s.SchoolHistory(ctx, "liu", 10)
		require.NoError(t, err)
		assert.Empty(t, hist)
	})

	t.Run("ListPaging", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			require.NoError(t, s.SaveRun(ctx, testRun(t0.Add(time.Duration(i)*time.Hour), map[string]model.Status{"aalto": model.StatusEligible})))
		}

		runs, err := s.ListRuns(ctx, RunFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.True(t, runs[0].GeneratedAt.After(runs[1].GeneratedAt))
		assert.InDelta(t, 4.5, runs[0].TotalRiskScore, 1e-9)
		assert.InDelta(t, 1.8, runs[0].ExpectedAcceptances, 1e-9)

		rest, err := s.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})

	t.Run("SchoolHistory", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveRun(ctx, testRun(t0, map[string]model.Status{"aalto": model.StatusEligible, "taltech": model.StatusEligible})))
		require.NoError(t, s.SaveRun(ctx, testRun(t0.Add(48*time.Hour), map[string]model.Status{"aalto": model.StatusWarning})))

		hist, err := s.SchoolHistory(ctx, "aalto", 0)
		require.NoError(t, err)
		require.Len(t, hist, 2)
		assert.Equal(t, model.StatusWarning, hist[0].OverallStatus)
		assert.Equal(t, model.RiskTarget, hist[0].RiskCategory)
		assert.Equal(t, model.StatusEligible, hist[1].OverallStatus)
		assert.Equal(t, model.RiskSafe, hist[1].RiskCategory)
		assert.InDelta(t, 0.8, hist[1].AdmissionProbability, 1e-9)

		hist, err = s.SchoolHistory(ctx, "taltech", 0)
		require.NoError(t, err)
		assert.Len(t, hist, 1)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen_Drivers(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "none"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")

	_, err = Open(context.Background(), config.StoreConfig{Driver: "mysql", DatabaseURL: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")

	_, err = Open(context.Background(), config.StoreConfig{Driver: "postgres", DatabaseURL: "::not a url::"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: parse config")
}

func TestSchoolRows(t *testing.T) {
	run := testRun(t0, map[string]model.Status{"aalto": model.StatusEligible})
	run.ID = "r1"
	rows := schoolRows(run)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"r1", "aalto", "ELIGIBLE", "safe", 0.8, 0.8 - 0.1}, rows[0])
	assert.Len(t, rows[0], len(schoolColumns))
}
