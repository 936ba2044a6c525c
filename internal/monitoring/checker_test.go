package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

type fakeRuns struct {
	latest *model.RunResult
	err    error
}

func (f *fakeRuns) LatestRun(context.Context) (*model.RunResult, error) {
	return f.latest, f.err
}

func TestChecker_DiffsAgainstLatest(t *testing.T) {
	prev := run("r1", 4, assessment("aalto", model.StatusEligible, 0.8))
	curr := run("", 4, assessment("aalto", model.StatusWarning, 0.8))

	cfg := testMonitoringConfig("")
	c := NewChecker(&fakeRuns{latest: prev}, NewAlerter(cfg), cfg)

	rep, err := c.Check(context.Background(), curr, false)
	require.NoError(t, err)
	assert.Equal(t, "r1", rep.Diff.PreviousID)
	assert.Equal(t, []AlertType{AlertStatusChange}, types(rep.Alerts))
	assert.Zero(t, rep.Sent)
}

func TestChecker_IgnoresSameRun(t *testing.T) {
	curr := run("r1", 4, assessment("aalto", model.StatusWarning, 0.8))
	cfg := testMonitoringConfig("")
	c := NewChecker(&fakeRuns{latest: curr}, NewAlerter(cfg), cfg)

	rep, err := c.Check(context.Background(), curr, false)
	require.NoError(t, err)
	assert.Empty(t, rep.Diff.PreviousID)
	assert.Equal(t, []string{"aalto"}, rep.Diff.Added)
}

func TestChecker_NoStore(t *testing.T) {
	cfg := testMonitoringConfig("")
	c := NewChecker(nil, NewAlerter(cfg), cfg)

	rep, err := c.Check(context.Background(), run("", 9, assessment("aalto", model.StatusEligible, 0.8)), false)
	require.NoError(t, err)
	assert.Equal(t, []AlertType{AlertPortfolioRisk}, types(rep.Alerts))
}

func TestChecker_StoreError(t *testing.T) {
	cfg := testMonitoringConfig("")
	c := NewChecker(&fakeRuns{err: errors.New("db down")}, NewAlerter(cfg), cfg)

	_, err := c.Check(context.Background(), run("", 4), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load previous run")
}

func TestChecker_Notify(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := testMonitoringConfig(ts.URL)
	c := NewChecker(nil, NewAlerter(cfg, WithRetryPolicy(fastPolicy())), cfg)

	rep, err := c.Check(context.Background(), run("", 9, withDeadline(assessment("aalto", model.StatusWarning, 0.5), 3)), true)
	require.NoError(t, err)
	assert.Len(t, rep.Alerts, 2)
	assert.Equal(t, 2, rep.Sent)
	assert.Equal(t, int32(2), received.Load())
}
