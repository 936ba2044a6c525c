package monitoring

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// Report is the outcome of one monitoring pass.
type Report struct {
	Diff   *RunDiff `json:"diff"`
	Alerts []Alert  `json:"alerts"`
	Sent   int      `json:"sent"`
}

// Checker diffs a fresh run against the last stored one and raises alerts.
type Checker struct {
	runs    RunReader
	alerter *Alerter
	cfg     config.MonitoringConfig
}

// NewChecker creates a checker. runs may be nil when persistence is off, in
// which case nothing is diffed.
func NewChecker(runs RunReader, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{runs: runs, alerter: alerter, cfg: cfg}
}

// Check must run before run itself is saved. Alerts are only delivered when
// notify is set.
func (c *Checker) Check(ctx context.Context, run *model.RunResult, notify bool) (*Report, error) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	var prev *model.RunResult
	if c.runs != nil {
		latest, err := c.runs.LatestRun(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: load previous run")
		}
		if latest != nil && (run.ID == "" || latest.ID != run.ID) {
			prev = latest
		}
	}

	rep := &Report{Diff: Diff(prev, run, c.cfg.ProbabilityShiftThreshold)}
	rep.Alerts = c.alerter.Evaluate(run, rep.Diff)

	if notify {
		rep.Sent = c.alerter.SendAlerts(ctx, rep.Alerts)
	}

	log.Info("monitoring: check complete",
		zap.String("previous_run", rep.Diff.PreviousID),
		zap.Int("status_changes", len(rep.Diff.StatusChanges)),
		zap.Int("alerts_triggered", len(rep.Alerts)),
		zap.Int("alerts_sent", rep.Sent),
	)
	return rep, nil
}
