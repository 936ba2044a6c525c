package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/metrics"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/monitoring"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/report"
)

type evaluateOptions struct {
	format      string
	output      string
	save        bool
	notify      bool
	liveRates   bool
	today       string
	metricsFile string
}

var evalOpts evaluateOptions

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate every active school and analyze the portfolio",
	Long: `Loads the profile, school catalog and live data, evaluates eligibility and
admission risk for every active school, then analyzes the portfolio.

With --save the run is stored; with --notify it is first compared with the
previous stored run and alerts are posted to monitoring.webhook_url.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEvaluate(cmd.Context(), evalOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVar(&evalOpts.format, "format", "table", "output format: table, csv, json or xlsx")
	f.StringVarP(&evalOpts.output, "output", "o", "", "write the report to this file instead of stdout")
	f.BoolVar(&evalOpts.save, "save", false, "persist the run to the configured store")
	f.BoolVar(&evalOpts.notify, "notify", false, "diff against the previous run and send alerts")
	f.BoolVar(&evalOpts.liveRates, "live-rates", false, "fetch exchange rates from currency.live_rates_url")
	f.StringVar(&evalOpts.today, "today", "", "reference date for deadline counting (YYYY-MM-DD)")
	f.StringVar(&evalOpts.metricsFile, "metrics-file", "", "write Prometheus gauges to this textfile")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(ctx context.Context, opts evaluateOptions, stdout, stderr io.Writer) error {
	log := zap.L().With(zap.String("component", "evaluate"))

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if format.Binary() && opts.output == "" {
		return eris.Errorf("evaluate: --format %s requires --output", format)
	}
	now, err := clockFor(opts.today)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot()
	if err != nil {
		return eris.Wrap(err, "evaluate: load inputs")
	}
	fees, err := buildNormalizer(ctx, snap.Profile.TargetBudget.Currency, opts.liveRates)
	if err != nil {
		return eris.Wrap(err, "evaluate: currency")
	}

	run, err := newPipeline(fees, now).Run(ctx, snap)
	if err != nil {
		return err
	}

	if err := persistAndNotify(ctx, run, opts, stderr); err != nil {
		return err
	}

	if path := firstNonEmpty(opts.metricsFile, cfg.Metrics.TextfilePath); path != "" {
		if err := metrics.Export(run, path); err != nil {
			return err
		}
		log.Debug("metrics textfile written", zap.String("path", path))
	}

	return writeReport(run, format, opts.output, stdout)
}

// persistAndNotify diffs against the stored history before saving, so the
// previous run is still the latest when the checker reads it.
func persistAndNotify(ctx context.Context, run *model.RunResult, opts evaluateOptions, stderr io.Writer) error {
	if !opts.save && !opts.notify {
		return nil
	}

	var reader monitoring.RunReader
	if persistenceEnabled() {
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		reader = st

		if opts.notify {
			if err := notify(ctx, run, reader, stderr); err != nil {
				return err
			}
		}
		if opts.save {
			if err := st.SaveRun(ctx, run); err != nil {
				return eris.Wrap(err, "evaluate: save run")
			}
			_, _ = fmt.Fprintf(stderr, "Saved run %s\n", run.ID)
		}
		return nil
	}

	if opts.save {
		zap.L().Warn("--save ignored: store.driver is none")
	}
	if opts.notify {
		return notify(ctx, run, nil, stderr)
	}
	return nil
}

func notify(ctx context.Context, run *model.RunResult, reader monitoring.RunReader, stderr io.Writer) error {
	alerter := monitoring.NewAlerter(cfg.Monitoring,
		monitoring.WithDeadlineWindows(cfg.Eligibility.UrgentDays, cfg.Eligibility.UpcomingDays))
	rep, err := monitoring.NewChecker(reader, alerter, cfg.Monitoring).Check(ctx, run, true)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stderr, "%d alert(s) raised, %d sent\n", len(rep.Alerts), rep.Sent)
	for _, a := range rep.Alerts {
		_, _ = fmt.Fprintf(stderr, "  [%s] %s\n", a.Severity, a.Message)
	}
	return nil
}

func writeReport(run *model.RunResult, format report.Format, output string, stdout io.Writer) error {
	if output == "" {
		return report.Write(stdout, run, format)
	}
	f, err := os.Create(output)
	if err != nil {
		return eris.Wrapf(err, "evaluate: create %s", output)
	}
	if err := report.Write(f, run, format); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "evaluate: close %s", output)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
