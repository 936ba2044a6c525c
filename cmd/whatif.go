package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/report"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/whatif"
)

var whatifCmd = &cobra.Command{
	Use:   "whatif",
	Short: "Simulate a changed profile and compare it with the current one",
	Long: `Re-runs the engine with adjusted IELTS scores or budget and reports how each
school's admission probability and tier would move.

Presets: "ielts" (overall +0.5, writing +1.0) and "budget" (--budget-increase
percent). Explicit --ielts-* and --budget flags are applied on top.`,
	Example: `  gradapp whatif --preset ielts
  gradapp whatif --ielts-writing 6.5 --format json
  gradapp whatif --preset budget --budget-increase 30`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWhatIf(cmd.Context(), cmd.Flags(), cmd.OutOrStdout())
	},
}

func init() {
	registerWhatIfFlags(whatifCmd.Flags())
	rootCmd.AddCommand(whatifCmd)
}

func registerWhatIfFlags(f *pflag.FlagSet) {
	f.String("preset", "", "scenario preset: ielts or budget")
	f.Float64("budget-increase", 20, "percent budget increase for the budget preset")
	f.Float64("ielts-overall", 0, "override IELTS overall score")
	f.Float64("ielts-writing", 0, "override IELTS writing score")
	f.Float64("ielts-reading", 0, "override IELTS reading score")
	f.Float64("ielts-listening", 0, "override IELTS listening score")
	f.Float64("ielts-speaking", 0, "override IELTS speaking score")
	f.Float64("budget", 0, "override annual budget amount (profile currency)")
	f.String("name", "", "scenario name shown in the report")
	f.String("format", "table", "output format: table, csv or json")
	f.String("today", "", "reference date for deadline counting (YYYY-MM-DD)")
	f.Bool("live-rates", false, "fetch exchange rates from currency.live_rates_url")
}

func runWhatIf(ctx context.Context, flags *pflag.FlagSet, out io.Writer) error {
	formatStr, _ := flags.GetString("format")
	format, err := report.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	today, _ := flags.GetString("today")
	now, err := clockFor(today)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot()
	if err != nil {
		return eris.Wrap(err, "whatif: load inputs")
	}
	sc, err := scenarioFromFlags(flags, snap.Profile)
	if err != nil {
		return err
	}

	live, _ := flags.GetBool("live-rates")
	fees, err := buildNormalizer(ctx, snap.Profile.TargetBudget.Currency, live)
	if err != nil {
		return eris.Wrap(err, "whatif: currency")
	}

	res, err := whatif.New(newPipeline(fees, now)).Simulate(ctx, snap, sc)
	if err != nil {
		return err
	}
	return report.WriteWhatIf(out, res, format)
}

// scenarioFromFlags starts from the preset, if any, and layers explicit
// overrides on top.
func scenarioFromFlags(flags *pflag.FlagSet, base model.Profile) (whatif.Scenario, error) {
	var sc whatif.Scenario
	preset, _ := flags.GetString("preset")
	switch preset {
	case "":
		sc.Name = "custom"
	case "ielts":
		sc = whatif.IELTSImprovement(base)
	case "budget":
		pct, _ := flags.GetFloat64("budget-increase")
		sc = whatif.BudgetIncrease(base, pct)
	default:
		return sc, eris.Errorf("whatif: unknown preset %q (ielts, budget)", preset)
	}

	override := func(name string, dst **float64) {
		if !flags.Changed(name) {
			return
		}
		v, _ := flags.GetFloat64(name)
		*dst = &v
	}
	override("ielts-overall", &sc.IELTSOverall)
	override("ielts-writing", &sc.IELTSWriting)
	override("ielts-reading", &sc.IELTSReading)
	override("ielts-listening", &sc.IELTSListening)
	override("ielts-speaking", &sc.IELTSSpeaking)
	override("budget", &sc.BudgetAmount)

	if name, _ := flags.GetString("name"); name != "" {
		sc.Name = name
	}
	if sc.Empty() {
		return sc, eris.New("whatif: nothing to change; pass --preset or an override flag")
	}
	return sc, nil
}
