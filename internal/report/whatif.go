package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/whatif"
)

// WriteWhatIf renders a simulation. XLSX is not supported.
func WriteWhatIf(w io.Writer, res *whatif.Result, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatCSV:
		return writeWhatIfCSV(w, res)
	case FormatTable:
		return writeWhatIfTable(w, res)
	default:
		return eris.Errorf("report: format %q not supported for what-if", f)
	}
}

func writeWhatIfCSV(w io.Writer, res *whatif.Result) error {
	cw := csv.NewWriter(w)
	header := []string{"school_id", "school_name", "baseline_status", "scenario_status",
		"baseline_probability", "scenario_probability", "probability_change",
		"baseline_category", "scenario_category", "impact"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	f4 := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for _, s := range res.Schools {
		if err := cw.Write([]string{
			s.SchoolID, s.SchoolName, string(s.BaselineStatus), string(s.ScenarioStatus),
			f4(s.BaselineProbability), f4(s.ScenarioProbability), f4(s.ProbabilityChange),
			string(s.BaselineCategory), string(s.ScenarioCategory), string(s.Impact),
		}); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}

func writeWhatIfTable(out io.Writer, res *whatif.Result) error {
	_, _ = fmt.Fprintf(out, "Scenario: %s\n", res.Scenario.Name)
	_, _ = fmt.Fprintf(out, "IELTS %.1f/%.1f -> %.1f/%.1f, budget %.0f -> %.0f %s\n\n",
		res.Baseline.IELTSOverall, res.Baseline.IELTSWriting,
		res.Adjusted.IELTSOverall, res.Adjusted.IELTSWriting,
		res.Baseline.TargetBudget.Amount, res.Adjusted.TargetBudget.Amount, res.Adjusted.TargetBudget.Currency)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCHOOL\tSTATUS\tPROB\tCHANGE\tCATEGORY\tIMPACT")
	_, _ = fmt.Fprintln(w, "------\t------\t----\t------\t--------\t------")
	for _, s := range res.Schools {
		status := string(s.BaselineStatus)
		if s.ScenarioStatus != s.BaselineStatus {
			status += " -> " + string(s.ScenarioStatus)
		}
		category := string(s.BaselineCategory)
		if s.ScenarioCategory != s.BaselineCategory {
			category += " -> " + string(s.ScenarioCategory)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f%% -> %.0f%%\t%+.1f\t%s\t%s\n",
			truncate(nameOr(s.SchoolName, s.SchoolID), 40),
			status,
			s.BaselineProbability*100, s.ScenarioProbability*100,
			s.ProbabilityChange*100,
			category,
			s.Impact,
		)
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "report: flush table")
	}

	_, _ = fmt.Fprintf(out, "\nExpected acceptances: %.2f -> %.2f (%+.2f)\n",
		res.BaselineExpected, res.ScenarioExpected, res.ExpectedChange)
	_, _ = fmt.Fprintf(out, "Risk score: %.1f -> %.1f\n", res.BaselineRisk, res.ScenarioRisk)
	for _, r := range res.Recommendations {
		_, _ = fmt.Fprintf(out, "  - %s\n", r)
	}
	return nil
}
