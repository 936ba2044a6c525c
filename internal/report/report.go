// Package report renders run results for the terminal and for export.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/cost"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// Format is an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("report: unsupported format %q (table, csv, json, xlsx)", s)
	}
}

// Binary reports whether the format should not be written to a terminal.
func (f Format) Binary() bool { return f == FormatXLSX }

// Columns are the per-school export columns shared by CSV and XLSX.
var Columns = []string{
	"school_id", "school_name", "program", "country", "overall_status", "confidence",
	"admission_probability", "risk_category", "annual_cost", "currency", "budget_band",
	"days_until_deadline", "roi", "prestige", "fit", "overall_score", "risk_factors",
}

// Write renders run in the given format.
func Write(w io.Writer, run *model.RunResult, f Format) error {
	switch f {
	case FormatTable:
		return writeTable(w, run)
	case FormatCSV:
		return writeCSV(w, run)
	case FormatJSON:
		return WriteJSON(w, run)
	case FormatXLSX:
		return writeXLSX(w, run)
	default:
		return eris.Errorf("report: unsupported format %q", f)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "report: encode json")
}

// cell is one export value. Numeric cells keep the number for XLSX.
type cell struct {
	text string
	num  *float64
}

func text(s string) cell { return cell{text: s} }

func num(v float64, prec int) cell {
	return cell{text: strconv.FormatFloat(v, 'f', prec, 64), num: &v}
}

// schoolCells flattens one assessment in Columns order.
func schoolCells(a model.Assessment) []cell {
	e, r := a.Eligibility, a.Risk
	d := e.ValidationDetails

	annual, currency := text(""), text("")
	if amount, ok := r.AnnualCost(); ok {
		annual, currency = num(amount, 2), text(r.Cost.Currency)
	}
	days := text("")
	if d.DaysUntilDeadline != nil {
		days = num(float64(*d.DaysUntilDeadline), 0)
	}

	return []cell{
		text(e.SchoolID), text(e.SchoolName), text(e.Program), text(r.Country),
		text(string(e.OverallStatus)), num(e.ConfidenceScore, 4),
		num(r.AdmissionProbability, 4), text(string(r.RiskCategory)),
		annual, currency, text(string(d.BudgetBand)), days,
		num(r.ROIScore, 4), num(r.PrestigeScore, 4), num(r.FitScore, 4), num(r.OverallScore, 4),
		text(strings.Join(e.RiskFactors, "; ")),
	}
}

func texts(cells []cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.text
	}
	return out
}

func writeCSV(w io.Writer, run *model.RunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for _, a := range run.Assessments {
		if err := cw.Write(texts(schoolCells(a))); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}

func writeTable(out io.Writer, run *model.RunResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCHOOL\tSTATUS\tCONF\tPROB\tCATEGORY\tANNUAL COST\tDEADLINE\tOVERALL")
	_, _ = fmt.Fprintln(w, "------\t------\t----\t----\t--------\t-----------\t--------\t-------")
	for _, a := range run.Assessments {
		e, r := a.Eligibility, a.Risk
		annual := "unknown"
		if amount, ok := r.AnnualCost(); ok {
			annual = cost.Format(amount, r.Cost.Currency)
		}
		deadline := "-"
		if d := e.ValidationDetails.DaysUntilDeadline; d != nil {
			deadline = fmt.Sprintf("%dd", *d)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%.0f%%\t%s\t%s\t%s\t%.2f\n",
			truncate(nameOr(e.SchoolName, e.SchoolID), 40),
			e.OverallStatus,
			e.ConfidenceScore*100,
			r.AdmissionProbability*100,
			r.RiskCategory,
			annual,
			deadline,
			r.OverallScore,
		)
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "report: flush table")
	}

	p := run.Portfolio
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Schools:\t%d\n", p.SchoolCount)
	_, _ = fmt.Fprintf(w, "Mix (reach/target/safe):\t%d / %d / %d\n",
		p.CategoryCounts[model.RiskReach], p.CategoryCounts[model.RiskTarget], p.CategoryCounts[model.RiskSafe])
	_, _ = fmt.Fprintf(w, "Risk score:\t%.1f / 10\n", p.TotalRiskScore)
	_, _ = fmt.Fprintf(w, "Expected acceptances:\t%.2f (%.2f to %.2f)\n",
		p.ExpectedAcceptances, p.Scenarios.Pessimistic, p.Scenarios.Optimistic)
	_, _ = fmt.Fprintf(w, "P(at least one):\t%.1f%%\n", p.ProbabilityAtLeastOne*100)
	_, _ = fmt.Fprintf(w, "Diversification:\t%.2f\n", p.DiversificationScore)
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "report: flush summary")
	}

	if len(p.Recommendations) > 0 {
		_, _ = fmt.Fprintln(out, "\nRecommendations:")
		for _, r := range p.Recommendations {
			_, _ = fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	if len(run.LoadIssues) > 0 {
		_, _ = fmt.Fprintf(out, "\nSkipped %d catalog record(s):\n", len(run.LoadIssues))
		for _, is := range run.LoadIssues {
			_, _ = fmt.Fprintf(out, "  - %s\n", is)
		}
	}
	return nil
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
