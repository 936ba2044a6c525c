package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// Sheet names in the exported workbook.
const (
	SheetSchools   = "Schools"
	SheetPortfolio = "Portfolio"
)

func writeXLSX(w io.Writer, run *model.RunResult) error {
	f := xlsx.NewFile()

	schools, err := f.AddSheet(SheetSchools)
	if err != nil {
		return eris.Wrap(err, "report: add schools sheet")
	}
	addStrings(schools.AddRow(), Columns)
	for _, a := range run.Assessments {
		xr := schools.AddRow()
		for _, c := range schoolCells(a) {
			if c.num != nil {
				xr.AddCell().SetFloat(*c.num)
			} else {
				xr.AddCell().SetString(c.text)
			}
		}
	}

	summary, err := f.AddSheet(SheetPortfolio)
	if err != nil {
		return eris.Wrap(err, "report: add portfolio sheet")
	}
	p := run.Portfolio
	metric := func(name string, v float64) {
		r := summary.AddRow()
		r.AddCell().SetString(name)
		r.AddCell().SetFloat(v)
	}
	metric("school_count", float64(p.SchoolCount))
	for _, c := range model.Categories {
		metric(string(c)+"_count", float64(p.CategoryCounts[c]))
	}
	metric("total_risk_score", p.TotalRiskScore)
	metric("expected_acceptances", p.ExpectedAcceptances)
	metric("acceptance_variance", p.AcceptanceVariance)
	metric("probability_at_least_one", p.ProbabilityAtLeastOne)
	metric("diversification_score", p.DiversificationScore)
	metric("average_cost", p.AverageCost)
	metric("average_roi", p.AverageROI)
	metric("cost_efficiency", p.CostEfficiency)
	metric("pessimistic", p.Scenarios.Pessimistic)
	metric("realistic", p.Scenarios.Realistic)
	metric("optimistic", p.Scenarios.Optimistic)
	for _, rec := range p.Recommendations {
		addStrings(summary.AddRow(), []string{"recommendation", rec})
	}

	return eris.Wrap(f.Write(w), "report: write xlsx")
}

func addStrings(r *xlsx.Row, values []string) {
	for _, v := range values {
		r.AddCell().SetString(v)
	}
}
