package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/whatif"
)

func sampleRun() *model.RunResult {
	days := 62
	return &model.RunResult{
		ID:          "run-1",
		GeneratedAt: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		Assessments: []model.Assessment{
			{
				Eligibility: model.EligibilityResult{
					SchoolID:        "aalto",
					SchoolName:      "Aalto University",
					Program:         "MSc Security and Cloud Computing",
					OverallStatus:   model.StatusWarning,
					ConfidenceScore: 0.9,
					RiskFactors:     []string{"IELTS writing score at minimum", "Tuition exceeds budget"},
					ValidationDetails: model.ValidationDetails{
						BudgetBand:        model.BudgetStretch,
						DaysUntilDeadline: &days,
					},
				},
				Risk: model.RiskProfile{
					SchoolID:             "aalto",
					Country:              "Finland",
					AdmissionProbability: 0.5544,
					RiskCategory:         model.RiskTarget,
					Cost:                 &model.NormalizedCost{Amount: 17000, Currency: "EUR"},
					ROIScore:             0.81,
					PrestigeScore:        0.9,
					FitScore:             1,
					OverallScore:         0.7,
				},
			},
			{
				Eligibility: model.EligibilityResult{
					SchoolID:      "mystery",
					OverallStatus: model.StatusNeedsReview,
					ValidationDetails: model.ValidationDetails{
						BudgetBand: model.BudgetUnknown,
					},
				},
				Risk: model.RiskProfile{SchoolID: "mystery", RiskCategory: model.RiskReach, AdmissionProbability: 0.2},
			},
		},
		Portfolio: model.PortfolioSummary{
			SchoolCount:           2,
			TotalRiskScore:        6.5,
			CategoryCounts:        map[model.RiskCategory]int{model.RiskReach: 1, model.RiskTarget: 1},
			ExpectedAcceptances:   0.7544,
			ProbabilityAtLeastOne: 0.64,
			Scenarios:             model.Scenarios{Pessimistic: 0, Realistic: 0.7544, Optimistic: 2},
			Recommendations:       []string{"Add safe schools"},
		},
		LoadIssues: []string{"schools.yml[4]: missing school_id"},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "CSV", " json ", "xlsx"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.True(t, FormatXLSX.Binary())
	assert.False(t, FormatCSV.Binary())
}

func TestWrite_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatTable))
	out := buf.String()

	assert.Contains(t, out, "SCHOOL")
	assert.Contains(t, out, "Aalto University")
	assert.Contains(t, out, "EUR 17,000")
	assert.Contains(t, out, "62d")
	assert.Contains(t, out, "55%")
	assert.Contains(t, out, "unknown")
	assert.Contains(t, out, "Mix (reach/target/safe):  1 / 1 / 0")
	assert.Contains(t, out, "Risk score:")
	assert.Contains(t, out, "  - Add safe schools")
	assert.Contains(t, out, "Skipped 1 catalog record(s)")
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "aalto", records[1][0])
	assert.Equal(t, "0.5544", records[1][6])
	assert.Equal(t, "17000.00", records[1][8])
	assert.Equal(t, "62", records[1][11])
	assert.Equal(t, "IELTS writing score at minimum; Tuition exceeds budget", records[1][16])
	assert.Equal(t, "", records[2][8])
	assert.Equal(t, "", records[2][11])
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatJSON))

	var back model.RunResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "run-1", back.ID)
	assert.Len(t, back.Assessments, 2)
}

func TestWrite_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatXLSX))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	schools, ok := f.Sheet[SheetSchools]
	require.True(t, ok)
	require.Len(t, schools.Rows, 3)
	assert.Equal(t, "school_id", schools.Rows[0].Cells[0].String())
	assert.Equal(t, "aalto", schools.Rows[1].Cells[0].String())
	cost, err := schools.Rows[1].Cells[8].Float()
	require.NoError(t, err)
	assert.InDelta(t, 17000, cost, 1e-9)
	assert.Equal(t, "", schools.Rows[2].Cells[8].String())

	portfolio, ok := f.Sheet[SheetPortfolio]
	require.True(t, ok)
	assert.Equal(t, "school_count", portfolio.Rows[0].Cells[0].String())
	last := portfolio.Rows[len(portfolio.Rows)-1]
	assert.Equal(t, "recommendation", last.Cells[0].String())
	assert.Equal(t, "Add safe schools", last.Cells[1].String())
}

func TestWriteWhatIf(t *testing.T) {
	res := &whatif.Result{
		Scenario: whatif.Scenario{Name: "ielts_improvement"},
		Baseline: model.ProfileSummary{IELTSOverall: 6.5, IELTSWriting: 5.5, TargetBudget: model.Money{Amount: 12500, Currency: "EUR"}},
		Adjusted: model.ProfileSummary{IELTSOverall: 7.0, IELTSWriting: 6.5, TargetBudget: model.Money{Amount: 12500, Currency: "EUR"}},
		Schools: []whatif.SchoolImpact{{
			SchoolID: "aalto", SchoolName: "Aalto University",
			BaselineStatus: model.StatusWarning, ScenarioStatus: model.StatusEligible,
			BaselineProbability: 0.5, ScenarioProbability: 0.8, ProbabilityChange: 0.3,
			BaselineCategory: model.RiskTarget, ScenarioCategory: model.RiskSafe,
			Impact: whatif.ImpactSignificant,
		}},
		BaselineExpected: 0.5, ScenarioExpected: 0.8, ExpectedChange: 0.3,
		Recommendations: []string{"Moves 1 target school(s) to safe"},
	}

	var table bytes.Buffer
	require.NoError(t, WriteWhatIf(&table, res, FormatTable))
	out := table.String()
	assert.Contains(t, out, "Scenario: ielts_improvement")
	assert.Contains(t, out, "WARNING -> ELIGIBLE")
	assert.Contains(t, out, "50% -> 80%")
	assert.Contains(t, out, "+30.0")
	assert.Contains(t, out, "target -> safe")
	assert.Contains(t, out, "Expected acceptances: 0.50 -> 0.80 (+0.30)")

	var c bytes.Buffer
	require.NoError(t, WriteWhatIf(&c, res, FormatCSV))
	records, err := csv.NewReader(&c).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "significant", records[1][9])

	assert.Error(t, WriteWhatIf(&c, res, FormatXLSX))
}
