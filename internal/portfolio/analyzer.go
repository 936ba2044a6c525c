// Package portfolio aggregates per-school risk profiles into a
// reach/target/safe balance report with suggested changes.
package portfolio

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// WorstRiskScore is reported for an empty portfolio.
const WorstRiskScore = 10.0

// NoSchools is the only recommendation for an empty portfolio.
const NoSchools = "No schools in portfolio: add active schools to the catalog"

// costUnit scales average cost in the cost efficiency ratio, in EUR.
const costUnit = 10000.0

// DefaultConfig returns the 25/50/25 mix and the standard thresholds.
func DefaultConfig() config.PortfolioConfig {
	return config.PortfolioConfig{
		TargetReach:       0.25,
		TargetTarget:      0.5,
		TargetSafe:        0.25,
		ReachSeverity:     8,
		TargetSeverity:    5,
		SafeSeverity:      2,
		HighCostThreshold: 20000,
		LowROIThreshold:   0.8,
		ScenarioUpside:    1.5,
		ScenarioDownside:  1.0,
	}
}

// Analyzer computes a PortfolioSummary. It holds no state between calls.
type Analyzer struct {
	cfg       config.PortfolioConfig
	costScale float64
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithCostScale sets how many reference-currency units make one euro.
// HighCostThreshold and the cost efficiency unit are euro amounts.
func WithCostScale(scale float64) Option {
	return func(a *Analyzer) {
		if scale > 0 {
			a.costScale = scale
		}
	}
}

// New creates an Analyzer.
func New(cfg config.PortfolioConfig, opts ...Option) *Analyzer {
	a := &Analyzer{cfg: cfg, costScale: 1}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Analyzer) targetMix() map[model.RiskCategory]float64 {
	return map[model.RiskCategory]float64{
		model.RiskReach:  a.cfg.TargetReach,
		model.RiskTarget: a.cfg.TargetTarget,
		model.RiskSafe:   a.cfg.TargetSafe,
	}
}

func (a *Analyzer) severity() map[model.RiskCategory]float64 {
	return map[model.RiskCategory]float64{
		model.RiskReach:  a.cfg.ReachSeverity,
		model.RiskTarget: a.cfg.TargetSeverity,
		model.RiskSafe:   a.cfg.SafeSeverity,
	}
}

// Analyze aggregates the profiles. An empty slice yields the worst-case
// summary instead of dividing by zero.
func (a *Analyzer) Analyze(profiles []model.RiskProfile) model.PortfolioSummary {
	sum := model.PortfolioSummary{
		RiskDistribution: make(map[model.RiskCategory]float64, len(model.Categories)),
		CategoryCounts:   make(map[model.RiskCategory]int, len(model.Categories)),
		Recommendations:  []string{},
		OptimalChanges:   []model.Change{},
	}
	for _, c := range model.Categories {
		sum.RiskDistribution[c] = 0
		sum.CategoryCounts[c] = 0
	}

	n := len(profiles)
	if n == 0 {
		sum.TotalRiskScore = WorstRiskScore
		sum.Recommendations = []string{NoSchools}
		return sum
	}
	sum.SchoolCount = n

	for _, p := range profiles {
		sum.CategoryCounts[p.RiskCategory]++
	}
	for _, c := range model.Categories {
		sum.RiskDistribution[c] = float64(sum.CategoryCounts[c]) / float64(n)
	}

	risk := 0.0
	severity := a.severity()
	for _, c := range model.Categories {
		risk += sum.RiskDistribution[c] * severity[c]
	}
	sum.TotalRiskScore = round4(math.Max(0, math.Min(WorstRiskScore, risk)))

	expected, variance, noneAccepted := 0.0, 0.0, 1.0
	for _, p := range profiles {
		expected += p.AdmissionProbability
		variance += p.AdmissionProbability * (1 - p.AdmissionProbability)
		noneAccepted *= 1 - p.AdmissionProbability
	}
	sum.ExpectedAcceptances = round4(expected)
	sum.AcceptanceVariance = round4(variance)
	sum.ProbabilityAtLeastOne = round4(1 - noneAccepted)

	sum.Scenarios = model.Scenarios{
		Pessimistic: round4(math.Max(0, expected-a.cfg.ScenarioDownside)),
		Realistic:   sum.ExpectedAcceptances,
		Optimistic:  round4(math.Min(float64(n), expected+a.cfg.ScenarioUpside)),
	}

	penalty := 0.0
	mix := a.targetMix()
	for _, c := range model.Categories {
		penalty += math.Abs(sum.RiskDistribution[c] - mix[c])
	}
	sum.DiversificationScore = round4(math.Max(0, 1-penalty/2))

	sum.AverageCost, sum.AverageROI, sum.CostEfficiency = costEfficiency(profiles, costUnit*a.costScale)
	sum.Recommendations = a.recommend(sum, profiles)
	sum.OptimalChanges = a.optimalChanges(sum.CategoryCounts, profiles)

	zap.L().Debug("portfolio: analyzed",
		zap.Int("schools", n),
		zap.Float64("total_risk_score", sum.TotalRiskScore),
		zap.Float64("expected_acceptances", sum.ExpectedAcceptances),
		zap.Float64("diversification_score", sum.DiversificationScore),
	)
	return sum
}

// costEfficiency averages ROI over every school and cost over the schools
// whose cost is known, then divides ROI by cost in multiples of unit.
func costEfficiency(profiles []model.RiskProfile, unit float64) (avgCost, avgROI, efficiency float64) {
	var costTotal, roiTotal float64
	known := 0
	for _, p := range profiles {
		roiTotal += p.ROIScore
		if c, ok := p.AnnualCost(); ok {
			costTotal += c
			known++
		}
	}
	avgROI = roiTotal / float64(len(profiles))
	if known > 0 {
		avgCost = costTotal / float64(known)
	}
	efficiency = avgROI
	if avgCost > 0 {
		efficiency = avgROI / (avgCost / unit)
	}
	return round2(avgCost), round4(avgROI), round4(efficiency)
}

func (a *Analyzer) recommend(sum model.PortfolioSummary, profiles []model.RiskProfile) []string {
	var recs []string

	switch r := sum.TotalRiskScore; {
	case r >= 8:
		recs = append(recs, "Portfolio risk is very high: add more target or safe schools")
	case r >= 6:
		recs = append(recs, "Portfolio risk is elevated: rebalance the risk distribution")
	case r <= 3:
		recs = append(recs, "Portfolio is very conservative: consider one or two reach schools")
	default:
		recs = append(recs, "Portfolio risk is moderate and reasonably balanced")
	}

	dist := sum.RiskDistribution
	switch {
	case dist[model.RiskReach] > 0.4:
		recs = append(recs, fmt.Sprintf("Reach share is %.0f%%: rebalance toward %.0f%% or less",
			dist[model.RiskReach]*100, a.cfg.TargetReach*100))
	case dist[model.RiskReach] < 0.1:
		recs = append(recs, "Consider one or two reach schools to raise the ceiling")
	}
	if dist[model.RiskTarget] < 0.3 {
		recs = append(recs, "Too few target schools: aim for 40-60% of the portfolio")
	}
	if dist[model.RiskSafe] < 0.2 {
		recs = append(recs, "Too few safe schools: keep at least 20% as a fallback")
	}

	n := float64(len(profiles))
	highCost, lowROI := 0, 0
	for _, p := range profiles {
		if c, ok := p.AnnualCost(); ok && c > a.cfg.HighCostThreshold*a.costScale {
			highCost++
		}
		if p.ROIScore < a.cfg.LowROIThreshold {
			lowROI++
		}
	}
	if float64(highCost) > n*0.6 {
		recs = append(recs, "Too many high-tuition schools: add free or low-cost options")
	}
	if float64(lowROI) > n*0.5 {
		recs = append(recs, "Return on investment is low across the portfolio: reassess career value")
	}

	switch e := sum.ExpectedAcceptances; {
	case e < 1:
		recs = append(recs, "Expected acceptances below one: apply to more schools or adjust strategy")
	case e > 3:
		recs = append(recs, "Expected acceptances are comfortable: focus on application quality")
	}
	return recs
}

// optimalChanges compares actual counts with round-half-even target counts.
// Deficits suggest additions with example schools; surpluses suggest removing
// the lowest overall scores in that tier.
func (a *Analyzer) optimalChanges(counts map[model.RiskCategory]int, profiles []model.RiskProfile) []model.Change {
	n := float64(len(profiles))
	mix := a.targetMix()
	optimal := make(map[model.RiskCategory]int, len(mix))
	for c, frac := range mix {
		optimal[c] = int(math.RoundToEven(n * frac))
	}

	changes := []model.Change{}
	for _, c := range model.Categories {
		if deficit := optimal[c] - counts[c]; deficit > 0 {
			changes = append(changes, model.Change{
				Action:   model.ChangeAdd,
				Category: c,
				Count:    deficit,
				Reason:   fmt.Sprintf("Add %d %s school(s) to reach the target mix", deficit, c),
				Examples: Examples(c),
			})
		}
	}
	for _, c := range model.Categories {
		excess := counts[c] - optimal[c]
		if excess <= 0 {
			continue
		}
		tier := make([]model.RiskProfile, 0, counts[c])
		for _, p := range profiles {
			if p.RiskCategory == c {
				tier = append(tier, p)
			}
		}
		sort.SliceStable(tier, func(i, j int) bool {
			if tier[i].OverallScore != tier[j].OverallScore {
				return tier[i].OverallScore < tier[j].OverallScore
			}
			return tier[i].SchoolID < tier[j].SchoolID
		})
		ids := make([]string, 0, excess)
		for _, p := range tier[:excess] {
			ids = append(ids, p.SchoolID)
		}
		changes = append(changes, model.Change{
			Action:   model.ChangeConsiderRemoving,
			Category: c,
			Count:    excess,
			Reason:   fmt.Sprintf("Lowest overall scores among %s schools", c),
			Schools:  ids,
		})
	}
	return changes
}

var examples = map[model.RiskCategory][]string{
	model.RiskReach: {
		"ETH Zurich (Switzerland)",
		"TU Delft (Netherlands)",
		"KTH Royal Institute (Sweden)",
		"University of Edinburgh (United Kingdom)",
	},
	model.RiskTarget: {
		"University of Twente (Netherlands)",
		"Université libre de Bruxelles (Belgium)",
		"University of Oslo (Norway)",
		"Chalmers University (Sweden)",
	},
	model.RiskSafe: {
		"University of Limerick (Ireland)",
		"Tampere University (Finland)",
		"University of Tartu (Estonia)",
		"Masaryk University (Czech Republic)",
	},
}

// Examples returns the suggested schools for a tier.
func Examples(c model.RiskCategory) []string {
	return append([]string(nil), examples[c]...)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
