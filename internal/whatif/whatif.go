// Package whatif re-runs the engine against an adjusted copy of the
// applicant profile and compares the outcome with the baseline.
package whatif

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/catalog"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// Impact grades how much a scenario moves one school's probability.
type Impact string

const (
	ImpactSignificant Impact = "significant"
	ImpactModerate    Impact = "moderate"
	ImpactNegligible  Impact = "negligible"
	ImpactNegative    Impact = "negative"
)

// Impact thresholds on the probability change.
const (
	SignificantChange = 0.15
	ModerateChange    = 0.05
	NegligibleChange  = -0.05
)

// ImpactFor grades a probability change.
func ImpactFor(change float64) Impact {
	switch {
	case change >= SignificantChange:
		return ImpactSignificant
	case change >= ModerateChange:
		return ImpactModerate
	case change >= NegligibleChange:
		return ImpactNegligible
	default:
		return ImpactNegative
	}
}

// Scenario lists the profile fields to override. Nil fields keep the
// baseline value.
type Scenario struct {
	Name           string   `json:"name"`
	IELTSOverall   *float64 `json:"ielts_overall,omitempty"`
	IELTSWriting   *float64 `json:"ielts_writing,omitempty"`
	IELTSReading   *float64 `json:"ielts_reading,omitempty"`
	IELTSListening *float64 `json:"ielts_listening,omitempty"`
	IELTSSpeaking  *float64 `json:"ielts_speaking,omitempty"`
	BudgetAmount   *float64 `json:"budget_amount,omitempty"`
}

// Empty reports whether the scenario changes nothing.
func (s Scenario) Empty() bool {
	return s.IELTSOverall == nil && s.IELTSWriting == nil && s.IELTSReading == nil &&
		s.IELTSListening == nil && s.IELTSSpeaking == nil && s.BudgetAmount == nil
}

// Apply returns a copy of p with the overrides set. p is not modified.
func (s Scenario) Apply(p model.Profile) model.Profile {
	c := p.Clone()
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.IELTSOverall, s.IELTSOverall)
	set(&c.IELTSWriting, s.IELTSWriting)
	set(&c.IELTSReading, s.IELTSReading)
	set(&c.IELTSListening, s.IELTSListening)
	set(&c.IELTSSpeaking, s.IELTSSpeaking)
	set(&c.TargetBudget.Amount, s.BudgetAmount)
	return c
}

// IELTSImprovement is a retake scenario: overall +0.5 up to 8.5 and
// writing +1.0 up to 8.0.
func IELTSImprovement(base model.Profile) Scenario {
	overall := math.Min(8.5, base.IELTSOverall+0.5)
	writing := math.Min(8.0, base.IELTSWriting+1.0)
	return Scenario{Name: "ielts_improvement", IELTSOverall: &overall, IELTSWriting: &writing}
}

// BudgetIncrease raises the budget by pct percent.
func BudgetIncrease(base model.Profile, pct float64) Scenario {
	amount := round2(base.TargetBudget.Amount * (1 + pct/100))
	return Scenario{Name: fmt.Sprintf("budget_plus_%g", pct), BudgetAmount: &amount}
}

// SchoolImpact compares one school across baseline and scenario.
type SchoolImpact struct {
	SchoolID            string             `json:"school_id"`
	SchoolName          string             `json:"school_name"`
	BaselineStatus      model.Status       `json:"baseline_status"`
	ScenarioStatus      model.Status       `json:"scenario_status"`
	BaselineProbability float64            `json:"baseline_probability"`
	ScenarioProbability float64            `json:"scenario_probability"`
	ProbabilityChange   float64            `json:"probability_change"`
	BaselineCategory    model.RiskCategory `json:"baseline_category"`
	ScenarioCategory    model.RiskCategory `json:"scenario_category"`
	Impact              Impact             `json:"impact"`
}

// Result is the outcome of one simulation.
type Result struct {
	Scenario         Scenario             `json:"scenario"`
	Baseline         model.ProfileSummary `json:"baseline_profile"`
	Adjusted         model.ProfileSummary `json:"scenario_profile"`
	Schools          []SchoolImpact       `json:"schools"`
	BaselineExpected float64              `json:"expected_acceptances_baseline"`
	ScenarioExpected float64              `json:"expected_acceptances_scenario"`
	ExpectedChange   float64              `json:"expected_acceptances_change"`
	BaselineRisk     float64              `json:"risk_score_baseline"`
	ScenarioRisk     float64              `json:"risk_score_scenario"`
	Recommendations  []string             `json:"recommendations"`
}

// Runner evaluates a catalog snapshot.
type Runner interface {
	Run(ctx context.Context, snap *catalog.Snapshot) (*model.RunResult, error)
}

// Simulator runs a baseline and a scenario and compares them.
type Simulator struct {
	runner Runner
}

// New creates a Simulator backed by runner.
func New(runner Runner) *Simulator {
	return &Simulator{runner: runner}
}

// Simulate runs the baseline and the adjusted profile concurrently.
func (s *Simulator) Simulate(ctx context.Context, snap *catalog.Snapshot, sc Scenario) (*Result, error) {
	log := zap.L().With(zap.String("component", "whatif"), zap.String("scenario", sc.Name))

	var baseline, adjusted *model.RunResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.runner.Run(gctx, snap)
		if err != nil {
			return eris.Wrap(err, "whatif: baseline run")
		}
		baseline = r
		return nil
	})
	g.Go(func() error {
		r, err := s.runner.Run(gctx, snap.WithProfile(sc.Apply(snap.Profile)))
		if err != nil {
			return eris.Wrap(err, "whatif: scenario run")
		}
		adjusted = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := Compare(sc, baseline, adjusted)
	log.Info("whatif: simulation complete",
		zap.Int("schools", len(res.Schools)),
		zap.Float64("expected_change", res.ExpectedChange),
	)
	return res, nil
}

// Compare lines up two runs of the same catalog school by school, in
// baseline order. Schools missing from either side are skipped.
func Compare(sc Scenario, baseline, adjusted *model.RunResult) *Result {
	res := &Result{
		Scenario:         sc,
		Baseline:         baseline.Profile,
		Adjusted:         adjusted.Profile,
		Schools:          []SchoolImpact{},
		BaselineRisk:     baseline.Portfolio.TotalRiskScore,
		ScenarioRisk:     adjusted.Portfolio.TotalRiskScore,
		BaselineExpected: baseline.Portfolio.ExpectedAcceptances,
		ScenarioExpected: adjusted.Portfolio.ExpectedAcceptances,
	}
	res.ExpectedChange = round4(res.ScenarioExpected - res.BaselineExpected)

	for _, b := range baseline.Assessments {
		a, ok := adjusted.Find(b.Eligibility.SchoolID)
		if !ok {
			continue
		}
		change := round4(a.Risk.AdmissionProbability - b.Risk.AdmissionProbability)
		res.Schools = append(res.Schools, SchoolImpact{
			SchoolID:            b.Eligibility.SchoolID,
			SchoolName:          b.Eligibility.SchoolName,
			BaselineStatus:      b.Eligibility.OverallStatus,
			ScenarioStatus:      a.Eligibility.OverallStatus,
			BaselineProbability: b.Risk.AdmissionProbability,
			ScenarioProbability: a.Risk.AdmissionProbability,
			ProbabilityChange:   change,
			BaselineCategory:    b.Risk.RiskCategory,
			ScenarioCategory:    a.Risk.RiskCategory,
			Impact:              ImpactFor(change),
		})
	}
	res.Recommendations = recommend(res)
	return res
}

func recommend(res *Result) []string {
	var recs []string
	switch d := res.ExpectedChange; {
	case d >= 1.0:
		recs = append(recs, "Scenario substantially raises expected acceptances: strongly worth pursuing")
	case d >= 0.5:
		recs = append(recs, "Scenario moderately improves outcomes: worth considering")
	case d >= 0.1:
		recs = append(recs, "Scenario gives a slight improvement: weigh it against the effort")
	default:
		recs = append(recs, "Scenario has limited effect: probably not worth a large investment")
	}

	var top []string
	var reachUp, targetUp, unlocked int
	for _, s := range res.Schools {
		if s.Impact == ImpactSignificant && len(top) < 3 {
			top = append(top, s.SchoolName)
		}
		switch {
		case s.BaselineCategory == model.RiskReach && s.ScenarioCategory == model.RiskTarget:
			reachUp++
		case s.BaselineCategory == model.RiskTarget && s.ScenarioCategory == model.RiskSafe:
			targetUp++
		}
		if s.BaselineStatus == model.StatusIneligible && s.ScenarioStatus != model.StatusIneligible {
			unlocked++
		}
	}
	if len(top) > 0 {
		recs = append(recs, "Largest gains at: "+strings.Join(top, ", "))
	}
	if reachUp > 0 {
		recs = append(recs, fmt.Sprintf("Moves %d reach school(s) to target", reachUp))
	}
	if targetUp > 0 {
		recs = append(recs, fmt.Sprintf("Moves %d target school(s) to safe", targetUp))
	}
	if unlocked > 0 {
		recs = append(recs, fmt.Sprintf("Makes %d previously ineligible school(s) eligible to apply", unlocked))
	}
	return recs
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
