// Package eligibility classifies each school against the applicant profile
// on language, budget and deadline, plus a data quality check.
package eligibility

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/cost"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// Action items attached per overall status.
const (
	ActionIneligible  = "Consider alternative schools or address eligibility issues"
	ActionWarning     = "Review risk factors and consider mitigation strategies"
	ActionNeedsReview = "Verify tuition and deadline information manually"
	ActionEligible    = "Proceed with application preparation"
	ActionDataQuality = "Review and fix data quality issues"
)

// DefaultConfig returns the thresholds used when nothing is configured.
func DefaultConfig() config.EligibilityConfig {
	return config.EligibilityConfig{
		DefaultOverall:      6.5,
		DefaultWriting:      5.5,
		DefaultMinimumBand:  5.5,
		CriticalOverallGap:  0.5,
		WritingMarginGap:    -0.5,
		BudgetStretch:       1.5,
		BudgetCeiling:       2.0,
		UrgentDays:          30,
		UpcomingDays:        60,
		MinLiveConfidence:   0.3,
		ConflictTolerance:   0.5,
		SchemaFailureWeight: 0.3,
	}
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithClock pins the reference time used for deadline day counting.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// Evaluator produces an EligibilityResult per school. It holds no state
// between calls.
type Evaluator struct {
	cfg  config.EligibilityConfig
	fees *cost.Normalizer
	now  func() time.Time
}

// New creates an Evaluator. fees converts tuition into the budget currency.
func New(cfg config.EligibilityConfig, fees *cost.Normalizer, opts ...Option) *Evaluator {
	e := &Evaluator{cfg: cfg, fees: fees, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// evaluation accumulates findings across the checks for one school.
type evaluation struct {
	risks      []string
	advantages []string
}

func (ev *evaluation) risk(format string, args ...any) {
	ev.risks = append(ev.risks, fmt.Sprintf(format, args...))
}

func (ev *evaluation) advantage(format string, args ...any) {
	ev.advantages = append(ev.advantages, fmt.Sprintf(format, args...))
}

// Evaluate runs every check for one school and folds the verdicts.
func (e *Evaluator) Evaluate(s model.School, p model.Profile) model.EligibilityResult {
	ev := &evaluation{}
	details := model.ValidationDetails{}

	details.LanguageStatus = e.checkLanguage(ev, s, p)
	details.BudgetStatus, details.BudgetBand, details.Cost = e.checkBudget(ev, s, p)
	details.DeadlineStatus = e.checkDeadline(ev, s, &details)
	details.SchemaIssues = e.checkSchema(s)
	details.SchemaValid = len(details.SchemaIssues) == 0
	for _, issue := range details.SchemaIssues {
		ev.risk("Data quality: %s", issue)
	}

	overall := fold(details)
	res := model.EligibilityResult{
		SchoolID:          s.ID,
		SchoolName:        s.FullName,
		Program:           s.Program,
		OverallStatus:     overall,
		ConfidenceScore:   e.confidence(s, details.SchemaValid),
		RiskFactors:       nonNil(ev.risks),
		Advantages:        nonNil(ev.advantages),
		ActionItems:       actionItems(overall, details.SchemaValid),
		ValidationDetails: details,
	}

	zap.L().Debug("eligibility: evaluated",
		zap.String("school_id", s.ID),
		zap.String("status", string(overall)),
		zap.Int("risks", len(res.RiskFactors)),
	)
	return res
}

func (e *Evaluator) checkLanguage(ev *evaluation, s model.School, p model.Profile) model.Status {
	req := s.Language
	status := model.StatusEligible

	requiredOverall := valueOr(req.Overall, e.cfg.DefaultOverall)
	gap := round2(requiredOverall - p.IELTSOverall)
	switch {
	case gap > e.cfg.CriticalOverallGap:
		ev.risk("IELTS overall score gap: need %.1f, have %.1f", requiredOverall, p.IELTSOverall)
		status = model.StatusIneligible
	case gap > 0:
		ev.risk("IELTS overall score below requirement: need %.1f, have %.1f", requiredOverall, p.IELTSOverall)
		status = model.StatusWarning
	default:
		ev.advantage("IELTS overall score meets requirement: have %.1f, need %.1f", p.IELTSOverall, requiredOverall)
	}

	requiredWriting := e.cfg.DefaultWriting
	if req.WritingMinimum != nil {
		requiredWriting = *req.WritingMinimum
	} else if req.MinimumBand != nil {
		requiredWriting = *req.MinimumBand
	}
	writingGap := round2(requiredWriting - p.IELTSWriting)
	switch {
	case writingGap > 0:
		ev.risk("IELTS writing score insufficient: need %.1f, have %.1f", requiredWriting, p.IELTSWriting)
		if status != model.StatusIneligible {
			status = model.StatusWarning
		}
	case writingGap > e.cfg.WritingMarginGap:
		ev.risk("IELTS writing score at minimum: need %.1f, have %.1f", requiredWriting, p.IELTSWriting)
	default:
		ev.advantage("IELTS writing score sufficient: have %.1f, need %.1f", p.IELTSWriting, requiredWriting)
	}

	minimumBand := valueOr(req.MinimumBand, e.cfg.DefaultMinimumBand)
	if lowest := p.LowestBand(); lowest < minimumBand {
		ev.risk("IELTS sub-score below minimum band: lowest %.1f, minimum %.1f", lowest, minimumBand)
		if status == model.StatusEligible {
			status = model.StatusWarning
		}
	}
	return status
}

func (e *Evaluator) checkBudget(ev *evaluation, s model.School, p model.Profile) (model.Status, model.BudgetBand, *model.NormalizedCost) {
	if strings.TrimSpace(s.FeeText) == "" {
		ev.risk("Tuition fee not specified: manual review required")
		return model.StatusNeedsReview, model.BudgetUnknown, nil
	}

	nc, err := e.fees.Normalize(s.FeeText)
	if err != nil {
		ev.risk("Tuition fee could not be parsed (%q): manual review required", s.FeeText)
		return model.StatusNeedsReview, model.BudgetUnknown, nil
	}
	nc.Source = s.FeeSource

	budget, err := e.budgetIn(p.TargetBudget, nc.Currency)
	if err != nil {
		ev.risk("Budget currency %s cannot be compared with %s", p.TargetBudget.Currency, nc.Currency)
		return model.StatusNeedsReview, model.BudgetUnknown, &nc
	}

	fee := cost.Format(nc.Amount, nc.Currency)
	limit := cost.Format(budget, nc.Currency)
	switch {
	case nc.Free:
		ev.advantage("Tuition-free program")
		return model.StatusEligible, model.BudgetWithin, &nc
	case nc.Amount <= budget:
		ev.advantage("Tuition %s within budget %s", fee, limit)
		return model.StatusEligible, model.BudgetWithin, &nc
	case nc.Amount <= budget*e.cfg.BudgetStretch:
		ev.risk("Tuition %s exceeds budget %s (stretch)", fee, limit)
		return model.StatusWarning, model.BudgetStretch, &nc
	case nc.Amount <= budget*e.cfg.BudgetCeiling:
		ev.risk("Tuition %s significantly exceeds budget %s", fee, limit)
		return model.StatusWarning, model.BudgetOver, &nc
	default:
		ev.risk("Tuition %s unaffordable against budget %s", fee, limit)
		return model.StatusIneligible, model.BudgetUnaffordable, &nc
	}
}

// budgetIn expresses the profile budget in the fee's reference currency.
func (e *Evaluator) budgetIn(b model.Money, currency string) (float64, error) {
	if strings.EqualFold(b.Currency, currency) {
		return b.Amount, nil
	}
	return e.fees.Rates().Convert(b.Amount, b.Currency, currency)
}

func (e *Evaluator) checkDeadline(ev *evaluation, s model.School, d *model.ValidationDetails) model.Status {
	deadline, ok := ParseDeadline(s.DeadlineText)
	if !ok {
		if strings.TrimSpace(s.DeadlineText) == "" {
			ev.risk("Application deadline not specified: manual review required")
		} else {
			ev.risk("Application deadline could not be parsed (%q): manual review required", s.DeadlineText)
		}
		return model.StatusNeedsReview
	}

	days := daysUntil(deadline, e.now())
	d.DaysUntilDeadline = &days
	d.Deadline = deadline.Format("2006-01-02")

	switch {
	case days < 0:
		ev.risk("Application deadline has passed (%s)", d.Deadline)
		return model.StatusIneligible
	case days < e.cfg.UrgentDays:
		ev.risk("Deadline urgent: %d days remaining", days)
		return model.StatusWarning
	case days < e.cfg.UpcomingDays:
		ev.risk("Deadline approaching: %d days remaining", days)
		return model.StatusWarning
	default:
		ev.advantage("Sufficient time before deadline: %d days", days)
		return model.StatusEligible
	}
}

// checkSchema lists missing required fields and source problems. Issues
// degrade the verdict to WARNING but never to INELIGIBLE.
func (e *Evaluator) checkSchema(s model.School) []string {
	var issues []string
	for _, f := range []struct{ name, value string }{
		{"full_name", s.FullName},
		{"program", s.Program},
		{"country", s.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			issues = append(issues, "missing required field: "+f.name)
		}
	}
	if s.StaticLanguage.IsZero() {
		issues = append(issues, "missing required field: language_requirement")
	}

	if s.HasLive && s.LiveConfidence < e.cfg.MinLiveConfidence {
		issues = append(issues, fmt.Sprintf("low scraper confidence: %.2f", s.LiveConfidence))
	}
	if s.LanguageSource == model.SourceLive && s.StaticLanguage != nil &&
		s.StaticLanguage.Overall != nil && s.Language.Overall != nil {
		static, live := *s.StaticLanguage.Overall, *s.Language.Overall
		if round2(math.Abs(static-live)) > e.cfg.ConflictTolerance {
			issues = append(issues, fmt.Sprintf("IELTS overall requirement conflict: config %.1f, live %.1f", static, live))
		}
	}
	return issues
}

func (e *Evaluator) confidence(s model.School, schemaValid bool) float64 {
	factors := []float64{1.0}
	if !schemaValid {
		factors[0] = e.cfg.SchemaFailureWeight
	}
	if s.HasLive {
		factors = append(factors, s.LiveConfidence)
	}
	var sum float64
	for _, f := range factors {
		sum += f
	}
	return math.Round(sum/float64(len(factors))*1e4) / 1e4
}

// fold applies the fixed precedence INELIGIBLE > WARNING > NEEDS_REVIEW.
func fold(d model.ValidationDetails) model.Status {
	dims := []model.Status{d.LanguageStatus, d.BudgetStatus, d.DeadlineStatus}
	if contains(dims, model.StatusIneligible) {
		return model.StatusIneligible
	}
	if contains(dims, model.StatusWarning) || !d.SchemaValid {
		return model.StatusWarning
	}
	if contains(dims, model.StatusNeedsReview) {
		return model.StatusNeedsReview
	}
	return model.StatusEligible
}

func actionItems(status model.Status, schemaValid bool) []string {
	var items []string
	switch status {
	case model.StatusIneligible:
		items = append(items, ActionIneligible)
	case model.StatusWarning:
		items = append(items, ActionWarning)
	case model.StatusNeedsReview:
		items = append(items, ActionNeedsReview)
	case model.StatusEligible:
		items = append(items, ActionEligible)
	}
	if !schemaValid {
		items = append(items, ActionDataQuality)
	}
	return items
}

func contains(statuses []model.Status, s model.Status) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
