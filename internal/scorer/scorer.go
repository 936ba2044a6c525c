package scorer

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// MaxROI caps the roi score.
const MaxROI = 2.0

// Scorer computes a RiskProfile per school. It holds no state between calls.
type Scorer struct {
	cfg       config.ScorerConfig
	costScale float64
}

// Option customizes a Scorer.
type Option func(*Scorer)

// WithCostScale sets how many reference-currency units make one euro. The
// cost tiers are euro amounts and are multiplied by scale before comparing.
func WithCostScale(scale float64) Option {
	return func(s *Scorer) {
		if scale > 0 {
			s.costScale = scale
		}
	}
}

// New creates a Scorer with the given config.
func New(cfg config.ScorerConfig, opts ...Option) *Scorer {
	s := &Scorer{cfg: cfg, costScale: 1}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score derives the risk profile of one school from its eligibility result.
func (s *Scorer) Score(school model.School, res model.EligibilityResult, p model.Profile) model.RiskProfile {
	components := make(map[string]float64, 12)

	prob := s.admissionProbability(school, res, components)
	roi := s.roiScore(school, res.ValidationDetails.Cost, components)
	prestige := s.prestigeScore(school)
	fit := s.fitScore(school, res.ConfidenceScore, p)

	components["admission_probability"] = prob
	components["roi"] = roi
	components["prestige"] = prestige
	components["fit"] = fit

	overall := s.cfg.ProbabilityWeight*prob +
		s.cfg.CostEfficiencyWeight*(roi/MaxROI) +
		s.cfg.PrestigeWeight*prestige +
		s.cfg.FitWeight*fit +
		s.cfg.ROIWeight*(roi/MaxROI)

	rp := model.RiskProfile{
		SchoolID:             school.ID,
		SchoolName:           school.FullName,
		Program:              school.Program,
		Country:              school.Country,
		Priority:             school.EffectivePriority(),
		AdmissionProbability: prob,
		RiskCategory:         model.CategoryFor(prob),
		Cost:                 res.ValidationDetails.Cost,
		ROIScore:             roi,
		PrestigeScore:        prestige,
		FitScore:             fit,
		OverallScore:         round4(overall),
		ConfidenceLevel:      res.ConfidenceScore,
		ComponentScores:      components,
	}

	zap.L().Debug("scorer: scored",
		zap.String("school_id", school.ID),
		zap.Float64("admission_probability", prob),
		zap.String("risk_category", string(rp.RiskCategory)),
		zap.Float64("overall_score", rp.OverallScore),
	)
	return rp
}

// admissionProbability multiplies the status base by the confidence,
// language, budget and competitiveness adjustments, clamped to [0,1].
func (s *Scorer) admissionProbability(school model.School, res model.EligibilityResult, c map[string]float64) float64 {
	base := statusBase[res.OverallStatus]
	confidence := 0.5 + 0.5*res.ConfidenceScore

	lang, ok := languageFactor[res.ValidationDetails.LanguageStatus]
	if !ok {
		lang = languageFactorOther
	}
	budget, ok := budgetFactor[res.ValidationDetails.BudgetStatus]
	if !ok {
		budget = 1.0
	}
	competition := competitiveness[school.EffectivePriority()]

	c["status_base"] = base
	c["confidence_factor"] = confidence
	c["language_factor"] = lang
	c["budget_factor"] = budget
	c["competitiveness_factor"] = competition

	return round4(clamp(base*confidence*lang*budget*competition, 0, 1))
}

func (s *Scorer) roiScore(school model.School, nc *model.NormalizedCost, c map[string]float64) float64 {
	country := s.countryFactor(school.Country)

	program := 1.0
	if kf, ok := firstFactor(programFactors, fold(school.Program)); ok {
		program = kf.Factor
	}

	costF := s.cfg.UnknownCostFactor
	if nc != nil {
		costF = s.costFactor(nc.Amount)
	}

	priority := priorityROI[school.EffectivePriority()]

	c["country_factor"] = country
	c["program_factor"] = program
	c["cost_factor"] = costF
	c["priority_factor"] = priority

	return round4(clamp(country*program*costF*priority, 0, MaxROI))
}

func (s *Scorer) countryFactor(country string) float64 {
	key := strings.ToLower(strings.TrimSpace(country))
	for k, v := range s.cfg.CountryFactors {
		if strings.ToLower(k) == key {
			return v
		}
	}
	if v, ok := countryFactors[key]; ok {
		return v
	}
	return s.cfg.DefaultCountryFactor
}

// costFactor is a decreasing step function of annual cost.
func (s *Scorer) costFactor(amount float64) float64 {
	for _, t := range costTiers {
		if amount <= t.Max*s.costScale {
			return t.Factor
		}
	}
	return costTierAbove
}

func (s *Scorer) prestigeScore(school model.School) float64 {
	score := s.cfg.DefaultPrestige
	if kf, ok := firstFactor(prestigeTable, fold(school.FullName+" "+school.ID)); ok {
		score = kf.Factor
	}
	if hasTerm(fold(school.Program), "cybersecurity") {
		score *= s.cfg.CybersecurityBonus
	}
	return round4(score)
}

// fitScore is the best research-interest alignment found in the program
// name, scaled by data confidence.
func (s *Scorer) fitScore(school model.School, confidence float64, p model.Profile) float64 {
	interests := p.ResearchInterests
	if len(interests) == 0 {
		interests = DefaultResearchInterests()
	}

	program := fold(school.Program)
	best, matched := 0.0, false
	for _, term := range sortedKeys(interests) {
		if hasTerm(program, term) && interests[term] > best {
			best, matched = interests[term], true
		}
	}
	if !matched {
		best = s.cfg.DefaultFit
	}
	return round4(best * (0.7 + 0.3*confidence))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
