package model

// RiskCategory is the reach/target/safe tier of a school.
type RiskCategory string

const (
	RiskReach  RiskCategory = "reach"
	RiskTarget RiskCategory = "target"
	RiskSafe   RiskCategory = "safe"
)

// Categories lists the tiers in report order.
var Categories = []RiskCategory{RiskReach, RiskTarget, RiskSafe}

// Probability thresholds for the tiers.
const (
	ReachCeiling  = 0.3
	TargetCeiling = 0.7
)

// CategoryFor maps an admission probability to its tier.
func CategoryFor(p float64) RiskCategory {
	switch {
	case p <= ReachCeiling:
		return RiskReach
	case p <= TargetCeiling:
		return RiskTarget
	default:
		return RiskSafe
	}
}

// RiskProfile is the scorer output for one school.
type RiskProfile struct {
	SchoolID             string             `json:"school_id"`
	SchoolName           string             `json:"school_name"`
	Program              string             `json:"program"`
	Country              string             `json:"country"`
	Priority             Priority           `json:"priority"`
	AdmissionProbability float64            `json:"admission_probability"`
	RiskCategory         RiskCategory       `json:"risk_category"`
	Cost                 *NormalizedCost    `json:"cost,omitempty"`
	ROIScore             float64            `json:"roi_score"`
	PrestigeScore        float64            `json:"prestige_score"`
	FitScore             float64            `json:"fit_score"`
	OverallScore         float64            `json:"overall_score"`
	ConfidenceLevel      float64            `json:"confidence_level"`
	ComponentScores      map[string]float64 `json:"component_scores"`
}

// AnnualCost returns the normalized amount and whether it is known.
func (r RiskProfile) AnnualCost() (float64, bool) {
	if r.Cost == nil {
		return 0, false
	}
	return r.Cost.Amount, true
}
