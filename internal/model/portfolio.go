package model

// ChangeAction is the kind of a suggested portfolio change.
type ChangeAction string

const (
	ChangeAdd              ChangeAction = "add"
	ChangeConsiderRemoving ChangeAction = "consider_removing"
)

// Change is one suggested addition or removal.
type Change struct {
	Action   ChangeAction `json:"action"`
	Category RiskCategory `json:"category"`
	Count    int          `json:"count"`
	Reason   string       `json:"reason"`
	Examples []string     `json:"examples,omitempty"`
	Schools  []string     `json:"schools,omitempty"`
}

// Scenarios brackets the expected number of acceptances.
type Scenarios struct {
	Pessimistic float64 `json:"pessimistic"`
	Realistic   float64 `json:"realistic"`
	Optimistic  float64 `json:"optimistic"`
}

// PortfolioSummary aggregates all risk profiles of one run.
type PortfolioSummary struct {
	SchoolCount           int                      `json:"school_count"`
	TotalRiskScore        float64                  `json:"total_risk_score"`
	RiskDistribution      map[RiskCategory]float64 `json:"risk_distribution"`
	CategoryCounts        map[RiskCategory]int     `json:"category_counts"`
	ExpectedAcceptances   float64                  `json:"expected_acceptances"`
	AcceptanceVariance    float64                  `json:"acceptance_variance"`
	ProbabilityAtLeastOne float64                  `json:"probability_at_least_one"`
	DiversificationScore  float64                  `json:"diversification_score"`
	CostEfficiency        float64                  `json:"cost_efficiency"`
	AverageCost           float64                  `json:"average_cost"`
	AverageROI            float64                  `json:"average_roi"`
	Scenarios             Scenarios                `json:"scenarios"`
	Recommendations       []string                 `json:"recommendations"`
	OptimalChanges        []Change                 `json:"optimal_changes"`
}
