package model

// Status is an eligibility verdict, either per dimension or overall.
type Status string

const (
	StatusEligible    Status = "ELIGIBLE"
	StatusWarning     Status = "WARNING"
	StatusNeedsReview Status = "NEEDS_REVIEW"
	StatusIneligible  Status = "INELIGIBLE"
)

// Valid reports whether s is one of the four verdicts.
func (s Status) Valid() bool {
	switch s {
	case StatusEligible, StatusWarning, StatusNeedsReview, StatusIneligible:
		return true
	}
	return false
}

// BudgetBand distinguishes the two WARNING budget bands.
type BudgetBand string

const (
	BudgetWithin       BudgetBand = "within"
	BudgetStretch      BudgetBand = "stretch"
	BudgetOver         BudgetBand = "over"
	BudgetUnaffordable BudgetBand = "unaffordable"
	BudgetUnknown      BudgetBand = "unknown"
)

// ValidationDetails holds the per-dimension sub-statuses.
type ValidationDetails struct {
	LanguageStatus    Status          `json:"language_status"`
	BudgetStatus      Status          `json:"budget_status"`
	BudgetBand        BudgetBand      `json:"budget_band"`
	DeadlineStatus    Status          `json:"deadline_status"`
	DaysUntilDeadline *int            `json:"days_until_deadline,omitempty"`
	Deadline          string          `json:"deadline,omitempty"`
	SchemaValid       bool            `json:"schema_valid"`
	SchemaIssues      []string        `json:"schema_issues,omitempty"`
	Cost              *NormalizedCost `json:"cost,omitempty"`
}

// EligibilityResult is the evaluator's verdict for one school.
type EligibilityResult struct {
	SchoolID          string            `json:"school_id"`
	SchoolName        string            `json:"school_name"`
	Program           string            `json:"program"`
	OverallStatus     Status            `json:"overall_status"`
	ConfidenceScore   float64           `json:"confidence_score"`
	RiskFactors       []string          `json:"risk_factors"`
	Advantages        []string          `json:"advantages"`
	ActionItems       []string          `json:"action_items"`
	ValidationDetails ValidationDetails `json:"validation_details"`
}
