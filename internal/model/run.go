package model

import "time"

// Assessment pairs the eligibility verdict and risk profile of one school.
type Assessment struct {
	Eligibility EligibilityResult `json:"eligibility"`
	Risk        RiskProfile       `json:"risk"`
}

// ProfileSummary is the subset of the profile echoed into run artifacts.
type ProfileSummary struct {
	IELTSOverall  float64       `json:"ielts_overall"`
	IELTSWriting  float64       `json:"ielts_writing"`
	TargetBudget  Money         `json:"target_budget"`
	RiskTolerance RiskTolerance `json:"risk_tolerance"`
}

// SummarizeProfile extracts the fields echoed into run artifacts.
func SummarizeProfile(p Profile) ProfileSummary {
	return ProfileSummary{
		IELTSOverall:  p.IELTSOverall,
		IELTSWriting:  p.IELTSWriting,
		TargetBudget:  p.TargetBudget,
		RiskTolerance: p.RiskTolerance,
	}
}

// RunResult is the artifact of one evaluation run.
type RunResult struct {
	ID          string           `json:"id,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	Profile     ProfileSummary   `json:"profile"`
	Assessments []Assessment     `json:"assessments"`
	Portfolio   PortfolioSummary `json:"portfolio"`
	LoadIssues  []string         `json:"load_issues,omitempty"`
}

// StatusCounts tallies overall statuses across the run.
func (r *RunResult) StatusCounts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, a := range r.Assessments {
		counts[a.Eligibility.OverallStatus]++
	}
	return counts
}

// Find returns the assessment for a school id.
func (r *RunResult) Find(schoolID string) (Assessment, bool) {
	for _, a := range r.Assessments {
		if a.Eligibility.SchoolID == schoolID {
			return a, true
		}
	}
	return Assessment{}, false
}
