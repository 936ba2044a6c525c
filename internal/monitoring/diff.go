package monitoring

import (
	"context"
	"math"
	"sort"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// StatusChange is a school whose overall status moved between runs.
type StatusChange struct {
	SchoolID   string       `json:"school_id"`
	SchoolName string       `json:"school_name"`
	From       model.Status `json:"from"`
	To         model.Status `json:"to"`
}

// CategoryChange is a school that moved between reach/target/safe.
type CategoryChange struct {
	SchoolID string             `json:"school_id"`
	From     model.RiskCategory `json:"from"`
	To       model.RiskCategory `json:"to"`
}

// ProbabilityShift is a school whose admission probability moved by at
// least the configured threshold.
type ProbabilityShift struct {
	SchoolID string  `json:"school_id"`
	From     float64 `json:"from"`
	To       float64 `json:"to"`
	Delta    float64 `json:"delta"`
}

// RunDiff compares two runs. Slices are ordered by school id.
type RunDiff struct {
	PreviousID          string             `json:"previous_id,omitempty"`
	StatusChanges       []StatusChange     `json:"status_changes"`
	CategoryChanges     []CategoryChange   `json:"category_changes"`
	ProbabilityShifts   []ProbabilityShift `json:"probability_shifts"`
	Added               []string           `json:"added"`
	Removed             []string           `json:"removed"`
	RiskScoreDelta      float64            `json:"risk_score_delta"`
	ExpectedDelta       float64            `json:"expected_acceptances_delta"`
	DiversificationDiff float64            `json:"diversification_delta"`
}

// Empty reports whether nothing changed at the school level.
func (d *RunDiff) Empty() bool {
	return len(d.StatusChanges) == 0 && len(d.CategoryChanges) == 0 &&
		len(d.ProbabilityShifts) == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}

// Diff compares curr with prev. A nil prev reports every school as added.
func Diff(prev, curr *model.RunResult, shiftThreshold float64) *RunDiff {
	d := &RunDiff{
		StatusChanges:     []StatusChange{},
		CategoryChanges:   []CategoryChange{},
		ProbabilityShifts: []ProbabilityShift{},
		Added:             []string{},
		Removed:           []string{},
	}

	before := map[string]model.Assessment{}
	if prev != nil {
		d.PreviousID = prev.ID
		for _, a := range prev.Assessments {
			before[a.Eligibility.SchoolID] = a
		}
		d.RiskScoreDelta = round4(curr.Portfolio.TotalRiskScore - prev.Portfolio.TotalRiskScore)
		d.ExpectedDelta = round4(curr.Portfolio.ExpectedAcceptances - prev.Portfolio.ExpectedAcceptances)
		d.DiversificationDiff = round4(curr.Portfolio.DiversificationScore - prev.Portfolio.DiversificationScore)
	}

	seen := make(map[string]bool, len(curr.Assessments))
	for _, a := range curr.Assessments {
		id := a.Eligibility.SchoolID
		seen[id] = true

		old, ok := before[id]
		if !ok {
			d.Added = append(d.Added, id)
			continue
		}
		if old.Eligibility.OverallStatus != a.Eligibility.OverallStatus {
			d.StatusChanges = append(d.StatusChanges, StatusChange{
				SchoolID:   id,
				SchoolName: a.Eligibility.SchoolName,
				From:       old.Eligibility.OverallStatus,
				To:         a.Eligibility.OverallStatus,
			})
		}
		if old.Risk.RiskCategory != a.Risk.RiskCategory {
			d.CategoryChanges = append(d.CategoryChanges, CategoryChange{
				SchoolID: id,
				From:     old.Risk.RiskCategory,
				To:       a.Risk.RiskCategory,
			})
		}
		delta := round4(a.Risk.AdmissionProbability - old.Risk.AdmissionProbability)
		if delta != 0 && math.Abs(delta) >= shiftThreshold {
			d.ProbabilityShifts = append(d.ProbabilityShifts, ProbabilityShift{
				SchoolID: id,
				From:     old.Risk.AdmissionProbability,
				To:       a.Risk.AdmissionProbability,
				Delta:    delta,
			})
		}
	}
	for id := range before {
		if !seen[id] {
			d.Removed = append(d.Removed, id)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.StatusChanges, func(i, j int) bool { return d.StatusChanges[i].SchoolID < d.StatusChanges[j].SchoolID })
	sort.Slice(d.CategoryChanges, func(i, j int) bool { return d.CategoryChanges[i].SchoolID < d.CategoryChanges[j].SchoolID })
	sort.Slice(d.ProbabilityShifts, func(i, j int) bool { return d.ProbabilityShifts[i].SchoolID < d.ProbabilityShifts[j].SchoolID })
	return d
}

// RunReader is the part of the store the monitor needs.
type RunReader interface {
	LatestRun(ctx context.Context) (*model.RunResult, error)
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
