package scorer

import (
	"sort"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// keywordFactor maps a term to a factor. Tables are ordered; the first
// matching entry wins.
type keywordFactor struct {
	Term   string
	Factor float64
}

// Base admission probability per overall status.
var statusBase = map[model.Status]float64{
	model.StatusEligible:    0.7,
	model.StatusWarning:     0.4,
	model.StatusNeedsReview: 0.3,
	model.StatusIneligible:  0.1,
}

var languageFactor = map[model.Status]float64{
	model.StatusEligible: 1.2,
	model.StatusWarning:  0.9,
}

const languageFactorOther = 0.6

var budgetFactor = map[model.Status]float64{
	model.StatusEligible: 1.1,
	model.StatusWarning:  0.95,
}

// High priority lowers the probability; low priority raises it.
var competitiveness = map[model.Priority]float64{
	model.PriorityHigh:   0.8,
	model.PriorityMedium: 1.0,
	model.PriorityLow:    1.2,
}

var priorityROI = map[model.Priority]float64{
	model.PriorityHigh:   1.2,
	model.PriorityMedium: 1.0,
	model.PriorityLow:    0.8,
}

var countryFactors = map[string]float64{
	"estonia":     0.75,
	"finland":     0.85,
	"sweden":      0.80,
	"germany":     0.90,
	"netherlands": 0.95,
	"denmark":     0.85,
}

var programFactors = []keywordFactor{
	{"cybersecurity", 1.2},
	{"computer science", 1.0},
	{"engineering", 0.9},
}

var prestigeTable = []keywordFactor{
	{"aalto", 1.0},
	{"tallinn", 0.85},
	{"linköping", 0.75},
	{"darmstadt", 0.70},
}

// costTier is an upper bound on annual cost in EUR and its factor.
type costTier struct {
	Max    float64
	Factor float64
}

var costTiers = []costTier{
	{0, 2.0},
	{5000, 1.5},
	{10000, 1.2},
	{15000, 1.0},
	{25000, 0.8},
}

const costTierAbove = 0.6

// DefaultResearchInterests applies when the profile declares none.
func DefaultResearchInterests() map[string]float64 {
	return map[string]float64{
		"cybersecurity":    1.0,
		"security":         1.0,
		"quantum":          0.9,
		"ai":               0.8,
		"machine learning": 0.8,
		"computer science": 0.7,
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
