// Package scorer turns an eligibility verdict into an admission probability,
// a reach/target/safe tier and return-on-investment sub-scores.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
)

// DefaultScorerConfig returns a config.ScorerConfig with the standard
// weights. Weights sum to 1.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		// Weights (sum = 1).
		ProbabilityWeight:    0.3,
		CostEfficiencyWeight: 0.2,
		PrestigeWeight:       0.2,
		FitWeight:            0.2,
		ROIWeight:            0.1,

		// Fallbacks.
		UnknownCostFactor:    1.0,
		DefaultCountryFactor: 0.7,
		DefaultPrestige:      0.6,
		DefaultFit:           0.6,
		CybersecurityBonus:   1.1,
	}
}

// WeightSum returns the sum of the overall-score weights.
func WeightSum(c config.ScorerConfig) float64 {
	return c.ProbabilityWeight + c.CostEfficiencyWeight + c.PrestigeWeight + c.FitWeight + c.ROIWeight
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	weights := map[string]float64{
		"probability_weight":     c.ProbabilityWeight,
		"cost_efficiency_weight": c.CostEfficiencyWeight,
		"prestige_weight":        c.PrestigeWeight,
		"fit_weight":             c.FitWeight,
		"roi_weight":             c.ROIWeight,
	}
	for _, name := range sortedKeys(weights) {
		if weights[name] < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if sum := WeightSum(c); math.Abs(sum-1) > 0.001 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1, got %.3f", sum))
	}

	if c.UnknownCostFactor < 0 || c.UnknownCostFactor > 2 {
		errs = append(errs, "unknown_cost_factor must be between 0 and 2")
	}
	fallbacks := map[string]float64{
		"default_country_factor": c.DefaultCountryFactor,
		"default_prestige":       c.DefaultPrestige,
		"default_fit":            c.DefaultFit,
	}
	for _, name := range sortedKeys(fallbacks) {
		if v := fallbacks[name]; v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 1", name))
		}
	}
	if c.CybersecurityBonus < 1 {
		errs = append(errs, "cybersecurity_bonus must be >= 1")
	}
	for _, country := range sortedKeys(c.CountryFactors) {
		if c.CountryFactors[country] < 0 {
			errs = append(errs, fmt.Sprintf("country factor for %s must be >= 0", country))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
