// Package metrics exports run gauges in the Prometheus text format so a
// node_exporter textfile collector can pick them up between runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

const namespace = "gradapp"

// Exporter holds the gauges for a single run on a private registry.
type Exporter struct {
	reg *prometheus.Registry

	schools         prometheus.Gauge
	loadIssues      prometheus.Gauge
	generated       prometheus.Gauge
	riskScore       prometheus.Gauge
	expected        prometheus.Gauge
	atLeastOne      prometheus.Gauge
	diversification prometheus.Gauge
	byStatus        *prometheus.GaugeVec
	byCategory      *prometheus.GaugeVec
	probability     *prometheus.GaugeVec
	overall         *prometheus.GaugeVec
}

// NewExporter registers the run gauges on a fresh registry.
func NewExporter() *Exporter {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	vec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}

	e := &Exporter{
		reg:             prometheus.NewRegistry(),
		schools:         gauge("run_schools", "Number of schools assessed in the run"),
		loadIssues:      gauge("run_load_issues", "Number of catalog records skipped while loading"),
		generated:       gauge("run_generated_timestamp_seconds", "Unix time the run was generated"),
		riskScore:       gauge("portfolio_risk_score", "Portfolio risk score from 0 (balanced) to 10"),
		expected:        gauge("portfolio_expected_acceptances", "Expected number of acceptances"),
		atLeastOne:      gauge("portfolio_probability_at_least_one", "Probability of at least one acceptance"),
		diversification: gauge("portfolio_diversification_score", "Share of risk tiers represented"),
		byStatus:        vec("run_status_schools", "Schools per overall eligibility status", "status"),
		byCategory:      vec("run_category_schools", "Schools per risk category", "category"),
		probability:     vec("school_admission_probability", "Admission probability per school", "school_id"),
		overall:         vec("school_overall_score", "Overall weighted score per school", "school_id"),
	}
	e.reg.MustRegister(
		e.schools, e.loadIssues, e.generated,
		e.riskScore, e.expected, e.atLeastOne, e.diversification,
		e.byStatus, e.byCategory, e.probability, e.overall,
	)
	return e
}

// Registry exposes the underlying registry for HTTP handlers and tests.
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Observe replaces all gauges with the values of run.
func (e *Exporter) Observe(run *model.RunResult) {
	e.byStatus.Reset()
	e.byCategory.Reset()
	e.probability.Reset()
	e.overall.Reset()

	e.schools.Set(float64(len(run.Assessments)))
	e.loadIssues.Set(float64(len(run.LoadIssues)))
	e.generated.Set(float64(run.GeneratedAt.Unix()))

	p := run.Portfolio
	e.riskScore.Set(p.TotalRiskScore)
	e.expected.Set(p.ExpectedAcceptances)
	e.atLeastOne.Set(p.ProbabilityAtLeastOne)
	e.diversification.Set(p.DiversificationScore)

	// Every label value is emitted, zero included, so series don't vanish.
	counts := run.StatusCounts()
	for _, s := range []model.Status{model.StatusEligible, model.StatusWarning, model.StatusNeedsReview, model.StatusIneligible} {
		e.byStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
	for _, c := range model.Categories {
		e.byCategory.WithLabelValues(string(c)).Set(float64(p.CategoryCounts[c]))
	}

	for _, a := range run.Assessments {
		e.probability.WithLabelValues(a.Risk.SchoolID).Set(a.Risk.AdmissionProbability)
		e.overall.WithLabelValues(a.Risk.SchoolID).Set(a.Risk.OverallScore)
	}
}

// WriteTextfile writes the current gauges to path atomically.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.reg); err != nil {
		return eris.Wrapf(err, "metrics: write textfile %s", path)
	}
	return nil
}

// Export observes run and writes it to path in one step.
func Export(run *model.RunResult, path string) error {
	e := NewExporter()
	e.Observe(run)
	return e.WriteTextfile(path)
}
