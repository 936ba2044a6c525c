// Package pipeline runs one evaluation pass: every active school is
// evaluated and scored independently, then the portfolio is analyzed.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/catalog"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/cost"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/eligibility"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/portfolio"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/scorer"
)

const defaultConcurrency = 4

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock pins the run time. Deadline day counting uses the same instant.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithConcurrency bounds how many schools are processed at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// Pipeline wires the evaluator, scorer and analyzer together.
type Pipeline struct {
	eligibility config.EligibilityConfig
	fees        *cost.Normalizer
	scorer      *scorer.Scorer
	analyzer    *portfolio.Analyzer
	concurrency int
	now         func() time.Time
}

// New creates a Pipeline from the loaded config.
func New(cfg *config.Config, fees *cost.Normalizer, opts ...Option) *Pipeline {
	scale := eurScale(fees)
	p := &Pipeline{
		eligibility: cfg.Eligibility,
		fees:        fees,
		scorer:      scorer.New(cfg.Scorer, scorer.WithCostScale(scale)),
		analyzer:    portfolio.New(cfg.Portfolio, portfolio.WithCostScale(scale)),
		concurrency: cfg.Batch.MaxConcurrentSchools,
		now:         time.Now,
	}
	if p.concurrency <= 0 {
		p.concurrency = defaultConcurrency
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// eurScale is the number of reference-currency units per euro. Cost tiers
// and thresholds are configured in EUR.
func eurScale(fees *cost.Normalizer) float64 {
	if fees == nil {
		return 1
	}
	rate, err := fees.Rates().Rate("EUR", fees.Reference())
	if err != nil {
		zap.L().Warn("pipeline: no EUR rate, cost tiers unscaled",
			zap.String("reference", fees.Reference()), zap.Error(err))
		return 1
	}
	return rate
}

// Run evaluates the snapshot. Assessments are in catalog order. The only
// error is context cancellation; per-school problems surface as statuses.
func (p *Pipeline) Run(ctx context.Context, snap *catalog.Snapshot) (*model.RunResult, error) {
	now := p.now()
	ev := eligibility.New(p.eligibility, p.fees, eligibility.WithClock(func() time.Time { return now }))

	schools := snap.Active()
	log := zap.L().With(zap.Int("schools", len(schools)))
	log.Info("pipeline: starting run")

	assessments := make([]model.Assessment, len(schools))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, school := range schools {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res := ev.Evaluate(school, snap.Profile)
			assessments[i] = model.Assessment{
				Eligibility: res,
				Risk:        p.scorer.Score(school, res, snap.Profile),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run")
	}

	profiles := make([]model.RiskProfile, len(assessments))
	for i, a := range assessments {
		profiles[i] = a.Risk
	}

	result := &model.RunResult{
		GeneratedAt: now.UTC(),
		Profile:     model.SummarizeProfile(snap.Profile),
		Assessments: assessments,
		Portfolio:   p.analyzer.Analyze(profiles),
		LoadIssues:  snap.IssueStrings(),
	}

	counts := result.StatusCounts()
	log.Info("pipeline: run complete",
		zap.Int("eligible", counts[model.StatusEligible]),
		zap.Int("warning", counts[model.StatusWarning]),
		zap.Int("needs_review", counts[model.StatusNeedsReview]),
		zap.Int("ineligible", counts[model.StatusIneligible]),
		zap.Float64("total_risk_score", result.Portfolio.TotalRiskScore),
	)
	return result, nil
}
