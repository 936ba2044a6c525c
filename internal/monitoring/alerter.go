// Package monitoring compares runs and turns findings into alerts delivered
// to a webhook.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDeadlinePassed   AlertType = "deadline_passed"
	AlertDeadlineUrgent   AlertType = "deadline_urgent"
	AlertDeadlineUpcoming AlertType = "deadline_upcoming"
	AlertLanguage         AlertType = "language_requirement"
	AlertBudget           AlertType = "budget_concern"
	AlertDataQuality      AlertType = "data_quality"
	AlertStatusChange     AlertType = "status_change"
	AlertProbabilityShift AlertType = "probability_shift"
	AlertPortfolioRisk    AlertType = "portfolio_risk"
)

// Severity orders alerts; lower ranks first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  Severity       `json:"severity"`
	SchoolID  string         `json:"school_id,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Option customizes an Alerter.
type Option func(*Alerter)

// WithDeadlineWindows sets the day counts that separate urgent and upcoming
// deadlines.
func WithDeadlineWindows(urgent, upcoming int) Option {
	return func(a *Alerter) {
		a.urgentDays = urgent
		a.upcomingDays = upcoming
	}
}

// WithHTTPClient replaces the webhook client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Alerter) { a.client = c }
}

// WithRetryPolicy replaces the webhook retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(a *Alerter) { a.policy = p }
}

// Alerter evaluates a run against configured thresholds and sends alerts
// via webhook.
type Alerter struct {
	cfg          config.MonitoringConfig
	client       *http.Client
	policy       resilience.Policy
	limiter      *rate.Limiter
	urgentDays   int
	upcomingDays int
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig, opts ...Option) *Alerter {
	perSecond := cfg.MaxAlertsPerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	a := &Alerter{
		cfg:          cfg,
		client:       &http.Client{Timeout: 10 * time.Second},
		policy:       resilience.DefaultPolicy(),
		limiter:      rate.NewLimiter(rate.Limit(perSecond), 1),
		urgentDays:   30,
		upcomingDays: 60,
	}
	for _, o := range opts {
		o(a)
	}
	if a.policy.OnRetry == nil {
		a.policy.OnRetry = resilience.LogRetries("alert_webhook")
	}
	return a
}

// Evaluate checks the run, and the diff against the previous run when there
// is one, and returns alerts ordered by severity then school id.
func (a *Alerter) Evaluate(run *model.RunResult, diff *RunDiff) []Alert {
	var alerts []Alert
	now := run.GeneratedAt

	for _, as := range run.Assessments {
		alerts = append(alerts, a.schoolAlerts(as.Eligibility, now)...)
	}

	if diff != nil && diff.PreviousID != "" {
		for _, c := range diff.StatusChanges {
			sev := SeverityMedium
			if c.To == model.StatusIneligible {
				sev = SeverityHigh
			}
			alerts = append(alerts, Alert{
				Type:      AlertStatusChange,
				Severity:  sev,
				SchoolID:  c.SchoolID,
				Message:   fmt.Sprintf("%s status changed from %s to %s", nameOr(c.SchoolName, c.SchoolID), c.From, c.To),
				Details:   map[string]any{"from": c.From, "to": c.To},
				Timestamp: now,
			})
		}
		for _, s := range diff.ProbabilityShifts {
			alerts = append(alerts, Alert{
				Type:      AlertProbabilityShift,
				Severity:  SeverityLow,
				SchoolID:  s.SchoolID,
				Message:   fmt.Sprintf("Admission probability for %s moved %+.1f points", s.SchoolID, s.Delta*100),
				Details:   map[string]any{"from": s.From, "to": s.To, "delta": s.Delta},
				Timestamp: now,
			})
		}
	}

	if run.Portfolio.TotalRiskScore >= a.cfg.PortfolioRiskThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertPortfolioRisk,
			Severity: SeverityHigh,
			Message: fmt.Sprintf("Portfolio risk %.1f/10 at or above threshold %.1f",
				run.Portfolio.TotalRiskScore, a.cfg.PortfolioRiskThreshold),
			Details: map[string]any{
				"total_risk_score":     run.Portfolio.TotalRiskScore,
				"threshold":            a.cfg.PortfolioRiskThreshold,
				"expected_acceptances": run.Portfolio.ExpectedAcceptances,
			},
			Timestamp: now,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if ri, rj := alerts[i].Severity.rank(), alerts[j].Severity.rank(); ri != rj {
			return ri < rj
		}
		return alerts[i].SchoolID < alerts[j].SchoolID
	})
	return alerts
}

func (a *Alerter) schoolAlerts(r model.EligibilityResult, now time.Time) []Alert {
	var alerts []Alert
	add := func(t AlertType, sev Severity, details map[string]any, format string, args ...any) {
		alerts = append(alerts, Alert{
			Type:      t,
			Severity:  sev,
			SchoolID:  r.SchoolID,
			Message:   nameOr(r.SchoolName, r.SchoolID) + ": " + fmt.Sprintf(format, args...),
			Details:   details,
			Timestamp: now,
		})
	}
	d := r.ValidationDetails

	if days := d.DaysUntilDeadline; days != nil {
		details := map[string]any{"days_until": *days, "deadline": d.Deadline}
		switch {
		case *days < 0:
			add(AlertDeadlinePassed, SeverityCritical, details, "application deadline %s has passed", d.Deadline)
		case *days < a.urgentDays:
			add(AlertDeadlineUrgent, SeverityHigh, details, "application due in %d days", *days)
		case *days < a.upcomingDays:
			add(AlertDeadlineUpcoming, SeverityMedium, details, "application due in %d days", *days)
		}
	}

	if d.LanguageStatus == model.StatusIneligible || d.LanguageStatus == model.StatusWarning {
		add(AlertLanguage, severityFor(d.LanguageStatus),
			map[string]any{"language_status": d.LanguageStatus},
			"IELTS requirement %s", d.LanguageStatus)
	}

	if d.BudgetStatus == model.StatusIneligible || d.BudgetStatus == model.StatusWarning {
		details := map[string]any{"budget_status": d.BudgetStatus, "budget_band": d.BudgetBand}
		if d.Cost != nil {
			details["annual_cost"] = d.Cost.Amount
			details["currency"] = d.Cost.Currency
		}
		add(AlertBudget, severityFor(d.BudgetStatus), details, "tuition is %s for the budget", d.BudgetBand)
	}

	if r.ConfidenceScore < a.cfg.DataQualityThreshold {
		add(AlertDataQuality, SeverityLow,
			map[string]any{"confidence_score": r.ConfidenceScore, "schema_issues": d.SchemaIssues},
			"data confidence %.0f%%", r.ConfidenceScore*100)
	}
	return alerts
}

func severityFor(s model.Status) Severity {
	if s == model.StatusIneligible {
		return SeverityHigh
	}
	return SeverityMedium
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

// SendAlerts delivers alerts to the configured webhook URL, paced by the
// rate limiter. Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.limiter.Wait(ctx); err != nil {
			zap.L().Warn("monitoring: alert delivery interrupted", zap.Error(err))
			break
		}
		err := resilience.Retry(ctx, a.policy, func(ctx context.Context) error {
			return a.sendWebhook(ctx, alert)
		})
		if err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.String("school_id", alert.SchoolID),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	return resilience.CheckResponse(resp)
}
