package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/resilience"
)

func testMonitoringConfig(url string) config.MonitoringConfig {
	return config.MonitoringConfig{
		WebhookURL:                url,
		ProbabilityShiftThreshold: 0.1,
		PortfolioRiskThreshold:    8,
		DataQualityThreshold:      0.5,
		MaxAlertsPerSecond:        1000,
	}
}

func fastPolicy() resilience.Policy {
	return resilience.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func withDeadline(a model.Assessment, days int) model.Assessment {
	a.Eligibility.ValidationDetails.DaysUntilDeadline = &days
	a.Eligibility.ValidationDetails.Deadline = runAt.AddDate(0, 0, days).Format("2006-01-02")
	return a
}

func types(alerts []Alert) []AlertType {
	out := make([]AlertType, len(alerts))
	for i, a := range alerts {
		out[i] = a.Type
	}
	return out
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(testMonitoringConfig(""))
	r := run("r1", 5, withDeadline(assessment("aalto", model.StatusEligible, 0.8), 90))
	assert.Empty(t, a.Evaluate(r, nil))
}

func TestAlerter_Evaluate_Deadlines(t *testing.T) {
	tests := []struct {
		days     int
		want     AlertType
		severity Severity
	}{
		{-1, AlertDeadlinePassed, SeverityCritical},
		{0, AlertDeadlineUrgent, SeverityHigh},
		{29, AlertDeadlineUrgent, SeverityHigh},
		{30, AlertDeadlineUpcoming, SeverityMedium},
		{59, AlertDeadlineUpcoming, SeverityMedium},
	}
	a := NewAlerter(testMonitoringConfig(""))
	for _, tt := range tests {
		r := run("r1", 5, withDeadline(assessment("aalto", model.StatusWarning, 0.5), tt.days))
		alerts := a.Evaluate(r, nil)
		require.Len(t, alerts, 1, "days=%d", tt.days)
		assert.Equal(t, tt.want, alerts[0].Type)
		assert.Equal(t, tt.severity, alerts[0].Severity)
		assert.Equal(t, "aalto", alerts[0].SchoolID)
		assert.Equal(t, runAt, alerts[0].Timestamp)
	}
}

func TestAlerter_Evaluate_CustomWindows(t *testing.T) {
	a := NewAlerter(testMonitoringConfig(""), WithDeadlineWindows(7, 14))
	r := run("r1", 5, withDeadline(assessment("aalto", model.StatusWarning, 0.5), 10))
	assert.Equal(t, []AlertType{AlertDeadlineUpcoming}, types(a.Evaluate(r, nil)))
}

func TestAlerter_Evaluate_SchoolFindings(t *testing.T) {
	lang := assessment("lang", model.StatusIneligible, 0.1)
	lang.Eligibility.ValidationDetails.LanguageStatus = model.StatusIneligible

	budget := assessment("budget", model.StatusWarning, 0.4)
	budget.Eligibility.ValidationDetails.BudgetStatus = model.StatusWarning
	budget.Eligibility.ValidationDetails.BudgetBand = model.BudgetStretch
	budget.Eligibility.ValidationDetails.Cost = &model.NormalizedCost{Amount: 15000, Currency: "EUR"}

	quality := assessment("quality", model.StatusWarning, 0.4)
	quality.Eligibility.ConfidenceScore = 0.3

	alerts := NewAlerter(testMonitoringConfig("")).Evaluate(run("r1", 5, lang, budget, quality), nil)

	// High before medium before low.
	assert.Equal(t, []AlertType{AlertLanguage, AlertBudget, AlertDataQuality}, types(alerts))
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
	assert.Equal(t, SeverityMedium, alerts[1].Severity)
	assert.Equal(t, "University budget: tuition is stretch for the budget", alerts[1].Message)
	assert.InDelta(t, 15000, alerts[1].Details["annual_cost"], 1e-9)
	assert.Equal(t, "University quality: data confidence 30%", alerts[2].Message)
}

func TestAlerter_Evaluate_DiffAndPortfolio(t *testing.T) {
	prev := run("r1", 4, assessment("aalto", model.StatusEligible, 0.8), assessment("liu", model.StatusEligible, 0.75))
	curr := run("r2", 8.2, assessment("aalto", model.StatusIneligible, 0.1), assessment("liu", model.StatusWarning, 0.72))
	curr.Assessments[0].Eligibility.ValidationDetails.BudgetStatus = model.StatusIneligible
	curr.Assessments[0].Eligibility.ValidationDetails.BudgetBand = model.BudgetUnaffordable

	alerts := NewAlerter(testMonitoringConfig("")).Evaluate(curr, Diff(prev, curr, 0.1))

	assert.ElementsMatch(t, []AlertType{
		AlertBudget, AlertStatusChange, AlertStatusChange, AlertProbabilityShift, AlertPortfolioRisk,
	}, types(alerts))

	for _, al := range alerts {
		if al.Type == AlertStatusChange && al.SchoolID == "aalto" {
			assert.Equal(t, SeverityHigh, al.Severity)
			assert.Equal(t, "University aalto status changed from ELIGIBLE to INELIGIBLE", al.Message)
		}
		if al.Type == AlertProbabilityShift {
			assert.Equal(t, "Admission probability for aalto moved -70.0 points", al.Message)
		}
	}
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
	assert.Equal(t, SeverityLow, alerts[len(alerts)-1].Severity)
}

func TestAlerter_Evaluate_DiffWithoutPreviousIsIgnored(t *testing.T) {
	curr := run("r2", 5, assessment("aalto", model.StatusEligible, 0.8))
	alerts := NewAlerter(testMonitoringConfig("")).Evaluate(curr, Diff(nil, curr, 0.1))
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(testMonitoringConfig(ts.URL), WithRetryPolicy(fastPolicy()))
	alerts := []Alert{
		{Type: AlertDeadlineUrgent, Severity: SeverityHigh, Message: "test alert 1"},
		{Type: AlertPortfolioRisk, Severity: SeverityHigh, Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	a := NewAlerter(testMonitoringConfig(ts.URL), WithRetryPolicy(fastPolicy()))
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDataQuality, Message: "retry me"}})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAlerter_SendAlerts_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	a := NewAlerter(testMonitoringConfig(ts.URL), WithRetryPolicy(fastPolicy()))
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDataQuality, Message: "bad"}})
	assert.Equal(t, 0, sent)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(testMonitoringConfig(""))
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDataQuality, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAlerter(testMonitoringConfig(ts.URL), WithRetryPolicy(fastPolicy()))
	sent := a.SendAlerts(ctx, []Alert{{Type: AlertDataQuality}, {Type: AlertBudget}})
	assert.Equal(t, 0, sent)
}
