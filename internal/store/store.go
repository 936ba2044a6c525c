// Package store persists run artifacts so later runs can be diffed against
// earlier ones.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/config"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("store: run not found")

// RunFilter pages through stored runs, newest first.
type RunFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// RunSummary is the header row of a stored run.
type RunSummary struct {
	ID                  string    `json:"id"`
	GeneratedAt         time.Time `json:"generated_at"`
	SchoolCount         int       `json:"school_count"`
	TotalRiskScore      float64   `json:"total_risk_score"`
	ExpectedAcceptances float64   `json:"expected_acceptances"`
	CreatedAt           time.Time `json:"created_at"`
}

// SchoolSnapshot is one school's verdict in one stored run.
type SchoolSnapshot struct {
	RunID                string             `json:"run_id"`
	GeneratedAt          time.Time          `json:"generated_at"`
	SchoolID             string             `json:"school_id"`
	OverallStatus        model.Status       `json:"overall_status"`
	RiskCategory         model.RiskCategory `json:"risk_category"`
	AdmissionProbability float64            `json:"admission_probability"`
	OverallScore         float64            `json:"overall_score"`
}

// Store defines run persistence.
type Store interface {
	// SaveRun stores the run, assigning an id when it has none. Saving the
	// same id again replaces it.
	SaveRun(ctx context.Context, run *model.RunResult) error
	GetRun(ctx context.Context, id string) (*model.RunResult, error)
	// LatestRun returns the most recently generated run, or nil when the
	// store is empty.
	LatestRun(ctx context.Context) (*model.RunResult, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error)
	SchoolHistory(ctx context.Context, schoolID string, limit int) ([]SchoolSnapshot, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store named by cfg.Driver and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	case "none", "":
		return nil, eris.New("store: persistence disabled (store.driver is none)")
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func ensureID(run *model.RunResult) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

// schoolRows flattens the assessments into run_schools rows.
func schoolRows(run *model.RunResult) [][]any {
	rows := make([][]any, len(run.Assessments))
	for i, a := range run.Assessments {
		rows[i] = []any{
			run.ID,
			a.Eligibility.SchoolID,
			string(a.Eligibility.OverallStatus),
			string(a.Risk.RiskCategory),
			a.Risk.AdmissionProbability,
			a.Risk.OverallScore,
		}
	}
	return rows
}

var schoolColumns = []string{"run_id", "school_id", "overall_status", "risk_category", "admission_probability", "overall_score"}
