// Package catalog loads the applicant profile, the static school catalog and
// the optional scraped overlay, and merges them into the effective view a
// run evaluates.
package catalog

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

var validate = validator.New()

// LoadIssue describes one input record that was skipped at load time.
type LoadIssue struct {
	File     string `json:"file"`
	Index    int    `json:"index"`
	SchoolID string `json:"school_id,omitempty"`
	Reason   string `json:"reason"`
}

func (i LoadIssue) String() string {
	if i.SchoolID != "" {
		return fmt.Sprintf("%s[%d] (%s): %s", i.File, i.Index, i.SchoolID, i.Reason)
	}
	return fmt.Sprintf("%s[%d]: %s", i.File, i.Index, i.Reason)
}

// Paths locates the three input files. LiveData may be empty.
type Paths struct {
	Profile  string
	Schools  string
	LiveData string
}

// Snapshot is everything one run reads, loaded once.
type Snapshot struct {
	Profile  model.Profile
	Records  []model.SchoolRecord
	Live     map[string]model.LiveOverride
	Metadata map[string]any
	Issues   []LoadIssue
}

// Load reads all inputs. A malformed profile or schools file is fatal;
// malformed individual records are skipped and reported in Issues.
func Load(p Paths) (*Snapshot, error) {
	profile, err := LoadProfile(p.Profile)
	if err != nil {
		return nil, err
	}

	records, issues, err := LoadSchools(p.Schools)
	if err != nil {
		return nil, err
	}

	live, meta, liveIssues, err := LoadLiveData(p.LiveData)
	if err != nil {
		return nil, err
	}
	issues = append(issues, liveIssues...)

	for _, is := range issues {
		zap.L().Warn("catalog: skipped record", zap.String("issue", is.String()))
	}

	snap := &Snapshot{
		Profile:  profile,
		Records:  records,
		Live:     live,
		Metadata: meta,
		Issues:   issues,
	}
	zap.L().Info("catalog: loaded",
		zap.Int("schools", len(records)),
		zap.Int("active", len(snap.Active())),
		zap.Int("live_overrides", len(live)),
		zap.Int("issues", len(issues)),
	)
	return snap, nil
}

// Active returns the merged view of every active school, in catalog order.
func (s *Snapshot) Active() []model.School {
	out := make([]model.School, 0, len(s.Records))
	for _, rec := range s.Records {
		var live *model.LiveOverride
		if o, ok := s.Live[rec.ID]; ok {
			live = &o
		}
		school := Merge(rec, live)
		if school.Status != model.SchoolStatusActive {
			continue
		}
		out = append(out, school)
	}
	return out
}

// IssueStrings renders the load issues for run artifacts.
func (s *Snapshot) IssueStrings() []string {
	if len(s.Issues) == 0 {
		return nil
	}
	out := make([]string, len(s.Issues))
	for i, is := range s.Issues {
		out[i] = is.String()
	}
	return out
}

// WithProfile returns a shallow copy of the snapshot using p.
func (s *Snapshot) WithProfile(p model.Profile) *Snapshot {
	c := *s
	c.Profile = p
	return &c
}
