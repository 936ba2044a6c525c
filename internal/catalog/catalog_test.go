package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

const profileYAML = `
profile:
  name: Applicant
  bachelor_gpa: 3.4
  ielts_overall: 7.0
  ielts_writing: 5.5
  ielts_reading: 7.5
  ielts_listening: 7.0
  ielts_speaking: 6.5
  work_experience_years: 3
  target_budget:
    amount: 12500
    currency: eur
  risk_tolerance: medium
  research_interests:
    cybersecurity: 1.0
    quantum: 0.9
`

const schoolsYAML = `
schools:
  - school_id: aalto
    full_name: Aalto University
    program: MSc Security and Cloud Computing
    country: Finland
    status: active
    priority_level: high
    tuition_fee: "€17,000/year"
    application_deadline: "2 January 2026"
    language_requirement:
      overall: 6.5
      writing_minimum: 5.5
  - school_id: taltech
    full_name: Tallinn University of Technology
    program: MSc Cyber Security
    country: Estonia
    priority_level: medium
    tuition_fee: "€6,000/year"
    application_deadline: "15/03/2026"
  - school_id: kth
    full_name: KTH
    program: MSc Computer Science
    country: Sweden
    status: inactive
  - school_id: aalto
    full_name: Duplicate
  - full_name: No id at all
  - school_id: bad-priority
    priority_level: urgent
  - school_id: bad-shape
    language_requirement: "six point five"
`

const liveYAML = `
metadata:
  scraped_at: "2025-10-01T08:00:00Z"
schools_live_data:
  - school_id: aalto
    confidence_score: 0.9
    data:
      tuition_fee_scraped: "€18,000 per year"
      ielts_requirements_scraped:
        overall: 7.5
  - school_id: taltech
    data:
      application_deadline_scraped: "1 March 2026"
  - school_id: broken
    confidence_score: 4
  - confidence_score: 0.5
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func fixturePaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Profile:  writeFile(t, dir, "profile.yml", profileYAML),
		Schools:  writeFile(t, dir, "schools.yml", schoolsYAML),
		LiveData: writeFile(t, dir, "schools_live_data.yml", liveYAML),
	}
}

func TestLoadProfile(t *testing.T) {
	p, err := LoadProfile(fixturePaths(t).Profile)
	require.NoError(t, err)

	assert.Equal(t, 7.0, p.IELTSOverall)
	assert.Equal(t, 5.5, p.IELTSWriting)
	assert.Equal(t, "EUR", p.TargetBudget.Currency)
	assert.Equal(t, 12500.0, p.TargetBudget.Amount)
	assert.Equal(t, model.RiskToleranceMedium, p.RiskTolerance)
	assert.InDelta(t, 0.9, p.ResearchInterests["quantum"], 1e-9)
}

func TestLoadProfile_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing section", "applicant: {}\n", "no profile section"},
		{"band out of range", "profile:\n  ielts_overall: 11\n  target_budget: {amount: 1, currency: EUR}\n", "IELTSOverall"},
		{"bad tolerance", "profile:\n  risk_tolerance: extreme\n  target_budget: {amount: 1, currency: EUR}\n", "RiskTolerance"},
		{"no currency", "profile:\n  ielts_overall: 7\n", "Currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(writeFile(t, dir, tt.name+".yml", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadProfile(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestLoadSchools_SkipsBadRecords(t *testing.T) {
	records, issues, err := LoadSchools(fixturePaths(t).Schools)
	require.NoError(t, err)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"aalto", "taltech", "kth"}, ids)

	require.Len(t, issues, 4)
	assert.Equal(t, "duplicate school_id", issues[0].Reason)
	assert.Equal(t, 3, issues[0].Index)
	assert.Equal(t, 4, issues[1].Index)
	assert.Equal(t, "bad-priority", issues[2].SchoolID)
	assert.Equal(t, 6, issues[3].Index)
}

func TestLoadLiveData(t *testing.T) {
	live, meta, issues, err := LoadLiveData(fixturePaths(t).LiveData)
	require.NoError(t, err)

	require.Contains(t, live, "aalto")
	a := live["aalto"]
	require.NotNil(t, a.ConfidenceScore)
	assert.InDelta(t, 0.9, *a.ConfidenceScore, 1e-9)
	require.NotNil(t, a.LanguageRequirement)
	assert.InDelta(t, 7.5, *a.LanguageRequirement.Overall, 1e-9)
	assert.Equal(t, "€18,000 per year", *a.TuitionFee)

	require.Contains(t, live, "taltech")
	assert.Nil(t, live["taltech"].ConfidenceScore)

	assert.Equal(t, "2025-10-01T08:00:00Z", meta["scraped_at"])
	require.Len(t, issues, 2)
	assert.Equal(t, "broken", issues[0].SchoolID)
}

func TestLoadLiveData_MissingFileIsEmpty(t *testing.T) {
	live, _, issues, err := LoadLiveData(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Empty(t, live)
	assert.Empty(t, issues)

	live, _, _, err = LoadLiveData("")
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestLoad_SnapshotActive(t *testing.T) {
	snap, err := Load(fixturePaths(t))
	require.NoError(t, err)

	active := snap.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "aalto", active[0].ID)
	assert.Equal(t, "taltech", active[1].ID)

	// Status defaults to active; kth is inactive.
	assert.Equal(t, model.SchoolStatusActive, active[1].Status)

	assert.Equal(t, model.SourceLive, active[0].FeeSource)
	assert.Equal(t, "€18,000 per year", active[0].FeeText)
	assert.Equal(t, model.SourceLive, active[1].DeadlineSource)
	assert.Equal(t, "1 March 2026", active[1].DeadlineText)
	assert.InDelta(t, DefaultLiveConfidence, active[1].LiveConfidence, 1e-9)

	assert.Len(t, snap.IssueStrings(), 6)
}

func TestSnapshot_WithProfile(t *testing.T) {
	snap, err := Load(fixturePaths(t))
	require.NoError(t, err)

	p := snap.Profile.Clone()
	p.IELTSOverall = 8
	alt := snap.WithProfile(p)

	assert.Equal(t, 8.0, alt.Profile.IELTSOverall)
	assert.Equal(t, 7.0, snap.Profile.IELTSOverall)
	assert.Equal(t, len(snap.Records), len(alt.Records))
}
