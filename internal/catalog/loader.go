package catalog

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

type profileFile struct {
	Profile *model.Profile `yaml:"profile"`
}

type schoolsFile struct {
	Schools []yaml.Node `yaml:"schools"`
}

type liveFile struct {
	Metadata map[string]any   `yaml:"metadata"`
	Entries  []map[string]any `yaml:"schools_live_data"`
}

// liveEntry mirrors the scraper's per-school layout.
type liveEntry struct {
	SchoolID        string   `json:"school_id"`
	ConfidenceScore *float64 `json:"confidence_score"`
	Data            struct {
		TuitionFee *string       `json:"tuition_fee_scraped"`
		Deadline   *string       `json:"application_deadline_scraped"`
		Language   *liveLanguage `json:"language_requirement_scraped"`
		IELTS      *liveLanguage `json:"ielts_requirements_scraped"`
	} `json:"data"`
}

type liveLanguage struct {
	Overall        *float64 `json:"overall"`
	WritingMinimum *float64 `json:"writing_minimum"`
	MinimumBand    *float64 `json:"minimum_band"`
	Writing        *float64 `json:"writing"`
}

func (l *liveLanguage) requirement() *model.LanguageRequirement {
	if l == nil {
		return nil
	}
	r := &model.LanguageRequirement{
		Overall:        l.Overall,
		WritingMinimum: l.WritingMinimum,
		MinimumBand:    l.MinimumBand,
	}
	if r.WritingMinimum == nil {
		r.WritingMinimum = l.Writing
	}
	if r.IsZero() {
		return nil
	}
	return r
}

// LoadProfile reads and validates the profile file.
func LoadProfile(path string) (model.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Profile{}, eris.Wrapf(err, "catalog: read profile %s", path)
	}
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return model.Profile{}, eris.Wrapf(err, "catalog: parse profile %s", path)
	}
	if f.Profile == nil {
		return model.Profile{}, eris.Errorf("catalog: %s has no profile section", path)
	}

	p := *f.Profile
	p.TargetBudget.Currency = strings.ToUpper(strings.TrimSpace(p.TargetBudget.Currency))
	if p.RiskTolerance == "" {
		p.RiskTolerance = model.RiskToleranceMedium
	}
	if err := validate.Struct(p); err != nil {
		return model.Profile{}, eris.Wrapf(err, "catalog: invalid profile %s", path)
	}
	return p, nil
}

// LoadSchools reads the static catalog. Records that fail to decode or
// validate, or repeat an earlier school_id, are skipped with an issue.
func LoadSchools(path string) ([]model.SchoolRecord, []LoadIssue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "catalog: read schools %s", path)
	}
	var f schoolsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, eris.Wrapf(err, "catalog: parse schools %s", path)
	}

	var (
		records []model.SchoolRecord
		issues  []LoadIssue
		seen    = make(map[string]bool, len(f.Schools))
	)
	for i := range f.Schools {
		var rec model.SchoolRecord
		if err := f.Schools[i].Decode(&rec); err != nil {
			issues = append(issues, LoadIssue{File: path, Index: i, Reason: err.Error()})
			continue
		}
		rec.ID = strings.TrimSpace(rec.ID)
		if err := validate.Struct(rec); err != nil {
			issues = append(issues, LoadIssue{File: path, Index: i, SchoolID: rec.ID, Reason: err.Error()})
			continue
		}
		if seen[rec.ID] {
			issues = append(issues, LoadIssue{File: path, Index: i, SchoolID: rec.ID, Reason: "duplicate school_id"})
			continue
		}
		seen[rec.ID] = true
		records = append(records, rec)
	}
	return records, issues, nil
}

// LoadLiveData reads the scraper overlay. An empty path or a missing file
// yields an empty overlay.
func LoadLiveData(path string) (map[string]model.LiveOverride, map[string]any, []LoadIssue, error) {
	out := make(map[string]model.LiveOverride)
	if path == "" {
		return out, nil, nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil, nil, nil
	}
	if err != nil {
		return nil, nil, nil, eris.Wrapf(err, "catalog: read live data %s", path)
	}

	var f liveFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, nil, eris.Wrapf(err, "catalog: parse live data %s", path)
	}

	var issues []LoadIssue
	for i, raw := range f.Entries {
		id, _ := raw["school_id"].(string)
		if err := validateLiveEntry(raw); err != nil {
			issues = append(issues, LoadIssue{File: path, Index: i, SchoolID: id, Reason: err.Error()})
			continue
		}
		o, err := decodeLiveEntry(raw)
		if err != nil {
			issues = append(issues, LoadIssue{File: path, Index: i, SchoolID: id, Reason: err.Error()})
			continue
		}
		if _, dup := out[o.SchoolID]; dup {
			issues = append(issues, LoadIssue{File: path, Index: i, SchoolID: id, Reason: "duplicate school_id"})
			continue
		}
		out[o.SchoolID] = o
	}
	return out, f.Metadata, issues, nil
}

func decodeLiveEntry(raw map[string]any) (model.LiveOverride, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return model.LiveOverride{}, eris.Wrap(err, "catalog: encode live entry")
	}
	var e liveEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return model.LiveOverride{}, eris.Wrap(err, "catalog: decode live entry")
	}

	lang := e.Data.Language.requirement()
	if lang == nil {
		lang = e.Data.IELTS.requirement()
	}
	return model.LiveOverride{
		SchoolID:            strings.TrimSpace(e.SchoolID),
		ConfidenceScore:     e.ConfidenceScore,
		TuitionFee:          e.Data.TuitionFee,
		LanguageRequirement: lang,
		ApplicationDeadline: e.Data.Deadline,
	}, nil
}
