package model

// Priority is the applicant's own ranking of a school.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// SchoolStatus is the lifecycle state of a catalog entry.
type SchoolStatus string

const (
	SchoolStatusActive     SchoolStatus = "active"
	SchoolStatusInactive   SchoolStatus = "inactive"
	SchoolStatusDiscovered SchoolStatus = "discovered"
)

// Source identifies where a merged value came from.
type Source string

const (
	SourceStatic Source = "static"
	SourceLive   Source = "live"
)

// LanguageRequirement holds IELTS thresholds. Nil fields are unspecified.
type LanguageRequirement struct {
	Overall        *float64 `json:"overall,omitempty" yaml:"overall" validate:"omitempty,gte=0,lte=9"`
	WritingMinimum *float64 `json:"writing_minimum,omitempty" yaml:"writing_minimum" validate:"omitempty,gte=0,lte=9"`
	MinimumBand    *float64 `json:"minimum_band,omitempty" yaml:"minimum_band" validate:"omitempty,gte=0,lte=9"`
}

// IsZero reports whether no threshold is set.
func (l *LanguageRequirement) IsZero() bool {
	return l == nil || (l.Overall == nil && l.WritingMinimum == nil && l.MinimumBand == nil)
}

// SchoolRecord is one static catalog entry from schools.yml.
type SchoolRecord struct {
	ID                  string               `json:"school_id" yaml:"school_id" validate:"required"`
	FullName            string               `json:"full_name" yaml:"full_name"`
	Program             string               `json:"program" yaml:"program"`
	Country             string               `json:"country" yaml:"country"`
	Status              SchoolStatus         `json:"status" yaml:"status" validate:"omitempty,oneof=active inactive discovered"`
	Priority            Priority             `json:"priority_level" yaml:"priority_level" validate:"omitempty,oneof=high medium low"`
	TuitionFee          string               `json:"tuition_fee,omitempty" yaml:"tuition_fee"`
	ApplicationDeadline string               `json:"application_deadline,omitempty" yaml:"application_deadline"`
	LanguageRequirement *LanguageRequirement `json:"language_requirement,omitempty" yaml:"language_requirement" validate:"omitempty"`
}

// LiveOverride carries scraped values for one school. Present fields win
// over the static record when merged.
type LiveOverride struct {
	SchoolID            string               `json:"school_id"`
	ConfidenceScore     *float64             `json:"confidence_score,omitempty"`
	TuitionFee          *string              `json:"tuition_fee_scraped,omitempty"`
	LanguageRequirement *LanguageRequirement `json:"language_requirement_scraped,omitempty"`
	ApplicationDeadline *string              `json:"application_deadline_scraped,omitempty"`
}

// School is the effective view of a catalog entry after the live overlay.
type School struct {
	SchoolRecord

	// Effective values with their provenance.
	FeeText        string              `json:"fee_text,omitempty"`
	FeeSource      Source              `json:"fee_source,omitempty"`
	DeadlineText   string              `json:"deadline_text,omitempty"`
	DeadlineSource Source              `json:"deadline_source,omitempty"`
	Language       LanguageRequirement `json:"language"`
	LanguageSource Source              `json:"language_source,omitempty"`

	// StaticLanguage is the unmerged static requirement, kept for conflict
	// detection.
	StaticLanguage *LanguageRequirement `json:"-"`

	// HasLive reports whether a live override was applied.
	HasLive        bool    `json:"has_live"`
	LiveConfidence float64 `json:"live_confidence,omitempty"`
}

// EffectivePriority defaults an unset priority to medium.
func (s School) EffectivePriority() Priority {
	if s.Priority == "" {
		return PriorityMedium
	}
	return s.Priority
}

// Float returns a pointer to v; handy for building requirements.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
