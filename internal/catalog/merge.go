package catalog

import (
	"strings"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// DefaultLiveConfidence applies when a live entry omits confidence_score.
const DefaultLiveConfidence = 0.5

// Merge overlays a live override onto a static record. Every override field
// that is present replaces the static value; the language requirement is
// merged threshold by threshold. A nil override yields the static view.
func Merge(rec model.SchoolRecord, live *model.LiveOverride) model.School {
	s := model.School{
		SchoolRecord:   rec,
		FeeText:        rec.TuitionFee,
		FeeSource:      model.SourceStatic,
		DeadlineText:   rec.ApplicationDeadline,
		DeadlineSource: model.SourceStatic,
		LanguageSource: model.SourceStatic,
		StaticLanguage: rec.LanguageRequirement,
	}
	if rec.LanguageRequirement != nil {
		s.Language = *rec.LanguageRequirement
	}
	if s.Status == "" {
		s.Status = model.SchoolStatusActive
	}

	if live == nil {
		return s
	}

	s.HasLive = true
	s.LiveConfidence = DefaultLiveConfidence
	if live.ConfidenceScore != nil {
		s.LiveConfidence = *live.ConfidenceScore
	}

	if live.TuitionFee != nil && strings.TrimSpace(*live.TuitionFee) != "" {
		s.FeeText = *live.TuitionFee
		s.FeeSource = model.SourceLive
	}
	if live.ApplicationDeadline != nil && strings.TrimSpace(*live.ApplicationDeadline) != "" {
		s.DeadlineText = *live.ApplicationDeadline
		s.DeadlineSource = model.SourceLive
	}
	if lr := live.LanguageRequirement; lr != nil {
		applied := false
		if lr.Overall != nil {
			s.Language.Overall = lr.Overall
			applied = true
		}
		if lr.WritingMinimum != nil {
			s.Language.WritingMinimum = lr.WritingMinimum
			applied = true
		}
		if lr.MinimumBand != nil {
			s.Language.MinimumBand = lr.MinimumBand
			applied = true
		}
		if applied {
			s.LanguageSource = model.SourceLive
		}
	}
	return s
}
