package model

// RiskTolerance is the applicant's declared appetite for reach schools.
type RiskTolerance string

const (
	RiskToleranceLow    RiskTolerance = "low"
	RiskToleranceMedium RiskTolerance = "medium"
	RiskToleranceHigh   RiskTolerance = "high"
)

// Money is an amount in an ISO 4217 currency.
type Money struct {
	Amount   float64 `json:"amount" yaml:"amount" validate:"gte=0"`
	Currency string  `json:"currency" yaml:"currency" validate:"required,len=3,uppercase"`
}

// Profile is the applicant snapshot loaded once per process. Nothing in a run
// mutates it; scenario simulation works on copies.
type Profile struct {
	Name                string             `json:"name,omitempty" yaml:"name"`
	BachelorGPA         float64            `json:"bachelor_gpa" yaml:"bachelor_gpa" validate:"gte=0"`
	MasterGPA           float64            `json:"master_gpa,omitempty" yaml:"master_gpa" validate:"gte=0"`
	IELTSOverall        float64            `json:"ielts_overall" yaml:"ielts_overall" validate:"gte=0,lte=9"`
	IELTSWriting        float64            `json:"ielts_writing" yaml:"ielts_writing" validate:"gte=0,lte=9"`
	IELTSReading        float64            `json:"ielts_reading" yaml:"ielts_reading" validate:"gte=0,lte=9"`
	IELTSListening      float64            `json:"ielts_listening" yaml:"ielts_listening" validate:"gte=0,lte=9"`
	IELTSSpeaking       float64            `json:"ielts_speaking" yaml:"ielts_speaking" validate:"gte=0,lte=9"`
	WorkExperienceYears float64            `json:"work_experience_years" yaml:"work_experience_years" validate:"gte=0"`
	TargetBudget        Money              `json:"target_budget" yaml:"target_budget"`
	RiskTolerance       RiskTolerance      `json:"risk_tolerance" yaml:"risk_tolerance" validate:"required,oneof=low medium high"`
	ResearchInterests   map[string]float64 `json:"research_interests,omitempty" yaml:"research_interests" validate:"omitempty,dive,keys,required,endkeys,gte=0,lte=1"`
}

// LowestBand returns the weakest of the four IELTS sub-scores.
func (p Profile) LowestBand() float64 {
	lowest := p.IELTSReading
	for _, s := range []float64{p.IELTSListening, p.IELTSSpeaking, p.IELTSWriting} {
		if s < lowest {
			lowest = s
		}
	}
	return lowest
}

// Clone returns a deep copy so callers can adjust a profile without
// touching the loaded snapshot.
func (p Profile) Clone() Profile {
	c := p
	if p.ResearchInterests != nil {
		c.ResearchInterests = make(map[string]float64, len(p.ResearchInterests))
		for k, v := range p.ResearchInterests {
			c.ResearchInterests[k] = v
		}
	}
	return c
}
