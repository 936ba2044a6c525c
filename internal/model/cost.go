package model

// NormalizedCost is an annual tuition figure in the reference currency.
type NormalizedCost struct {
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	SourceAmount   float64 `json:"source_amount"`
	SourceCurrency string  `json:"source_currency"`
	Rate           float64 `json:"rate"`
	PerSemester    bool    `json:"per_semester,omitempty"`
	Free           bool    `json:"free,omitempty"`
	Source         Source  `json:"source,omitempty"`
	Text           string  `json:"text,omitempty"`
}
