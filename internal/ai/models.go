package ai

// SuggestionResult is the structured output of intent suggestion.
// Intent is one of: task, buy, coordinate, discover, rate, try.
type SuggestionResult struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	// NeedsPurchase is set when the description implies buying
	// something, so the draft can pre-fill the purchase flag.
	NeedsPurchase bool `json:"needs_purchase"`
	// ThirdParty is set when the description names a recipient other
	// than the requester.
	ThirdParty bool `json:"third_party"`
}
