package detection

// Score is the verdict a detection provider returns for one piece of text.
// Probability is the likelihood the text is machine generated, in [0, 1].
type Score struct {
	Probability float64 `json:"probability"`
	Label       string  `json:"label,omitempty"`
}

func clampScore(p float64) float64 {
	if p < 0.1 {
		return 0.1
	}
	if p > 0.9 {
		return 0.9
	}
	return p
}
