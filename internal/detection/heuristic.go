package detection

import (
	"context"
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
)

const heuristicProviderName = "heuristic"

// Phrases that machine-generated prose leans on noticeably more often than
// conversational speech.
var aiPhraseMarkers = []string{
	"as an ai",
	"in conclusion",
	"furthermore",
	"moreover",
	"it is important to note",
	"delve into",
	"in today's fast-paced world",
	"navigating the complexities",
	"a testament to",
	"in the realm of",
	"it's worth noting",
	"comprehensive overview",
}

// HeuristicProvider is the terminal detection provider. It scores text with
// surface statistics only and never fails, so classification always
// produces a probability.
type HeuristicProvider struct {
	random *rand.Rand
	folder cases.Caser
}

// HeuristicOption customizes the provider.
type HeuristicOption func(*HeuristicProvider)

// WithHeuristicRand overrides the perturbation source, letting tests pin
// the output.
func WithHeuristicRand(r *rand.Rand) HeuristicOption {
	return func(p *HeuristicProvider) {
		if r != nil {
			p.random = r
		}
	}
}

// NewHeuristicProvider constructs the terminal provider.
func NewHeuristicProvider(opts ...HeuristicOption) *HeuristicProvider {
	provider := &HeuristicProvider{
		folder: cases.Fold(),
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

func (p *HeuristicProvider) Name() string { return heuristicProviderName }

// Attempt scores the text from surface signals. The result carries a small
// random perturbation so identical sentences do not produce implausibly
// identical probabilities, then is clamped to [0.1, 0.9].
func (p *HeuristicProvider) Attempt(_ context.Context, text string) (Score, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Score{Probability: 0.1, Label: "empty"}, nil
	}

	score := 0.3

	length := len(trimmed)
	switch {
	case length > 200:
		score += 0.15
	case length < 50:
		score -= 0.1
	}

	folded := p.folder.String(trimmed)
	markers := 0
	for _, phrase := range aiPhraseMarkers {
		if strings.Contains(folded, phrase) {
			markers++
		}
	}
	if markers > 0 {
		bump := 0.1 * float64(markers)
		if bump > 0.3 {
			bump = 0.3
		}
		score += bump
	}

	tokens := strings.Fields(folded)
	if len(tokens) > 0 {
		unique := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			unique[strings.Trim(token, ".,!?;:\"'")] = struct{}{}
		}
		if float64(len(unique))/float64(len(tokens)) < 0.6 {
			score += 0.2
		}
	}

	if sentences := splitOnTerminators(trimmed); len(sentences) > 0 {
		totalTokens := 0
		for _, sentence := range sentences {
			totalTokens += len(strings.Fields(sentence))
		}
		if float64(totalTokens)/float64(len(sentences)) > 25 {
			score += 0.1
		}
	}

	score += p.perturbation()
	return Score{Probability: clampScore(score)}, nil
}

func (p *HeuristicProvider) perturbation() float64 {
	if p.random != nil {
		return (p.random.Float64() - 0.5) * 0.1
	}
	return (rand.Float64() - 0.5) * 0.1
}

func splitOnTerminators(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
