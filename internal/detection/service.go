package detection

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"reelscan/internal/config"
	"reelscan/internal/fallback"
	"reelscan/internal/services"
)

// Service classifies text through the detection fallback chain.
type Service struct {
	chain         *fallback.Chain[string, Score]
	maxInputChars int
}

// Verdict is a chain result: the probability plus the provider that
// produced it.
type Verdict struct {
	Probability float64
	Provider    string
}

// NewService wires the providers named in the configuration, in order, and
// appends the heuristic terminal provider so classification always yields a
// probability.
func NewService(cfg *config.Config, logger *slog.Logger, opts ...ProviderOption) (*Service, error) {
	options := providerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	inferenceCfg := InferenceConfig{
		APIKey:         cfg.Detection.InferenceAPIKey,
		BaseURL:        cfg.Detection.InferenceBaseURL,
		TimeoutSeconds: cfg.Detection.TimeoutSeconds,
	}

	var providers []fallback.Provider[string, Score]
	for _, name := range cfg.Detection.Providers {
		switch name {
		case gptZeroProviderName:
			providers = append(providers, NewGPTZeroProvider(GPTZeroConfig{
				APIKey:         cfg.Detection.GPTZeroAPIKey,
				BaseURL:        cfg.Detection.GPTZeroBaseURL,
				TimeoutSeconds: cfg.Detection.TimeoutSeconds,
			}, options.gptZero...))
		case "ai-detector":
			providers = append(providers, NewAIDetectorProvider(inferenceCfg, options.inference...))
		case "openai-detector":
			providers = append(providers, NewOpenAIDetectorProvider(inferenceCfg, options.inference...))
		case "content-detector":
			providers = append(providers, NewContentDetectorProvider(inferenceCfg, options.inference...))
		default:
			return nil, services.Wrap(services.ErrConfiguration, "detection", "setup",
				"unknown provider "+name, nil)
		}
	}
	providers = append(providers, NewHeuristicProvider(options.heuristic...))

	chain := fallback.NewChain("detection", logger, providers,
		fallback.WithValidation[string](func(s Score) error {
			if s.Probability < 0 || s.Probability > 1 {
				return services.Wrap(services.ErrExternalTool, "detection", "validate", "probability out of range", nil)
			}
			return nil
		}))

	maxChars := cfg.Detection.MaxInputChars
	if maxChars <= 0 {
		maxChars = 500
	}
	return &Service{chain: chain, maxInputChars: maxChars}, nil
}

// providerOptions lets tests rewire provider construction.
type providerOptions struct {
	gptZero   []GPTZeroOption
	inference []InferenceOption
	heuristic []HeuristicOption
}

// ProviderOption adjusts provider construction inside NewService.
type ProviderOption func(*providerOptions)

// WithGPTZeroOptions forwards options to the GPTZero provider.
func WithGPTZeroOptions(opts ...GPTZeroOption) ProviderOption {
	return func(o *providerOptions) { o.gptZero = append(o.gptZero, opts...) }
}

// WithInferenceOptions forwards options to the hosted classifier providers.
func WithInferenceOptions(opts ...InferenceOption) ProviderOption {
	return func(o *providerOptions) { o.inference = append(o.inference, opts...) }
}

// WithHeuristicOptions forwards options to the heuristic provider.
func WithHeuristicOptions(opts ...HeuristicOption) ProviderOption {
	return func(o *providerOptions) { o.heuristic = append(o.heuristic, opts...) }
}

// Classify scores one piece of text. Input longer than the configured limit
// is truncated before submission.
func (s *Service) Classify(ctx context.Context, text string) (Verdict, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > s.maxInputChars {
		cut := s.maxInputChars
		// Back up so the cut never splits a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		trimmed = trimmed[:cut]
	}

	outcome, err := s.chain.Run(ctx, trimmed)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Probability: outcome.Value.Probability, Provider: outcome.Provider}, nil
}

// Providers reports the configured provider order, terminal included.
func (s *Service) Providers() []string {
	return s.chain.Providers()
}
