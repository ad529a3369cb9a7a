package transcription

import (
	"context"
	"log/slog"

	"reelscan/internal/config"
	"reelscan/internal/fallback"
	"reelscan/internal/services"
)

// Service runs the transcription fallback chain over extracted audio.
type Service struct {
	chain *fallback.Chain[string, *Transcript]
}

// NewService wires the providers named in the configuration, in order,
// and appends the mock terminal provider so transcription always yields
// a transcript.
func NewService(cfg *config.Config, logger *slog.Logger, opts ...ProviderOption) (*Service, error) {
	options := providerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	var providers []fallback.Provider[string, *Transcript]
	for _, name := range cfg.Transcription.Providers {
		switch name {
		case scribeProviderName:
			providers = append(providers, NewScribeProvider(ScribeConfig{
				APIKey:         cfg.Transcription.ScribeAPIKey,
				BaseURL:        cfg.Transcription.ScribeBaseURL,
				TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
			}, options.scribe...))
		case whisperProviderName:
			providers = append(providers, NewWhisperProvider(WhisperConfig{
				APIKey:         cfg.Transcription.WhisperAPIKey,
				BaseURL:        cfg.Transcription.WhisperBaseURL,
				Model:          cfg.Transcription.WhisperModel,
				TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
			}, options.whisper...))
		default:
			return nil, services.Wrap(services.ErrConfiguration, "transcription", "setup",
				"unknown provider "+name, nil)
		}
	}
	providers = append(providers, NewMockProvider())

	chain := fallback.NewChain("transcription", logger, providers,
		fallback.WithValidation[string](func(t *Transcript) error {
			if t == nil || len(t.Sentences) == 0 {
				return services.Wrap(services.ErrExternalTool, "transcription", "validate", "empty transcript", nil)
			}
			return nil
		}))

	return &Service{chain: chain}, nil
}

// providerOptions lets tests rewire provider HTTP clients.
type providerOptions struct {
	scribe  []ScribeOption
	whisper []WhisperOption
}

// ProviderOption adjusts provider construction inside NewService.
type ProviderOption func(*providerOptions)

// WithScribeOptions forwards options to the scribe provider.
func WithScribeOptions(opts ...ScribeOption) ProviderOption {
	return func(o *providerOptions) { o.scribe = append(o.scribe, opts...) }
}

// WithWhisperOptions forwards options to the whisper provider.
func WithWhisperOptions(opts ...WhisperOption) ProviderOption {
	return func(o *providerOptions) { o.whisper = append(o.whisper, opts...) }
}

// Transcribe runs the chain and returns the first usable transcript.
func (s *Service) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	outcome, err := s.chain.Run(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	return outcome.Value, nil
}

// Providers reports the configured provider order, terminal included.
func (s *Service) Providers() []string {
	return s.chain.Providers()
}
