package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reelscan/internal/logging"
	"reelscan/internal/services"
)

// Provider is a single attempt in a fallback chain.
type Provider[I, O any] interface {
	// Name identifies the provider in logs and persisted results.
	Name() string
	// Attempt performs the work. An error moves the chain to the next
	// provider.
	Attempt(ctx context.Context, input I) (O, error)
}

// Outcome pairs a provider's value with the provider name that produced it.
type Outcome[O any] struct {
	Provider string
	Value    O
}

// Chain tries providers in order until one succeeds.
type Chain[I, O any] struct {
	operation string
	providers []Provider[I, O]
	validate  func(O) error
	logger    *slog.Logger
}

// Option configures a Chain.
type Option[I, O any] func(*Chain[I, O])

// WithValidation rejects provider output that fails check, treating it as a
// provider failure so the chain continues.
func WithValidation[I, O any](check func(O) error) Option[I, O] {
	return func(c *Chain[I, O]) {
		c.validate = check
	}
}

// NewChain builds a chain for the named operation.
func NewChain[I, O any](operation string, logger *slog.Logger, providers []Provider[I, O], opts ...Option[I, O]) *Chain[I, O] {
	if logger == nil {
		logger = logging.NewNop()
	}
	chain := &Chain[I, O]{
		operation: operation,
		providers: providers,
		logger:    logging.NewComponentLogger(logger, operation),
	}
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// Run attempts each provider in order and returns the first valid outcome.
// Provider failures are logged and skipped. If every provider fails, the
// last error is returned wrapped with the full attempt history.
func (c *Chain[I, O]) Run(ctx context.Context, input I) (Outcome[O], error) {
	var zero Outcome[O]
	if len(c.providers) == 0 {
		return zero, services.Wrap(services.ErrConfiguration, c.operation, "run", "no providers configured", nil)
	}

	var attemptErrs []error
	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			return zero, services.Wrap(services.ErrTimeout, c.operation, provider.Name(), "context canceled before attempt", err)
		}

		providerCtx := services.WithProvider(ctx, provider.Name())
		value, err := provider.Attempt(providerCtx, input)
		if err == nil && c.validate != nil {
			err = c.validate(value)
		}
		if err != nil {
			attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", provider.Name(), err))
			logging.WithContext(providerCtx, c.logger).Warn("provider failed, trying next",
				logging.Error(err))
			continue
		}

		logging.WithContext(providerCtx, c.logger).Info("provider succeeded")
		return Outcome[O]{Provider: provider.Name(), Value: value}, nil
	}

	return zero, services.Wrap(services.ErrExternalTool, c.operation, "run", "all providers failed", errors.Join(attemptErrs...))
}

// Providers returns the configured provider names in attempt order.
func (c *Chain[I, O]) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}
