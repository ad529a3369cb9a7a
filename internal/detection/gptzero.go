package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelscan/internal/services"
)

const (
	gptZeroProviderName   = "gptzero"
	defaultGPTZeroTimeout = 30 * time.Second
)

// GPTZeroConfig holds the settings for the GPTZero prediction API.
type GPTZeroConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// GPTZeroProvider scores text through the GPTZero document endpoint.
type GPTZeroProvider struct {
	cfg        GPTZeroConfig
	httpClient *http.Client
}

// GPTZeroOption customizes the provider.
type GPTZeroOption func(*GPTZeroProvider)

// WithGPTZeroHTTPClient overrides the default HTTP client.
func WithGPTZeroHTTPClient(client *http.Client) GPTZeroOption {
	return func(p *GPTZeroProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewGPTZeroProvider constructs a GPTZero detection provider.
func NewGPTZeroProvider(cfg GPTZeroConfig, opts ...GPTZeroOption) *GPTZeroProvider {
	timeout := defaultGPTZeroTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	provider := &GPTZeroProvider{
		cfg: GPTZeroConfig{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

func (p *GPTZeroProvider) Name() string { return gptZeroProviderName }

type gptZeroRequest struct {
	Document string `json:"document"`
}

type gptZeroResponse struct {
	Documents []struct {
		CompletelyGeneratedProb float64 `json:"completely_generated_prob"`
	} `json:"documents"`
}

// Attempt submits the text and returns the generated-text probability.
func (p *GPTZeroProvider) Attempt(ctx context.Context, text string) (Score, error) {
	var zero Score
	if p.cfg.APIKey == "" {
		return zero, services.Wrap(services.ErrConfiguration, "detection", "gptzero", "api key not configured", nil)
	}

	encoded, err := json.Marshal(gptZeroRequest{Document: text})
	if err != nil {
		return zero, fmt.Errorf("gptzero request: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return zero, fmt.Errorf("gptzero request: %w", err)
	}
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return zero, services.Wrap(services.ErrExternalTool, "detection", "gptzero", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, services.Wrap(services.ErrExternalTool, "detection", "gptzero", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return zero, services.Wrap(services.ErrExternalTool, "detection", "gptzero",
			fmt.Sprintf("http %d: %s", resp.StatusCode, trimBody(payload)), nil)
	}

	var decoded gptZeroResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return zero, services.Wrap(services.ErrExternalTool, "detection", "gptzero", "decode response", err)
	}
	if len(decoded.Documents) == 0 {
		return zero, services.Wrap(services.ErrExternalTool, "detection", "gptzero", "empty documents in response", nil)
	}

	prob := decoded.Documents[0].CompletelyGeneratedProb
	if prob < 0 || prob > 1 {
		return zero, services.Wrap(services.ErrExternalTool, "detection", "gptzero",
			fmt.Sprintf("probability out of range: %v", prob), nil)
	}
	return Score{Probability: prob}, nil
}

func trimBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	const limit = 2048
	if len(trimmed) > limit {
		trimmed = trimmed[:limit] + "..."
	}
	return trimmed
}
