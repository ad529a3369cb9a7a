package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelscan/internal/services"
)

const defaultInferenceTimeout = 30 * time.Second

// InferenceConfig holds the settings shared by the Hugging Face hosted
// classifier providers.
type InferenceConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// inferenceLabel is one classification label with its confidence.
type inferenceLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// labelMapper converts a model's label set into a generated-text probability.
type labelMapper func(labels []inferenceLabel) (Score, error)

// InferenceProvider scores text through a hosted classification model. Each
// model reports labels in its own vocabulary, so a per-model mapper converts
// the winning label into a probability.
type InferenceProvider struct {
	name       string
	model      string
	mapper     labelMapper
	cfg        InferenceConfig
	httpClient *http.Client
}

// InferenceOption customizes a provider.
type InferenceOption func(*InferenceProvider)

// WithInferenceHTTPClient overrides the default HTTP client.
func WithInferenceHTTPClient(client *http.Client) InferenceOption {
	return func(p *InferenceProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

func newInferenceProvider(name, model string, mapper labelMapper, cfg InferenceConfig, opts ...InferenceOption) *InferenceProvider {
	timeout := defaultInferenceTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	provider := &InferenceProvider{
		name:   name,
		model:  model,
		mapper: mapper,
		cfg: InferenceConfig{
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

// NewAIDetectorProvider uses a binary classifier whose score is already the
// generated-text probability.
func NewAIDetectorProvider(cfg InferenceConfig, opts ...InferenceOption) *InferenceProvider {
	return newInferenceProvider("ai-detector", "prasoonmhwr/ai_detection_model", mapDirectScore, cfg, opts...)
}

// NewOpenAIDetectorProvider uses the RoBERTa base detector, which labels text
// Fake or Real.
func NewOpenAIDetectorProvider(cfg InferenceConfig, opts ...InferenceOption) *InferenceProvider {
	return newInferenceProvider("openai-detector", "openai-community/roberta-base-openai-detector", mapFakeReal, cfg, opts...)
}

// NewContentDetectorProvider uses a three-way classifier distinguishing
// AI-generated, human-written, and paraphrased text.
func NewContentDetectorProvider(cfg InferenceConfig, opts ...InferenceOption) *InferenceProvider {
	return newInferenceProvider("content-detector", "Mohinikathro/AI-Content-Detector", mapThreeWay, cfg, opts...)
}

func (p *InferenceProvider) Name() string { return p.name }

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// Attempt submits the text to the hosted model and maps its labels.
func (p *InferenceProvider) Attempt(ctx context.Context, text string) (Score, error) {
	var zero Score
	if p.cfg.APIKey == "" {
		return zero, services.Wrap(services.ErrConfiguration, "detection", p.name, "api key not configured", nil)
	}

	endpoint, err := url.JoinPath(p.cfg.BaseURL, p.model)
	if err != nil {
		return zero, fmt.Errorf("%s request: build url: %w", p.name, err)
	}

	encoded, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return zero, fmt.Errorf("%s request: encode body: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return zero, fmt.Errorf("%s request: %w", p.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return zero, services.Wrap(services.ErrExternalTool, "detection", p.name, "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, services.Wrap(services.ErrExternalTool, "detection", p.name, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return zero, services.Wrap(services.ErrExternalTool, "detection", p.name,
			fmt.Sprintf("http %d: %s", resp.StatusCode, trimBody(payload)), nil)
	}

	labels, err := decodeInferenceLabels(payload)
	if err != nil {
		return zero, services.Wrap(services.ErrExternalTool, "detection", p.name, "decode response", err)
	}
	score, err := p.mapper(labels)
	if err != nil {
		return zero, services.Wrap(services.ErrExternalTool, "detection", p.name, "map labels", err)
	}
	return score, nil
}

// decodeInferenceLabels accepts both the nested [[{label,score}]] shape and
// the flat [{label,score}] shape the API returns for single inputs.
func decodeInferenceLabels(payload []byte) ([]inferenceLabel, error) {
	var nested [][]inferenceLabel
	if err := json.Unmarshal(payload, &nested); err == nil && len(nested) > 0 {
		return nested[0], nil
	}
	var flat []inferenceLabel
	if err := json.Unmarshal(payload, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	return nil, fmt.Errorf("unrecognized payload: %s", trimBody(payload))
}

func topLabel(labels []inferenceLabel) (inferenceLabel, error) {
	if len(labels) == 0 {
		return inferenceLabel{}, fmt.Errorf("no labels in response")
	}
	top := labels[0]
	for _, label := range labels[1:] {
		if label.Score > top.Score {
			top = label
		}
	}
	return top, nil
}

func mapDirectScore(labels []inferenceLabel) (Score, error) {
	top, err := topLabel(labels)
	if err != nil {
		return Score{}, err
	}
	return Score{Probability: top.Score, Label: top.Label}, nil
}

func mapFakeReal(labels []inferenceLabel) (Score, error) {
	top, err := topLabel(labels)
	if err != nil {
		return Score{}, err
	}
	switch strings.ToLower(top.Label) {
	case "fake":
		return Score{Probability: top.Score, Label: top.Label}, nil
	case "real":
		return Score{Probability: 1 - top.Score, Label: top.Label}, nil
	default:
		return Score{}, fmt.Errorf("unexpected label %q", top.Label)
	}
}

func mapThreeWay(labels []inferenceLabel) (Score, error) {
	top, err := topLabel(labels)
	if err != nil {
		return Score{}, err
	}
	var prob float64
	switch top.Label {
	case "AI-Generated":
		prob = 0.8 + 0.2*top.Score
	case "Human-Written":
		prob = 0.2 - 0.2*top.Score
	case "Paraphrased":
		prob = 0.6 + 0.2*top.Score
	default:
		return Score{}, fmt.Errorf("unexpected label %q", top.Label)
	}
	return Score{Probability: clampScore(prob), Label: top.Label}, nil
}
