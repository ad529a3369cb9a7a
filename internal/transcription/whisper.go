package transcription

import (
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
	defaultWhisperTimeout = 120 * time.Second
	whisperProviderName   = "whisper"
)

// WhisperConfig holds the settings for the OpenAI transcription API.
type WhisperConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// WhisperProvider transcribes audio through the OpenAI audio endpoint.
type WhisperProvider struct {
	cfg        WhisperConfig
	httpClient *http.Client
}

// WhisperOption customizes the provider.
type WhisperOption func(*WhisperProvider)

// WithWhisperHTTPClient overrides the default HTTP client.
func WithWhisperHTTPClient(client *http.Client) WhisperOption {
	return func(p *WhisperProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewWhisperProvider constructs a whisper transcription provider.
func NewWhisperProvider(cfg WhisperConfig, opts ...WhisperOption) *WhisperProvider {
	timeout := defaultWhisperTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	provider := &WhisperProvider{
		cfg: WhisperConfig{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(provider)
	}
	if provider.cfg.Model == "" {
		provider.cfg.Model = "whisper-1"
	}
	return provider
}

func (p *WhisperProvider) Name() string { return whisperProviderName }

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Attempt uploads the audio file and converts the verbose response into a
// transcript. Segments become sentences; segments holding several sentences
// are split with timing interpolated by character position.
func (p *WhisperProvider) Attempt(ctx context.Context, audioPath string) (*Transcript, error) {
	if p.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "whisper", "api key not configured", nil)
	}

	body, contentType, err := buildAudioForm(audioPath, map[string]string{
		"model":           p.cfg.Model,
		"response_format": "verbose_json",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, body)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper",
			fmt.Sprintf("http %d: %s", resp.StatusCode, trimErrorBody(payload)), nil)
	}

	var decoded whisperResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper", "decode response", err)
	}
	return p.toTranscript(decoded)
}

func (p *WhisperProvider) toTranscript(decoded whisperResponse) (*Transcript, error) {
	var sentences []Sentence
	for _, segment := range decoded.Segments {
		parts := splitSentences(segment.Text)
		if len(parts) == 0 {
			continue
		}
		span := segment.End - segment.Start
		total := 0
		for _, part := range parts {
			total += len(part)
		}
		offset := segment.Start
		for _, part := range parts {
			end := segment.End
			if total > 0 && len(parts) > 1 {
				end = offset + span*float64(len(part))/float64(total)
			}
			sentences = append(sentences, Sentence{
				Index: len(sentences),
				Text:  part,
				Start: offset,
				End:   end,
			})
			offset = end
		}
	}
	if len(sentences) == 0 {
		for i, text := range splitSentences(decoded.Text) {
			sentences = append(sentences, Sentence{Index: i, Text: text})
		}
	}
	if len(sentences) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper", "empty transcript", nil)
	}

	return &Transcript{
		Provider:  whisperProviderName,
		Model:     p.cfg.Model,
		Language:  decoded.Language,
		Duration:  decoded.Duration,
		Sentences: sentences,
	}, nil
}
