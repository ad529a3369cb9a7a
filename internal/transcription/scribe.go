package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelscan/internal/services"
)

const (
	scribeModelID          = "scribe_v1"
	defaultScribeTimeout   = 120 * time.Second
	scribeProviderName     = "scribe"
	scribeWordTypeSpacing  = "spacing"
	scribeMaxErrorBodySize = 2048
)

// ScribeConfig holds the settings for the ElevenLabs speech-to-text API.
type ScribeConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// ScribeProvider transcribes audio through the ElevenLabs scribe endpoint.
type ScribeProvider struct {
	cfg        ScribeConfig
	httpClient *http.Client
}

// ScribeOption customizes the provider.
type ScribeOption func(*ScribeProvider)

// WithScribeHTTPClient overrides the default HTTP client.
func WithScribeHTTPClient(client *http.Client) ScribeOption {
	return func(p *ScribeProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewScribeProvider constructs a scribe transcription provider.
func NewScribeProvider(cfg ScribeConfig, opts ...ScribeOption) *ScribeProvider {
	timeout := defaultScribeTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	provider := &ScribeProvider{
		cfg: ScribeConfig{
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

func (p *ScribeProvider) Name() string { return scribeProviderName }

type scribeResponse struct {
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
	Text                string  `json:"text"`
	Words               []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Type  string  `json:"type"`
	} `json:"words"`
}

// Attempt uploads the audio file and converts the response into a transcript.
func (p *ScribeProvider) Attempt(ctx context.Context, audioPath string) (*Transcript, error) {
	if p.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "scribe", "api key not configured", nil)
	}

	body, contentType, err := buildAudioForm(audioPath, map[string]string{"model_id": scribeModelID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, body)
	if err != nil {
		return nil, fmt.Errorf("scribe request: %w", err)
	}
	req.Header.Set("xi-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "scribe", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "scribe", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "scribe",
			fmt.Sprintf("http %d: %s", resp.StatusCode, trimErrorBody(payload)), nil)
	}

	var decoded scribeResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "scribe", "decode response", err)
	}
	return p.toTranscript(decoded)
}

func (p *ScribeProvider) toTranscript(decoded scribeResponse) (*Transcript, error) {
	words := make([]Word, 0, len(decoded.Words))
	for _, w := range decoded.Words {
		if w.Type == scribeWordTypeSpacing {
			continue
		}
		words = append(words, Word{Text: w.Text, Start: w.Start, End: w.End})
	}

	var sentences []Sentence
	if len(words) > 0 {
		sentences = sentencesFromWords(words)
	} else {
		for i, text := range splitSentences(decoded.Text) {
			sentences = append(sentences, Sentence{Index: i, Text: text})
		}
	}
	if len(sentences) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "scribe", "empty transcript", nil)
	}

	transcript := &Transcript{
		Provider:   scribeProviderName,
		Model:      scribeModelID,
		Language:   decoded.LanguageCode,
		Confidence: decoded.LanguageProbability,
		Sentences:  sentences,
	}
	if last := sentences[len(sentences)-1]; last.End > 0 {
		transcript.Duration = last.End
	}
	return transcript, nil
}

// buildAudioForm assembles a multipart body holding the audio file plus
// extra form fields.
func buildAudioForm(audioPath string, fields map[string]string) (*bytes.Buffer, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, "transcription", "upload", "open audio file", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy audio into form: %w", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func trimErrorBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > scribeMaxErrorBodySize {
		trimmed = trimmed[:scribeMaxErrorBodySize] + "..."
	}
	return trimmed
}
