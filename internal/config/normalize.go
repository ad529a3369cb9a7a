package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeAudio()
	c.normalizeTranscription()
	c.normalizeDetection()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.BrowserBinary = strings.TrimSpace(c.Capture.BrowserBinary)
	if c.Capture.BrowserBinary == "" {
		c.Capture.BrowserBinary = defaultBrowserBinary
	}
	if c.Capture.TimeoutSeconds <= 0 {
		c.Capture.TimeoutSeconds = defaultCaptureTimeout
	}
	if c.Capture.ViewportWidth <= 0 {
		c.Capture.ViewportWidth = defaultViewportWidth
	}
	if c.Capture.ViewportHeight <= 0 {
		c.Capture.ViewportHeight = defaultViewportHeight
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.YtDlpBinary = strings.TrimSpace(c.Audio.YtDlpBinary)
	if c.Audio.YtDlpBinary == "" {
		c.Audio.YtDlpBinary = defaultYtDlpBinary
	}
	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Audio.TimeoutSeconds <= 0 {
		c.Audio.TimeoutSeconds = defaultAudioTimeout
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Providers = normalizeProviderList(c.Transcription.Providers)
	c.Transcription.ScribeAPIKey = strings.TrimSpace(c.Transcription.ScribeAPIKey)
	if c.Transcription.ScribeAPIKey == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			c.Transcription.ScribeAPIKey = strings.TrimSpace(value)
		}
	}
	c.Transcription.ScribeBaseURL = strings.TrimSpace(c.Transcription.ScribeBaseURL)
	if c.Transcription.ScribeBaseURL == "" {
		c.Transcription.ScribeBaseURL = defaultScribeBaseURL
	}
	c.Transcription.WhisperAPIKey = strings.TrimSpace(c.Transcription.WhisperAPIKey)
	if c.Transcription.WhisperAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Transcription.WhisperAPIKey = strings.TrimSpace(value)
		}
	}
	c.Transcription.WhisperBaseURL = strings.TrimSpace(c.Transcription.WhisperBaseURL)
	if c.Transcription.WhisperBaseURL == "" {
		c.Transcription.WhisperBaseURL = defaultWhisperBaseURL
	}
	c.Transcription.WhisperModel = strings.TrimSpace(c.Transcription.WhisperModel)
	if c.Transcription.WhisperModel == "" {
		c.Transcription.WhisperModel = defaultWhisperModel
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
}

func (c *Config) normalizeDetection() {
	c.Detection.Providers = normalizeProviderList(c.Detection.Providers)
	c.Detection.GPTZeroAPIKey = strings.TrimSpace(c.Detection.GPTZeroAPIKey)
	if c.Detection.GPTZeroAPIKey == "" {
		if value, ok := os.LookupEnv("GPTZERO_API_KEY"); ok {
			c.Detection.GPTZeroAPIKey = strings.TrimSpace(value)
		}
	}
	c.Detection.GPTZeroBaseURL = strings.TrimSpace(c.Detection.GPTZeroBaseURL)
	if c.Detection.GPTZeroBaseURL == "" {
		c.Detection.GPTZeroBaseURL = defaultGPTZeroBaseURL
	}
	c.Detection.InferenceAPIKey = strings.TrimSpace(c.Detection.InferenceAPIKey)
	if c.Detection.InferenceAPIKey == "" {
		if value, ok := os.LookupEnv("HF_API_TOKEN"); ok {
			c.Detection.InferenceAPIKey = strings.TrimSpace(value)
		}
	}
	c.Detection.InferenceBaseURL = strings.TrimSpace(c.Detection.InferenceBaseURL)
	if c.Detection.InferenceBaseURL == "" {
		c.Detection.InferenceBaseURL = defaultInferenceBaseURL
	}
	if c.Detection.MaxInputChars <= 0 {
		c.Detection.MaxInputChars = defaultDetectionInputChars
	}
	if c.Detection.TimeoutSeconds <= 0 {
		c.Detection.TimeoutSeconds = defaultDetectionTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeProviderList(providers []string) []string {
	out := make([]string, 0, len(providers))
	seen := make(map[string]struct{}, len(providers))
	for _, name := range providers {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
