package config

import (
	"errors"
	"fmt"
)

var knownTranscriptionProviders = map[string]struct{}{
	"scribe":  {},
	"whisper": {},
}

var knownDetectionProviders = map[string]struct{}{
	"gptzero":          {},
	"ai-detector":      {},
	"openai-detector":  {},
	"content-detector": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}


func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.TimeoutSeconds <= 0 {
		return errors.New("capture.timeout_seconds must be positive")
	}
	if c.Capture.ViewportWidth <= 0 || c.Capture.ViewportHeight <= 0 {
		return errors.New("capture viewport dimensions must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.TimeoutSeconds <= 0 {
		return errors.New("audio.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	for _, name := range c.Transcription.Providers {
		if _, ok := knownTranscriptionProviders[name]; !ok {
			return fmt.Errorf("transcription.providers: unknown provider %q", name)
		}
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDetection() error {
	for _, name := range c.Detection.Providers {
		if _, ok := knownDetectionProviders[name]; !ok {
			return fmt.Errorf("detection.providers: unknown provider %q", name)
		}
	}
	if c.Detection.MaxInputChars <= 0 {
		return errors.New("detection.max_input_chars must be positive")
	}
	if c.Detection.TimeoutSeconds <= 0 {
		return errors.New("detection.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
