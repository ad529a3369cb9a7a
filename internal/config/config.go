package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Capture contains configuration for the headless browser still-frame capture.
type Capture struct {
	BrowserBinary  string `toml:"browser_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ViewportWidth  int    `toml:"viewport_width"`
	ViewportHeight int    `toml:"viewport_height"`
}

// Audio contains configuration for media download and audio normalization.
type Audio struct {
	YtDlpBinary    string `toml:"ytdlp_binary"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription contains the ordered provider chain and provider credentials.
type Transcription struct {
	Providers      []string `toml:"providers"`
	ScribeAPIKey   string   `toml:"scribe_api_key"`
	ScribeBaseURL  string   `toml:"scribe_base_url"`
	WhisperAPIKey  string   `toml:"whisper_api_key"`
	WhisperBaseURL string   `toml:"whisper_base_url"`
	WhisperModel   string   `toml:"whisper_model"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Detection contains the ordered classifier chain and provider credentials.
type Detection struct {
	Providers        []string `toml:"providers"`
	GPTZeroAPIKey    string   `toml:"gptzero_api_key"`
	GPTZeroBaseURL   string   `toml:"gptzero_base_url"`
	InferenceAPIKey  string   `toml:"inference_api_key"`
	InferenceBaseURL string   `toml:"inference_base_url"`
	MaxInputChars    int      `toml:"max_input_chars"`
	TimeoutSeconds   int      `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelscan.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Capture: headless browser still-frame capture
//   - Audio: yt-dlp download and ffmpeg normalization
//   - Transcription: ordered provider chain plus credentials
//   - Detection: ordered classifier chain plus credentials
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Capture       Capture       `toml:"capture"`
	Audio         Audio         `toml:"audio"`
	Transcription Transcription `toml:"transcription"`
	Detection     Detection     `toml:"detection"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelscan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/reelscan/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
