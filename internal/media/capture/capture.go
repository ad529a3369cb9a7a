// Package capture renders a video page in a headless browser and saves a
// screenshot into the job directory.
package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"reelscan/internal/config"
	"reelscan/internal/logging"
	"reelscan/internal/services"
)

const defaultCaptureTimeout = 60 * time.Second

type commandRunner func(ctx context.Context, name string, args ...string) error

// Service drives the headless browser.
type Service struct {
	cfg    config.Capture
	logger *slog.Logger
	run    commandRunner
}

// Option customizes a Service.
type Option func(*Service)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(r commandRunner) Option {
	return func(s *Service) {
		if r != nil {
			s.run = r
		}
	}
}

// NewService constructs the capture service.
func NewService(cfg config.Capture, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "capture"),
		run:    defaultCommandRunner,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ValidateURL checks that raw is an absolute http or https URL.
func ValidateURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return services.Wrap(services.ErrValidation, "capture", "validate", "url is empty", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return services.Wrap(services.ErrValidation, "capture", "validate", "url is malformed", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return services.Wrap(services.ErrValidation, "capture", "validate",
			fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return services.Wrap(services.ErrValidation, "capture", "validate", "url has no host", nil)
	}
	return nil
}

// Capture loads videoURL in the headless browser and writes a screenshot to
// destPath.
func (s *Service) Capture(ctx context.Context, videoURL, destPath string) error {
	if err := ValidateURL(videoURL); err != nil {
		return err
	}

	timeout := defaultCaptureTimeout
	if s.cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(s.cfg.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	width, height := s.cfg.ViewportWidth, s.cfg.ViewportHeight
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}

	args := []string{
		"--headless=new",
		"--disable-gpu",
		"--no-sandbox",
		"--hide-scrollbars",
		"--no-first-run",
		"--disable-extensions",
		fmt.Sprintf("--window-size=%d,%d", width, height),
		"--screenshot=" + destPath,
		videoURL,
	}

	logging.WithContext(ctx, s.logger).Info("capturing page screenshot",
		logging.String("url", videoURL))

	if err := s.run(ctx, s.cfg.BrowserBinary, args...); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "capture", "screenshot", "browser timed out", err)
		}
		return services.Wrap(services.ErrExternalTool, "capture", "screenshot", "browser failed", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "capture", "screenshot", "screenshot not produced", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "capture", "screenshot", "screenshot is empty", nil)
	}
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
