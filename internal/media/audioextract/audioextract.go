// Package audioextract downloads the source media for a video URL and
// normalizes its audio track to a mono 16kHz WAV file.
package audioextract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"reelscan/internal/config"
	"reelscan/internal/logging"
	"reelscan/internal/services"
)

const (
	defaultExtractTimeout = 300 * time.Second
	downloadBaseName      = "source"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Service runs the download and normalization steps.
type Service struct {
	cfg    config.Audio
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

// NewService constructs the audio extraction service.
func NewService(cfg config.Audio, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "audioextract"),
		run:    defaultCommandRunner,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Extract downloads the media behind videoURL into workDir and writes the
// normalized audio to destPath. Intermediate downloads are removed on
// success.
func (s *Service) Extract(ctx context.Context, videoURL, workDir, destPath string) error {
	timeout := defaultExtractTimeout
	if s.cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(s.cfg.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sourcePath, err := s.download(ctx, videoURL, workDir)
	if err != nil {
		return err
	}
	defer os.Remove(sourcePath)

	if err := s.normalize(ctx, sourcePath, destPath); err != nil {
		return err
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "audio-extraction", "normalize", "audio file not produced", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "audio-extraction", "normalize", "audio file is empty", nil)
	}
	return nil
}

func (s *Service) download(ctx context.Context, videoURL, workDir string) (string, error) {
	template := filepath.Join(workDir, downloadBaseName+".%(ext)s")
	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "bestaudio/best",
		"-o", template,
		videoURL,
	}

	logging.WithContext(ctx, s.logger).Info("downloading source media",
		logging.String("url", videoURL))

	if err := s.run(ctx, s.cfg.YtDlpBinary, args...); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", services.Wrap(services.ErrTimeout, "audio-extraction", "download", "download timed out", err)
		}
		return "", services.Wrap(services.ErrExternalTool, "audio-extraction", "download", "yt-dlp failed", err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, downloadBaseName+".*"))
	if err != nil {
		return "", fmt.Errorf("locate download: %w", err)
	}
	for _, match := range matches {
		info, statErr := os.Stat(match)
		if statErr == nil && info.Size() > 0 {
			return match, nil
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "audio-extraction", "download", "downloaded file not found", nil)
}

func (s *Service) normalize(ctx context.Context, sourcePath, destPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", sourcePath,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		destPath,
	}

	logging.WithContext(ctx, s.logger).Info("normalizing audio track")

	if err := s.run(ctx, s.cfg.FFmpegBinary, args...); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "audio-extraction", "normalize", "ffmpeg timed out", err)
		}
		return services.Wrap(services.ErrExternalTool, "audio-extraction", "normalize", "ffmpeg failed", err)
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
