package audioextract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelscan/internal/config"
	"reelscan/internal/services"
)

func TestExtractDownloadsAndNormalizes(t *testing.T) {
	workDir := t.TempDir()
	destPath := filepath.Join(workDir, "audio.wav")

	var commands [][]string
	service := NewService(config.Audio{
		YtDlpBinary:  "yt-dlp",
		FFmpegBinary: "ffmpeg",
	}, nil, WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		commands = append(commands, append([]string{name}, args...))
		switch name {
		case "yt-dlp":
			return os.WriteFile(filepath.Join(workDir, "source.webm"), []byte("media"), 0o644)
		case "ffmpeg":
			return os.WriteFile(destPath, []byte("wav"), 0o644)
		default:
			return errors.New("unexpected command " + name)
		}
	}))

	if err := service.Extract(context.Background(), "https://example.com/v", workDir, destPath); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("commands = %v", commands)
	}

	download := strings.Join(commands[0], " ")
	if !strings.Contains(download, "-f bestaudio/best") || !strings.Contains(download, "https://example.com/v") {
		t.Fatalf("download command = %q", download)
	}

	normalize := strings.Join(commands[1], " ")
	for _, want := range []string{"-ac 1", "-ar 16000", "-c:a pcm_s16le", "source.webm", destPath} {
		if !strings.Contains(normalize, want) {
			t.Fatalf("normalize command missing %q: %q", want, normalize)
		}
	}

	if _, err := os.Stat(filepath.Join(workDir, "source.webm")); !os.IsNotExist(err) {
		t.Fatal("intermediate download should be removed")
	}
}

func TestExtractFailsWhenDownloadFails(t *testing.T) {
	workDir := t.TempDir()
	service := NewService(config.Audio{YtDlpBinary: "yt-dlp", FFmpegBinary: "ffmpeg"}, nil,
		WithCommandRunner(func(_ context.Context, name string, _ ...string) error {
			return errors.New("network unreachable")
		}))

	err := service.Extract(context.Background(), "https://example.com/v", workDir, filepath.Join(workDir, "audio.wav"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestExtractFailsWhenDownloadProducesNothing(t *testing.T) {
	workDir := t.TempDir()
	service := NewService(config.Audio{YtDlpBinary: "yt-dlp", FFmpegBinary: "ffmpeg"}, nil,
		WithCommandRunner(func(context.Context, string, ...string) error {
			return nil
		}))

	if err := service.Extract(context.Background(), "https://example.com/v", workDir, filepath.Join(workDir, "audio.wav")); err == nil {
		t.Fatal("expected error when no download appears")
	}
}

func TestExtractFailsWhenNormalizedAudioEmpty(t *testing.T) {
	workDir := t.TempDir()
	destPath := filepath.Join(workDir, "audio.wav")
	service := NewService(config.Audio{YtDlpBinary: "yt-dlp", FFmpegBinary: "ffmpeg"}, nil,
		WithCommandRunner(func(_ context.Context, name string, _ ...string) error {
			switch name {
			case "yt-dlp":
				return os.WriteFile(filepath.Join(workDir, "source.m4a"), []byte("media"), 0o644)
			default:
				return os.WriteFile(destPath, nil, 0o644)
			}
		}))

	if err := service.Extract(context.Background(), "https://example.com/v", workDir, destPath); err == nil {
		t.Fatal("expected error for empty normalized audio")
	}
}
