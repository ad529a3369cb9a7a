package jobs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names inside a job directory.
const (
	ScreenshotFile = "screenshot.png"
	AudioFile      = "audio.wav"
	ResultFile     = "result.json"
)

// JobDir returns the per-job artifact directory.
func JobDir(dataDir, jobID string) string {
	return filepath.Join(dataDir, jobID)
}

// EnsureJobDir creates the per-job artifact directory.
func EnsureJobDir(dataDir, jobID string) (string, error) {
	dir := JobDir(dataDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}
	return dir, nil
}

// ScreenshotPath returns the screenshot location for a job.
func ScreenshotPath(dataDir, jobID string) string {
	return filepath.Join(JobDir(dataDir, jobID), ScreenshotFile)
}

// AudioPath returns the normalized audio location for a job.
func AudioPath(dataDir, jobID string) string {
	return filepath.Join(JobDir(dataDir, jobID), AudioFile)
}

// ResultPath returns the persisted result location for a job.
func ResultPath(dataDir, jobID string) string {
	return filepath.Join(JobDir(dataDir, jobID), ResultFile)
}
