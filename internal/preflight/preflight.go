package preflight

import (
	"context"

	"reelscan/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the least free disk space the data directory needs before
// accepting new jobs; downloads and audio can run to hundreds of megabytes.
const minFreeBytes = 1 << 30

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDiskSpace("Data directory space", cfg.Paths.DataDir, minFreeBytes),
	}

	for _, status := range CheckBinaries(Requirements(cfg)) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command + " found"
		}
		results = append(results, result)
	}
	return results
}

// Passed reports whether every result succeeded.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
