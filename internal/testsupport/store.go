package testsupport

import (
	"testing"

	"reelscan/internal/config"
	"reelscan/internal/jobs"
)

// MustOpenStore opens a job store for the config and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close job store: %v", err)
		}
	})
	return store
}
