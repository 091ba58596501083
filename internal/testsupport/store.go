package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"recap/internal/config"
	"recap/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a pending job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, userID, audioPath string) *jobs.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), userID, audioPath)
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}

// WriteAudio drops a fake audio artifact under the config's audio dir and
// returns its job-relative path.
func WriteAudio(t testing.TB, cfg *config.Config, name string, payload []byte) string {
	t.Helper()

	if len(payload) == 0 {
		payload = []byte("RIFF fake audio payload")
	}
	if err := os.MkdirAll(cfg.Paths.AudioDir, 0o755); err != nil {
		t.Fatalf("mkdir audio dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.AudioDir, name), payload, 0o644); err != nil {
		t.Fatalf("write audio file: %v", err)
	}
	return name
}
