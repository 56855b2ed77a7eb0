package testsupport

import (
	"context"
	"testing"

	"storyloom/internal/config"
	"storyloom/internal/dispatch"
	"storyloom/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenQueue opens a dispatch.Queue for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *dispatch.Queue {
	t.Helper()

	queue, err := dispatch.Open(cfg, nil)
	if err != nil {
		t.Fatalf("dispatch.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = queue.Close()
	})
	return queue
}

// NewJob creates a queued generation job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, params jobs.NewJobParams) *jobs.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), params)
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}
