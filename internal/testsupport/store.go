package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"splice/internal/config"
	"splice/internal/jobs"
	"splice/internal/media"
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

// DefaultJobOptions returns a valid option set for seeding test jobs.
func DefaultJobOptions() media.JobOptions {
	return media.JobOptions{
		Video:          media.Options{Codec: "libsvtav1", Params: []string{"-crf", "30"}},
		SegmentSeconds: 30,
	}
}

// NewJob creates a job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, opts media.JobOptions) *jobs.Job {
	t.Helper()

	job, err := store.CreateJob(context.Background(), opts)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return job
}

// SeedAnalysisTask appends the probing task a freshly submitted job carries.
func SeedAnalysisTask(t testing.TB, store *jobs.Store, jobID uuid.UUID) *jobs.Task {
	t.Helper()

	task, err := store.AppendTask(context.Background(), jobID, jobs.AnalysisRecipe(), []jobs.Input{jobs.SourceInput()})
	if err != nil {
		t.Fatalf("AppendTask(analysis): %v", err)
	}
	return task
}
