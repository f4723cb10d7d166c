package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"splice/internal/jobs"
	"splice/internal/media"
	"splice/internal/storage"
	"splice/internal/testsupport"
)

func TestSubmitJobSeedsAnalysisTask(t *testing.T) {
	s, store, content := newTestScheduler(t)
	ctx := context.Background()

	job := submitTestJob(t, s, testsupport.DefaultJobOptions())

	tasks, err := store.TasksByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("TasksByJob: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("task count = %d, want the single analysis task", len(tasks))
	}
	seed := tasks[0]
	if seed.Recipe.Kind != jobs.RecipeAnalysis || seed.State != jobs.StatePending {
		t.Fatalf("seed task = %s/%s, want pending analysis", seed.Recipe.Kind, seed.State)
	}
	if len(seed.Inputs) != 1 || !seed.Inputs[0].FromSource() || seed.Inputs[0].Start != nil {
		t.Fatalf("seed inputs = %+v, want the untrimmed source", seed.Inputs)
	}

	ok, err := content.Exists(storage.SourceKey(job.ID))
	if err != nil || !ok {
		t.Fatalf("source not stored (ok=%v err=%v)", ok, err)
	}
}

func TestSubmitJobRejectsInvalidOptions(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	_, err := s.SubmitJob(context.Background(), media.JobOptions{}, strings.NewReader("bytes"))
	if !errors.Is(err, jobs.ErrValidation) {
		t.Fatalf("SubmitJob without a video codec: %v, want ErrValidation", err)
	}
}

func TestExpansionCarriesEncoderOptions(t *testing.T) {
	s, store, content := newTestScheduler(t, withAllocateWaitSeconds(0))
	ctx := context.Background()

	opts := media.JobOptions{
		Video:          media.Options{Codec: "libx265", Params: []string{"-preset", "slow"}},
		Audio:          &media.Options{Codec: "libopus"},
		SegmentSeconds: 30,
	}
	job := submitTestJob(t, s, opts)

	analysis, err := s.Allocate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	completeTask(t, s, content, analysis, floatPtr(45))

	tasks, err := store.TasksByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("TasksByJob: %v", err)
	}
	for _, task := range tasks {
		if task.Recipe.Kind != jobs.RecipeTranscode {
			continue
		}
		enc := task.Recipe.Encoder
		if enc == nil || enc.Video.Codec != "libx265" {
			t.Fatalf("transcode encoder = %+v, want job video options", enc)
		}
		if enc.Audio == nil || enc.Audio.Codec != "libopus" {
			t.Fatalf("transcode audio = %+v, want job audio options", enc.Audio)
		}
	}
}

func TestExpansionUnusableDurationFailsJob(t *testing.T) {
	s, _, content := newTestScheduler(t, withAllocateWaitSeconds(0))
	ctx := context.Background()

	job := submitTestJob(t, s, testsupport.DefaultJobOptions())
	analysis, err := s.Allocate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	completeTask(t, s, content, analysis, nil)

	current, _, overall, err := s.JobStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	if overall != jobs.JobFailed || current.ErrorMessage == "" {
		t.Fatalf("job after missing duration: status=%s error=%q, want failed with message", overall, current.ErrorMessage)
	}

	// No further work may be offered for the dead job.
	if _, err := s.Allocate(ctx, uuid.New()); !errors.Is(err, ErrNoTask) {
		t.Fatalf("Allocate on failed job: %v, want ErrNoTask", err)
	}
}

func TestExhaustedTranscodeCancelsDownstream(t *testing.T) {
	s, store, content := newTestScheduler(t,
		withAllocateWaitSeconds(0),
		testsupport.WithMaxTaskAttempts(1),
	)
	ctx := context.Background()
	worker := uuid.New()

	job := submitTestJob(t, s, testsupport.DefaultJobOptions())
	analysis, err := s.Allocate(ctx, worker)
	if err != nil {
		t.Fatalf("Allocate analysis: %v", err)
	}
	completeTask(t, s, content, analysis, floatPtr(45))

	transcode, err := s.Allocate(ctx, worker)
	if err != nil {
		t.Fatalf("Allocate transcode: %v", err)
	}
	if _, err := s.Fail(ctx, transcode.ID, transcode.WorkerID, transcode.RunID, "encoder crashed"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	tasks, err := store.TasksByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("TasksByJob: %v", err)
	}
	var mergeState jobs.State
	for _, task := range tasks {
		if task.Recipe.Kind == jobs.RecipeMerge {
			mergeState = task.State
		}
	}
	if mergeState != jobs.StateCancelled {
		t.Fatalf("merge state after transcode death = %s, want cancelled", mergeState)
	}

	current, _, overall, err := s.JobStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	if overall != jobs.JobFailed {
		t.Fatalf("job status = %s, want failed", overall)
	}
	if !strings.Contains(current.ErrorMessage, "encoder crashed") {
		t.Fatalf("job error %q does not carry the worker's reason", current.ErrorMessage)
	}
}

func TestJobStatusUnknownJob(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	_, _, _, err := s.JobStatus(context.Background(), uuid.New())
	if !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("JobStatus of unknown job: %v, want ErrNotFound", err)
	}
}
