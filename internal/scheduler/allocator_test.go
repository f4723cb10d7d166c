package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"splice/internal/jobs"
	"splice/internal/testsupport"
)

func TestAllocateTimesOutWhenIdle(t *testing.T) {
	s, _, _ := newTestScheduler(t, withAllocateWaitSeconds(0))

	_, err := s.Allocate(context.Background(), uuid.New())
	if !errors.Is(err, ErrNoTask) {
		t.Fatalf("Allocate on empty queue: %v, want ErrNoTask", err)
	}
}

func TestAllocateWakesOnSubmit(t *testing.T) {
	s, _, _ := newTestScheduler(t, withAllocateWaitSeconds(10))

	type result struct {
		task *jobs.Task
		err  error
	}
	got := make(chan result, 1)
	go func() {
		task, err := s.Allocate(context.Background(), uuid.New())
		got <- result{task, err}
	}()

	// Give the allocator a moment to park on the wait channel.
	time.Sleep(50 * time.Millisecond)
	submitTestJob(t, s, testsupport.DefaultJobOptions())

	select {
	case r := <-got:
		if r.err != nil {
			t.Fatalf("Allocate: %v", r.err)
		}
		if r.task.Recipe.Kind != jobs.RecipeAnalysis {
			t.Fatalf("task kind = %s, want analysis", r.task.Recipe.Kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("blocked allocate never woke after submit")
	}
}

func TestAllocateHonorsContextCancel(t *testing.T) {
	s, _, _ := newTestScheduler(t, withAllocateWaitSeconds(10))

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := s.Allocate(ctx, uuid.New())
		errs <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Allocate after cancel: %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("blocked allocate ignored context cancellation")
	}
}

func TestCompleteRejectsMissingOutput(t *testing.T) {
	s, store, _ := newTestScheduler(t, withAllocateWaitSeconds(0))
	ctx := context.Background()

	submitTestJob(t, s, testsupport.DefaultJobOptions())
	task, err := s.Allocate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if _, err := s.Complete(ctx, task.ID, task.WorkerID, task.RunID, floatPtr(45)); !errors.Is(err, ErrOutputMissing) {
		t.Fatalf("Complete without stored output: %v, want ErrOutputMissing", err)
	}

	// The lease survives a rejected report so the worker can upload and retry.
	current, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if current.State != jobs.StateAllocated || current.RunID != task.RunID {
		t.Fatalf("task after rejected report: state=%s run=%s, want allocated with same grant", current.State, current.RunID)
	}
}

func TestCompleteRejectsStaleGrant(t *testing.T) {
	s, store, content := newTestScheduler(t, withAllocateWaitSeconds(0))
	ctx := context.Background()

	submitTestJob(t, s, testsupport.DefaultJobOptions())
	first, err := s.Allocate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// The first worker's lease lapses and the task is granted again.
	if _, err := store.ReclaimExpired(ctx, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("ReclaimExpired: %v", err)
	}
	second, err := s.Allocate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("reallocate: %v", err)
	}

	putOutput(t, content, first.JobID, first.ID)
	if _, err := s.Complete(ctx, first.ID, first.WorkerID, first.RunID, floatPtr(45)); !errors.Is(err, jobs.ErrConflict) {
		t.Fatalf("stale completion: %v, want ErrConflict", err)
	}
	if _, err := s.Complete(ctx, second.ID, second.WorkerID, second.RunID, floatPtr(45)); err != nil {
		t.Fatalf("live completion: %v", err)
	}
}

func TestRenewExtendsLiveLeaseOnly(t *testing.T) {
	s, _, _ := newTestScheduler(t, withAllocateWaitSeconds(0))
	ctx := context.Background()

	submitTestJob(t, s, testsupport.DefaultJobOptions())
	task, err := s.Allocate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	expiry, err := s.Renew(ctx, task.ID, task.WorkerID, task.RunID)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if !expiry.After(time.Now()) {
		t.Fatalf("renewed expiry %v is not in the future", expiry)
	}

	if _, err := s.Renew(ctx, task.ID, uuid.New(), task.RunID); !errors.Is(err, jobs.ErrConflict) {
		t.Fatalf("renew by other worker: %v, want ErrConflict", err)
	}
}

func TestFailRetriesUntilAttemptsExhausted(t *testing.T) {
	s, _, _ := newTestScheduler(t,
		withAllocateWaitSeconds(0),
		testsupport.WithMaxTaskAttempts(2),
	)
	ctx := context.Background()
	worker := uuid.New()

	job := submitTestJob(t, s, testsupport.DefaultJobOptions())

	task, err := s.Allocate(ctx, worker)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	failed, err := s.Fail(ctx, task.ID, task.WorkerID, task.RunID, "probe crashed")
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if failed.State != jobs.StatePending || failed.Attempts != 1 {
		t.Fatalf("after first failure: state=%s attempts=%d, want pending/1", failed.State, failed.Attempts)
	}

	task, err = s.Allocate(ctx, worker)
	if err != nil {
		t.Fatalf("reallocate: %v", err)
	}
	failed, err = s.Fail(ctx, task.ID, task.WorkerID, task.RunID, "probe crashed again")
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if failed.State != jobs.StateFailed {
		t.Fatalf("after final failure: state=%s, want failed", failed.State)
	}

	_, _, overall, err := s.JobStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	if overall != jobs.JobFailed {
		t.Fatalf("job status = %s, want failed", overall)
	}
}

func TestCancelTaskRestartDropsLease(t *testing.T) {
	s, _, _ := newTestScheduler(t, withAllocateWaitSeconds(0))
	ctx := context.Background()

	submitTestJob(t, s, testsupport.DefaultJobOptions())
	task, err := s.Allocate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	restarted, err := s.CancelTask(ctx, task.ID, true)
	if err != nil {
		t.Fatalf("CancelTask(restart): %v", err)
	}
	if restarted.State != jobs.StatePending || restarted.RunID != uuid.Nil {
		t.Fatalf("restarted task: state=%s run=%s, want pending with cleared grant", restarted.State, restarted.RunID)
	}

	again, err := s.Allocate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("reallocate restarted task: %v", err)
	}
	if again.ID != task.ID {
		t.Fatalf("reallocated task %s, want %s", again.ID, task.ID)
	}
	if again.RunID == task.RunID {
		t.Fatal("restart reused the old run id")
	}
}

func TestCancelJobStopsAllUnfinishedTasks(t *testing.T) {
	s, store, content := newTestScheduler(t, withAllocateWaitSeconds(0))
	ctx := context.Background()
	worker := uuid.New()

	job := submitTestJob(t, s, testsupport.DefaultJobOptions())
	analysis, err := s.Allocate(ctx, worker)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	completeTask(t, s, content, analysis, floatPtr(45))

	cancelled, err := s.CancelJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if cancelled != 3 {
		t.Fatalf("cancelled %d tasks, want the 2 transcodes and the merge", cancelled)
	}

	tasks, err := store.TasksByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("TasksByJob: %v", err)
	}
	for _, task := range tasks {
		if task.ID == analysis.ID {
			if task.State != jobs.StateCompleted {
				t.Errorf("finished analysis was rewritten to %s", task.State)
			}
			continue
		}
		if task.State != jobs.StateCancelled {
			t.Errorf("task %s state = %s, want cancelled", task.ID, task.State)
		}
	}

	if _, _, overall, _ := s.JobStatus(ctx, job.ID); overall != jobs.JobCancelled {
		t.Fatalf("job status = %s, want cancelled", overall)
	}
}
