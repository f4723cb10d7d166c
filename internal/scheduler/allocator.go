package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"splice/internal/jobs"
	"splice/internal/logging"
	"splice/internal/storage"
)

// Allocate hands the oldest ready task to a worker under a fresh lease.
// When nothing is ready the call blocks until work appears, the configured
// wait window lapses (ErrNoTask), or ctx is cancelled.
func (s *Scheduler) Allocate(ctx context.Context, workerID uuid.UUID) (*jobs.Task, error) {
	deadline := time.Now().Add(s.cfg.AllocateWait())
	for {
		// Lapsed leases become offerable before each attempt so a lone
		// polling worker never waits on the reclaim ticker.
		if _, err := s.store.ReclaimExpired(ctx, time.Now()); err != nil {
			return nil, err
		}

		wait := s.waitChan()
		task, err := s.store.AllocateNextReady(ctx, workerID, time.Now().Add(s.cfg.LeaseDuration()))
		if err != nil {
			return nil, err
		}
		if task != nil {
			s.logger.Info("task allocated",
				logging.String(logging.FieldTaskID, task.ID.String()),
				logging.String(logging.FieldJobID, task.JobID.String()),
				logging.String(logging.FieldWorkerID, workerID.String()),
				logging.String("kind", string(task.Recipe.Kind)))
			return task, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrNoTask
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrNoTask
		case <-wait:
			timer.Stop()
		}
	}
}

// Complete accepts a worker's success report. The output must already be in
// the content store, otherwise the report is rejected with ErrOutputMissing
// and the lease stays live for a corrected retry.
func (s *Scheduler) Complete(ctx context.Context, taskID, workerID, runID uuid.UUID, duration *float64) (*jobs.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	ok, err := s.content.Exists(storage.OutputKey(task.JobID, task.ID))
	if err != nil {
		return nil, fmt.Errorf("check task output: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: task %s", ErrOutputMissing, taskID)
	}

	// Completion and the expansion it may trigger must not interleave with
	// a concurrent completion of the same analysis task.
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err = s.store.CompleteTask(ctx, taskID, workerID, runID, duration)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task completed",
		logging.String(logging.FieldTaskID, task.ID.String()),
		logging.String(logging.FieldJobID, task.JobID.String()),
		logging.String("kind", string(task.Recipe.Kind)))
	if err := s.onTaskCompleted(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Fail accepts a worker's failure report and applies the retry policy: the
// task goes back to pending until its attempts are used up, then the job
// fails and its dependents are cancelled.
func (s *Scheduler) Fail(ctx context.Context, taskID, workerID, runID uuid.UUID, reason string) (*jobs.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	retry := task.Attempts+1 < s.cfg.Scheduler.MaxTaskAttempts

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err = s.store.FailTask(ctx, taskID, workerID, runID, reason, retry)
	if err != nil {
		return nil, err
	}
	if retry {
		s.logger.Warn("task failed, retrying",
			logging.String(logging.FieldTaskID, task.ID.String()),
			logging.Int("attempts", task.Attempts),
			logging.String("reason", reason))
		s.wake()
		return task, nil
	}
	if err := s.onTaskFailed(ctx, task, reason); err != nil {
		return nil, err
	}
	return task, nil
}

// Renew extends the lease of a running task by one lease duration.
func (s *Scheduler) Renew(ctx context.Context, taskID, workerID, runID uuid.UUID) (time.Time, error) {
	expiry := time.Now().Add(s.cfg.LeaseDuration())
	if err := s.store.RenewLease(ctx, taskID, workerID, runID, expiry); err != nil {
		return time.Time{}, err
	}
	return expiry, nil
}

// CancelTask cancels one unfinished task, or restarts it when restart is set.
// A restarted task drops its lease and is offered again from pending.
func (s *Scheduler) CancelTask(ctx context.Context, taskID uuid.UUID, restart bool) (*jobs.Task, error) {
	task, err := s.store.CancelTask(ctx, taskID, restart)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task cancelled",
		logging.String(logging.FieldTaskID, task.ID.String()),
		logging.Bool("restart", restart))
	s.wake()
	return task, nil
}

// CancelJob cancels every unfinished task of a job.
func (s *Scheduler) CancelJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return 0, err
	}
	cancelled, err := s.store.CancelJobTasks(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if cancelled > 0 {
		s.logger.Info("job cancelled",
			logging.String(logging.FieldJobID, jobID.String()),
			logging.Int64("tasks", cancelled))
	}
	return cancelled, nil
}
