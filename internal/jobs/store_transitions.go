package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// readyTaskQuery selects the oldest pending task whose input dependencies
// are all completed. Global insertion order doubles as FIFO creation order.
const readyTaskQuery = `
SELECT t.id FROM tasks t
WHERE t.state = ? AND NOT EXISTS (
    SELECT 1 FROM task_deps d
    JOIN tasks dep ON dep.id = d.depends_on
    WHERE d.task_id = t.id AND dep.state != ?
)
ORDER BY t.rowid
LIMIT 1`

// AllocateNextReady leases the oldest ready task to a worker. Each grant
// gets a fresh run id so reports from lapsed leases can be told apart from
// the live one. Returns (nil, nil) when no task is ready.
func (s *Store) AllocateNextReady(ctx context.Context, workerID uuid.UUID, leaseExpiry time.Time) (*Task, error) {
	ctx = ensureContext(ctx)
	// Competing allocators can race for the same candidate; the guarded
	// update decides the winner and the loser selects again.
	for {
		var idRaw string
		err := s.db.QueryRowContext(ctx, readyTaskQuery, StatePending, StateCompleted).Scan(&idRaw)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select ready task: %w", err)
		}

		runID := uuid.New()
		res, err := s.execWithRetry(ctx,
			`UPDATE tasks SET state = ?, worker_id = ?, run_id = ?, lease_expiry = ?, updated_at = ?
             WHERE id = ? AND state = ?`,
			StateAllocated, workerID.String(), runID.String(), formatTime(leaseExpiry), formatTime(time.Now()),
			idRaw, StatePending,
		)
		if err != nil {
			return nil, fmt.Errorf("allocate task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("allocate rows affected: %w", err)
		}
		if affected == 0 {
			continue
		}

		id, err := uuid.Parse(idRaw)
		if err != nil {
			return nil, fmt.Errorf("parse allocated task id: %w", err)
		}
		return s.GetTask(ctx, id)
	}
}

// RenewLease extends a live lease. Rejected with ErrConflict when the caller
// does not hold the current grant or the task left the allocated state.
func (s *Store) RenewLease(ctx context.Context, taskID, workerID, runID uuid.UUID, newExpiry time.Time) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET lease_expiry = ?, updated_at = ?
         WHERE id = ? AND state = ? AND worker_id = ? AND run_id = ?`,
		formatTime(newExpiry), formatTime(time.Now()),
		taskID.String(), StateAllocated, workerID.String(), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("renew lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("renew rows affected: %w", err)
	}
	if affected == 0 {
		return s.transitionRejection(ctx, taskID, "renew lease")
	}
	return nil
}

// CompleteTask marks a leased task completed. Only the holder of the current
// grant is accepted; a second completion, or one from a reclaimed lease,
// returns ErrConflict. Duration carries the analysis result when present.
func (s *Store) CompleteTask(ctx context.Context, taskID, workerID, runID uuid.UUID, duration *float64) (*Task, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET state = ?, has_output = 1, duration_seconds = ?, worker_id = NULL, run_id = NULL, lease_expiry = NULL, updated_at = ?
         WHERE id = ? AND state = ? AND worker_id = ? AND run_id = ?`,
		StateCompleted, nullableFloat(duration), formatTime(time.Now()),
		taskID.String(), StateAllocated, workerID.String(), runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("complete rows affected: %w", err)
	}
	if affected == 0 {
		return nil, s.transitionRejection(ctx, taskID, "complete")
	}
	return s.GetTask(ctx, taskID)
}

// FailTask records a worker-reported failure. With retry the task returns to
// pending with its attempt count bumped; otherwise it fails for good.
func (s *Store) FailTask(ctx context.Context, taskID, workerID, runID uuid.UUID, reason string, retry bool) (*Task, error) {
	target := StateFailed
	if retry {
		target = StatePending
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET state = ?, attempts = attempts + 1, error_message = ?, worker_id = NULL, run_id = NULL, lease_expiry = NULL, updated_at = ?
         WHERE id = ? AND state = ? AND worker_id = ? AND run_id = ?`,
		target, nullableString(reason), formatTime(time.Now()),
		taskID.String(), StateAllocated, workerID.String(), runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("fail task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("fail rows affected: %w", err)
	}
	if affected == 0 {
		return nil, s.transitionRejection(ctx, taskID, "fail")
	}
	return s.GetTask(ctx, taskID)
}

// CancelTask cancels a pending or allocated task. With restart the task
// re-enters pending for reassignment instead; either way the current lease
// grant is invalidated. Finished tasks are rejected with ErrConflict.
func (s *Store) CancelTask(ctx context.Context, taskID uuid.UUID, restart bool) (*Task, error) {
	target := StateCancelled
	if restart {
		target = StatePending
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET state = ?, worker_id = NULL, run_id = NULL, lease_expiry = NULL, updated_at = ?
         WHERE id = ? AND state IN (?, ?)`,
		target, formatTime(time.Now()),
		taskID.String(), StatePending, StateAllocated,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("cancel rows affected: %w", err)
	}
	if affected == 0 {
		return nil, s.transitionRejection(ctx, taskID, "cancel")
	}
	return s.GetTask(ctx, taskID)
}

// CancelJobTasks cancels every unfinished task of a job and returns how many
// transitions happened.
func (s *Store) CancelJobTasks(ctx context.Context, jobID uuid.UUID) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET state = ?, worker_id = NULL, run_id = NULL, lease_expiry = NULL, updated_at = ?
         WHERE job_id = ? AND state IN (?, ?)`,
		StateCancelled, formatTime(time.Now()),
		jobID.String(), StatePending, StateAllocated,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel job tasks: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimExpired returns tasks with lapsed leases to pending, making them
// immediately re-offerable. This is the sole recovery path for workers that
// crash or never report back.
func (s *Store) ReclaimExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET state = ?, worker_id = NULL, run_id = NULL, lease_expiry = NULL, updated_at = ?
         WHERE state = ? AND lease_expiry IS NOT NULL AND lease_expiry < ?`,
		StatePending, formatTime(time.Now()),
		StateAllocated, formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired leases: %w", err)
	}
	return res.RowsAffected()
}

// RecoverAllocated returns every allocated task to pending. Used at startup:
// leases from a previous process are meaningless.
func (s *Store) RecoverAllocated(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET state = ?, worker_id = NULL, run_id = NULL, lease_expiry = NULL, updated_at = ?
         WHERE state = ?`,
		StatePending, formatTime(time.Now()), StateAllocated,
	)
	if err != nil {
		return 0, fmt.Errorf("recover allocated tasks: %w", err)
	}
	return res.RowsAffected()
}

// transitionRejection explains why a guarded transition matched no row.
func (s *Store) transitionRejection(ctx context.Context, taskID uuid.UUID, verb string) error {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: cannot %s task %s in state %s", ErrConflict, verb, taskID, task.State)
}
