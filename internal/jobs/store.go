package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"splice/internal/media"
)

// CreateJob inserts a new job with no tasks.
func (s *Store) CreateJob(ctx context.Context, opts media.JobOptions) (*Job, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	optionsJSON, err := encodeJSON(opts)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	timestamp := formatTime(time.Now())
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, options_json, terminal_task, error_message, created_at, updated_at)
         VALUES (?, ?, NULL, NULL, ?, ?)`,
		id.String(), optionsJSON, timestamp, timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. Returns ErrNotFound for unknown ids.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns all jobs ordered by creation time.
func (s *Store) ListJobs(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// SetTerminalTask records the task whose output is the job's output.
func (s *Store) SetTerminalTask(ctx context.Context, jobID, taskID uuid.UUID) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET terminal_task = ?, updated_at = ? WHERE id = ?`,
		taskID.String(), formatTime(time.Now()), jobID.String(),
	)
	if err != nil {
		return fmt.Errorf("set terminal task: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	return nil
}

// SetJobError marks the job as failed with a client-visible reason.
func (s *Store) SetJobError(ctx context.Context, jobID uuid.UUID, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET error_message = ?, updated_at = ? WHERE id = ?`,
		nullableString(message), formatTime(time.Now()), jobID.String(),
	)
	if err != nil {
		return fmt.Errorf("set job error: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	return nil
}

// AppendTask adds a task to a job. Dependencies are derived from the inputs
// that reference other tasks; every referenced task must already exist in
// the same job. The recipe and inputs are immutable afterwards.
func (s *Store) AppendTask(ctx context.Context, jobID uuid.UUID, recipe Recipe, inputs []Input) (*Task, error) {
	ctx = ensureContext(ctx)
	recipeJSON, err := encodeJSON(recipe)
	if err != nil {
		return nil, err
	}
	inputsJSON, err := encodeJSON(inputs)
	if err != nil {
		return nil, err
	}

	deps := make([]uuid.UUID, 0, len(inputs))
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	for _, in := range inputs {
		if in.FromSource() {
			continue
		}
		if _, dup := seen[in.Task]; dup {
			continue
		}
		seen[in.Task] = struct{}{}
		deps = append(deps, in.Task)
	}

	id := uuid.New()
	timestamp := formatTime(time.Now())

	var task *Task
	err = retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin append tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var seq sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(seq) FROM tasks WHERE job_id = ?`, jobID.String(),
		).Scan(&seq); err != nil {
			return fmt.Errorf("next task seq: %w", err)
		}
		next := 0
		if seq.Valid {
			next = int(seq.Int64) + 1
		}

		var jobExists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM jobs WHERE id = ?`, jobID.String(),
		).Scan(&jobExists); err != nil {
			return fmt.Errorf("check job: %w", err)
		}
		if jobExists == 0 {
			return fmt.Errorf("%w: job %s", ErrNotFound, jobID)
		}

		for _, dep := range deps {
			var depState string
			err := tx.QueryRowContext(ctx,
				`SELECT state FROM tasks WHERE id = ? AND job_id = ?`,
				dep.String(), jobID.String(),
			).Scan(&depState)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: dependency task %s", ErrNotFound, dep)
			}
			if err != nil {
				return fmt.Errorf("check dependency: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (id, job_id, seq, recipe_json, inputs_json, state, attempts, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			id.String(), jobID.String(), next, recipeJSON, inputsJSON, StatePending, timestamp, timestamp,
		); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		for _, dep := range deps {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO task_deps (task_id, depends_on) VALUES (?, ?)`,
				id.String(), dep.String(),
			); err != nil {
				return fmt.Errorf("insert task dependency: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET updated_at = ? WHERE id = ?`, timestamp, jobID.String(),
		); err != nil {
			return fmt.Errorf("touch job: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit append: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	task, err = s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask fetches a task by identifier. Returns ErrNotFound for unknown ids.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// TasksByJob returns a job's tasks in creation order.
func (s *Store) TasksByJob(ctx context.Context, jobID uuid.UUID) ([]*Task, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+taskColumns+` FROM tasks WHERE job_id = ? ORDER BY seq`,
		jobID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query job tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// TaskStats returns task counts per state across all jobs.
func (s *Store) TaskStats(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT state, COUNT(1) FROM tasks GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[State]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[State(state)] = count
	}
	return stats, rows.Err()
}
