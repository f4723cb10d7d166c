package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ReadyTasks returns every pending task whose input dependencies are all
// completed, oldest first. The readiness check is index-backed: completing a
// task only affects the rows joined through task_deps, never a full rescan.
func (s *Store) ReadyTasks(ctx context.Context) ([]*Task, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+taskColumns+` FROM tasks t
         WHERE t.state = ? AND NOT EXISTS (
             SELECT 1 FROM task_deps d
             JOIN tasks dep ON dep.id = d.depends_on
             WHERE d.task_id = t.id AND dep.state != ?
         )
         ORDER BY t.rowid`,
		StatePending, StateCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("query ready tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ready task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Successors returns the ids of tasks that consume the given task's output.
func (s *Store) Successors(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT task_id FROM task_deps WHERE depends_on = ?`, taskID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query successors: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan successor: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse successor id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Dependents walks the dependency graph downstream from a task and returns
// every transitive consumer, direct successors first.
func (s *Store) Dependents(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]struct{}{taskID: {}}
	frontier := []uuid.UUID{taskID}
	var out []uuid.UUID
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		successors, err := s.Successors(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, succ := range successors {
			if _, ok := seen[succ]; ok {
				continue
			}
			seen[succ] = struct{}{}
			out = append(out, succ)
			frontier = append(frontier, succ)
		}
	}
	return out, nil
}
