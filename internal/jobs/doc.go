// Package jobs persists the job and task graph in SQLite and implements the
// per-task state machine: pending, allocated under a time-bounded lease,
// completed, failed, or cancelled. Every transition is a guarded UPDATE so
// concurrent callers observe a linear, non-duplicated sequence; lease grants
// carry a run id that stale workers cannot forge after a reclaim.
package jobs
