// Package logging wires log/slog for the splice daemon and CLI.
//
// Loggers carry standardized field names (job_id, task_id, worker_id) so
// records from the scheduler, the HTTP API, and the store correlate cleanly.
package logging
