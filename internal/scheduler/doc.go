// Package scheduler owns the job lifecycle: submission, lazy graph
// expansion after analysis, lease-based task allocation, worker report
// handling, and cancellation. It layers policy on the jobs store, which
// enforces the individual state transitions.
package scheduler
