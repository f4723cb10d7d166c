// Package daemon hosts the long-running spliced process: single-instance
// locking, the HTTP API surface, and wiring between the scheduler, content
// store, and worker registry.
package daemon
