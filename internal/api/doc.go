// Package api defines the transport-facing DTOs and the service layer that
// maps them onto the scheduler, content store, and worker registry.
package api
