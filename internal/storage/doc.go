// Package storage provides the content-addressed byte store for job sources
// and task outputs. The scheduler only depends on the ContentStore interface;
// the daemon wires the filesystem implementation, tests use the in-memory one.
package storage
