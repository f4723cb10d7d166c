package jobs

import "errors"

var (
	// ErrNotFound reports an unknown job or task identifier.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a transition rejected because the task already
	// finished or the caller does not hold the current lease.
	ErrConflict = errors.New("conflict")
	// ErrValidation reports a malformed request; nothing was created.
	ErrValidation = errors.New("validation error")
)
