package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Slot distinguishes the blobs stored under one job/task pair.
type Slot string

const (
	// SlotSource is the uploaded input of a job. Stored with a nil task id.
	SlotSource Slot = "source"
	// SlotOutput is the durable result a worker uploads for a task.
	SlotOutput Slot = "output"
)

// Key addresses one blob in the content store.
type Key struct {
	JobID  uuid.UUID
	TaskID uuid.UUID
	Slot   Slot
}

// SourceKey returns the key of a job's uploaded input.
func SourceKey(jobID uuid.UUID) Key {
	return Key{JobID: jobID, Slot: SlotSource}
}

// OutputKey returns the key of a task's uploaded output.
func OutputKey(jobID, taskID uuid.UUID) Key {
	return Key{JobID: jobID, TaskID: taskID, Slot: SlotOutput}
}

func (k Key) String() string {
	if k.TaskID == uuid.Nil {
		return fmt.Sprintf("%s/%s", k.JobID, k.Slot)
	}
	return fmt.Sprintf("%s/%s/%s", k.JobID, k.TaskID, k.Slot)
}

// ErrNotFound reports a read of a key that was never durably written.
var ErrNotFound = errors.New("content not found")

// ContentStore is the durable byte store consumed by the scheduler. A write
// is durable once Put returns; Exists must observe it immediately after.
type ContentStore interface {
	// Put streams r into the blob addressed by key, replacing any previous
	// content, and returns the stored length.
	Put(key Key, r io.Reader) (int64, error)
	// Open returns a seekable reader over the blob. Callers close it.
	Open(key Key) (io.ReadSeekCloser, error)
	// Exists reports whether the blob has been durably written.
	Exists(key Key) (bool, error)
	// Remove deletes the blob. Removing a missing blob is not an error.
	Remove(key Key) error
}
