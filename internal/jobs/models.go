package jobs

import (
	"time"

	"github.com/google/uuid"

	"splice/internal/media"
)

// State represents the lifecycle of a task.
type State string

const (
	StatePending   State = "pending"
	StateAllocated State = "allocated"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// RecipeKind identifies the closed set of task recipes.
type RecipeKind string

const (
	RecipeAnalysis  RecipeKind = "analysis"
	RecipeTranscode RecipeKind = "transcode"
	RecipeMerge     RecipeKind = "merge"
)

// Recipe describes what a worker does with a task's inputs. Exactly one
// payload matches the kind: Transcode carries encoder options, Merge carries
// the concatenation order. A recipe never changes after creation.
type Recipe struct {
	Kind        RecipeKind      `json:"kind"`
	Encoder     *EncoderOptions `json:"encoder,omitempty"`
	Concatenate []uuid.UUID     `json:"concatenate,omitempty"`
}

// EncoderOptions are the codec settings a transcode task inherits from its job.
type EncoderOptions struct {
	Video media.Options  `json:"video"`
	Audio *media.Options `json:"audio,omitempty"`
}

// AnalysisRecipe returns the recipe for the seed probing task.
func AnalysisRecipe() Recipe {
	return Recipe{Kind: RecipeAnalysis}
}

// TranscodeRecipe returns a transcode recipe carrying the job's codec settings.
func TranscodeRecipe(opts media.JobOptions) Recipe {
	return Recipe{
		Kind: RecipeTranscode,
		Encoder: &EncoderOptions{
			Video: opts.Video,
			Audio: opts.Audio,
		},
	}
}

// MergeRecipe returns a merge recipe concatenating the given task outputs in order.
func MergeRecipe(order []uuid.UUID) Recipe {
	return Recipe{Kind: RecipeMerge, Concatenate: order}
}

// Input references the bytes a task consumes: the job source when Task is
// the nil UUID, otherwise the output of another task of the same job. Start
// and End trim the referenced stream in seconds; a nil End means the
// remainder of the stream.
type Input struct {
	Task  uuid.UUID `json:"task,omitempty"`
	Start *float64  `json:"start,omitempty"`
	End   *float64  `json:"end,omitempty"`
}

// SourceInput references the whole job source.
func SourceInput() Input {
	return Input{}
}

// SourceSpan references the job source trimmed to [start, end) seconds.
func SourceSpan(start, end float64) Input {
	return Input{Start: &start, End: &end}
}

// TaskOutputInput references the full output of another task.
func TaskOutputInput(task uuid.UUID) Input {
	return Input{Task: task}
}

// FromSource reports whether the input reads the job source rather than a
// task output.
func (in Input) FromSource() bool {
	return in.Task == uuid.Nil
}

// Job is one submitted transcode request.
type Job struct {
	ID           uuid.UUID
	Options      media.JobOptions
	TerminalTask uuid.UUID
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Task is one unit of work within a job. Seq is the creation order within
// the job; allocation order across jobs follows global creation order.
type Task struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	Seq         int
	Recipe      Recipe
	Inputs      []Input
	State       State
	Attempts    int
	WorkerID    uuid.UUID
	RunID       uuid.UUID
	LeaseExpiry *time.Time
	Duration    *float64
	HasOutput   bool
	ErrorMsg    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LeaseExpired reports whether the task holds a lease that lapsed before now.
func (t *Task) LeaseExpired(now time.Time) bool {
	return t.State == StateAllocated && t.LeaseExpiry != nil && t.LeaseExpiry.Before(now)
}

// OverallStatus is the aggregated, never-stored job status.
type OverallStatus string

const (
	JobPending   OverallStatus = "pending"
	JobRunning   OverallStatus = "running"
	JobCompleted OverallStatus = "completed"
	JobFailed    OverallStatus = "failed"
	JobCancelled OverallStatus = "cancelled"
)

// Aggregate derives the overall job status from its task states. The job is
// completed exactly when its terminal task is, and failed as soon as any
// task fails for good.
func Aggregate(job *Job, tasks []*Task) OverallStatus {
	if job == nil {
		return JobPending
	}
	if job.ErrorMessage != "" {
		return JobFailed
	}
	var cancelled bool
	var progressed bool
	for _, task := range tasks {
		switch task.State {
		case StateFailed:
			return JobFailed
		case StateCancelled:
			cancelled = true
		case StateAllocated, StateCompleted:
			progressed = true
		}
		if job.TerminalTask != uuid.Nil && task.ID == job.TerminalTask && task.State == StateCompleted {
			return JobCompleted
		}
	}
	if cancelled {
		return JobCancelled
	}
	if progressed {
		return JobRunning
	}
	return JobPending
}
