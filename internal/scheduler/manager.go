package scheduler

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"splice/internal/jobs"
	"splice/internal/logging"
	"splice/internal/media"
	"splice/internal/storage"
)

// SubmitJob validates the options, stores the uploaded source, and creates
// the job with its seed analysis task. The rest of the graph is expanded
// lazily once the measured duration is known.
func (s *Scheduler) SubmitJob(ctx context.Context, opts media.JobOptions, source io.Reader) (*jobs.Job, error) {
	job, err := s.store.CreateJob(ctx, opts)
	if err != nil {
		return nil, err
	}
	log := logging.WithContext(logging.WithJobID(ctx, job.ID.String()), s.logger)

	if _, err := s.content.Put(storage.SourceKey(job.ID), source); err != nil {
		if storeErr := s.store.SetJobError(ctx, job.ID, "source upload failed"); storeErr != nil {
			log.Error("record source failure", logging.Error(storeErr))
		}
		return nil, fmt.Errorf("store job source: %w", err)
	}

	if _, err := s.store.AppendTask(ctx, job.ID, jobs.AnalysisRecipe(), []jobs.Input{jobs.SourceInput()}); err != nil {
		return nil, err
	}

	log.Info("job submitted",
		logging.String("video_codec", opts.Video.Codec),
		logging.Float64("segment_seconds", opts.SegmentSeconds))
	s.wake()
	return s.store.GetJob(ctx, job.ID)
}

// onTaskCompleted reacts to an accepted completion: analysis results expand
// the graph, everything else only unlocks successors.
func (s *Scheduler) onTaskCompleted(ctx context.Context, task *jobs.Task) error {
	if task.Recipe.Kind == jobs.RecipeAnalysis {
		if err := s.expandAfterAnalysis(ctx, task); err != nil {
			return err
		}
	}
	// Successors of the completed task may have become ready.
	s.wake()
	return nil
}

// expandAfterAnalysis turns the measured duration into the transcode tasks
// and, when segmenting, the merge task that concatenates them.
func (s *Scheduler) expandAfterAnalysis(ctx context.Context, analysis *jobs.Task) error {
	log := logging.WithContext(logging.WithJobID(ctx, analysis.JobID.String()), s.logger)

	job, err := s.store.GetJob(ctx, analysis.JobID)
	if err != nil {
		return err
	}

	if analysis.Duration == nil || *analysis.Duration <= 0 {
		reason := "analysis produced an unusable duration"
		if err := s.store.SetJobError(ctx, job.ID, reason); err != nil {
			return err
		}
		log.Warn("job failed", logging.String("reason", reason))
		return nil
	}
	duration := *analysis.Duration

	segments := PlanSegments(duration, job.Options.SegmentSeconds)
	transcodes := make([]uuid.UUID, 0, len(segments))
	for _, segment := range segments {
		task, err := s.store.AppendTask(ctx, job.ID,
			jobs.TranscodeRecipe(job.Options),
			[]jobs.Input{jobs.SourceSpan(segment.Start, segment.End)},
		)
		if err != nil {
			return err
		}
		transcodes = append(transcodes, task.ID)
	}

	// Segmented jobs always finish with a merge, even over a single
	// segment, so the terminal shape only depends on the options.
	terminal := transcodes[len(transcodes)-1]
	if job.Options.SegmentSeconds > 0 {
		inputs := make([]jobs.Input, 0, len(transcodes))
		for _, id := range transcodes {
			inputs = append(inputs, jobs.TaskOutputInput(id))
		}
		merge, err := s.store.AppendTask(ctx, job.ID, jobs.MergeRecipe(transcodes), inputs)
		if err != nil {
			return err
		}
		terminal = merge.ID
	}
	if err := s.store.SetTerminalTask(ctx, job.ID, terminal); err != nil {
		return err
	}

	log.Info("job expanded",
		logging.Float64("duration_seconds", duration),
		logging.Int("transcode_tasks", len(transcodes)),
		logging.Bool("merge", job.Options.SegmentSeconds > 0))
	return nil
}

// onTaskFailed applies the retry policy after an exhausted task: the job is
// failed and everything downstream of the dead task is cancelled so it can
// never be offered.
func (s *Scheduler) onTaskFailed(ctx context.Context, task *jobs.Task, reason string) error {
	log := logging.WithContext(logging.WithJobID(logging.WithTaskID(ctx, task.ID.String()), task.JobID.String()), s.logger)

	if err := s.store.SetJobError(ctx, task.JobID, fmt.Sprintf("task %s failed: %s", task.ID, reason)); err != nil {
		return err
	}
	dependents, err := s.store.Dependents(ctx, task.ID)
	if err != nil {
		return err
	}
	for _, dep := range dependents {
		if _, err := s.store.CancelTask(ctx, dep, false); err != nil {
			// Finished dependents are fine to leave as they are.
			continue
		}
	}
	log.Warn("job failed", logging.String("reason", reason), logging.Int("cancelled_dependents", len(dependents)))
	return nil
}

// JobStatus returns a job, its tasks in creation order, and the derived
// overall status. Nothing here is stored redundantly.
func (s *Scheduler) JobStatus(ctx context.Context, jobID uuid.UUID) (*jobs.Job, []*jobs.Task, jobs.OverallStatus, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, "", err
	}
	tasks, err := s.store.TasksByJob(ctx, jobID)
	if err != nil {
		return nil, nil, "", err
	}
	return job, tasks, jobs.Aggregate(job, tasks), nil
}

// ListJobs returns all known jobs.
func (s *Scheduler) ListJobs(ctx context.Context) ([]*jobs.Job, error) {
	return s.store.ListJobs(ctx)
}

// GetTask exposes a single task record.
func (s *Scheduler) GetTask(ctx context.Context, taskID uuid.UUID) (*jobs.Task, error) {
	return s.store.GetTask(ctx, taskID)
}

// JobOutput returns the content key of a finished job's output, or ErrNoTask
// when the terminal task has not completed yet.
func (s *Scheduler) JobOutput(ctx context.Context, jobID uuid.UUID) (storage.Key, error) {
	job, tasks, overall, err := s.JobStatus(ctx, jobID)
	if err != nil {
		return storage.Key{}, err
	}
	if overall != jobs.JobCompleted || job.TerminalTask == uuid.Nil {
		return storage.Key{}, fmt.Errorf("%w: job %s output", ErrNoTask, jobID)
	}
	for _, task := range tasks {
		if task.ID == job.TerminalTask && task.State == jobs.StateCompleted {
			return storage.OutputKey(job.ID, task.ID), nil
		}
	}
	return storage.Key{}, fmt.Errorf("%w: job %s output", ErrNoTask, jobID)
}
