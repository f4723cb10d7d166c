package api

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"splice/internal/jobs"
	"splice/internal/registry"
	"splice/internal/scheduler"
	"splice/internal/storage"
)

// Version is the daemon version reported by the unauthenticated version
// endpoint. Overridden at build time.
var Version = "dev"

// Service exposes the scheduler, content store, and worker registry as
// transport-friendly operations returning API DTOs. HTTP handlers stay thin
// and translate errors only.
type Service struct {
	sched   *scheduler.Scheduler
	content storage.ContentStore
	workers *registry.Registry
}

// NewService wires the API service.
func NewService(sched *scheduler.Scheduler, content storage.ContentStore, workers *registry.Registry) *Service {
	return &Service{sched: sched, content: content, workers: workers}
}

// Version reports daemon identity. Served without authentication.
func (s *Service) Version() VersionInfo {
	return VersionInfo{Name: "spliced", Version: Version}
}

// Login opens a worker session and mints its capability token.
func (s *Service) Login(req LoginRequest) LoginResponse {
	token, identity := s.workers.Login(req.DisplayName)
	return LoginResponse{Token: token, Worker: FromWorker(identity)}
}

// Workers lists the known worker sessions.
func (s *Service) Workers() WorkerListResponse {
	sessions := s.workers.List()
	out := WorkerListResponse{Workers: make([]WorkerView, 0, len(sessions))}
	for _, identity := range sessions {
		out.Workers = append(out.Workers, FromWorker(identity))
	}
	return out
}

// SubmitJob accepts a new job: encoding options plus the raw source bytes.
func (s *Service) SubmitJob(ctx context.Context, opts SubmitOptions, source io.Reader) (JobView, error) {
	job, err := s.sched.SubmitJob(ctx, ToJobOptions(opts), source)
	if err != nil {
		return JobView{}, err
	}
	return s.describeJob(ctx, job.ID)
}

// ListJobs returns every known job with its aggregated status.
func (s *Service) ListJobs(ctx context.Context) (JobListResponse, error) {
	known, err := s.sched.ListJobs(ctx)
	if err != nil {
		return JobListResponse{}, err
	}
	out := JobListResponse{Jobs: make([]JobView, 0, len(known))}
	for _, job := range known {
		view, err := s.describeJob(ctx, job.ID)
		if err != nil {
			return JobListResponse{}, err
		}
		out.Jobs = append(out.Jobs, view)
	}
	return out, nil
}

// JobStatus returns a job and its full task list.
func (s *Service) JobStatus(ctx context.Context, jobID uuid.UUID) (JobStatusResponse, error) {
	job, tasks, overall, err := s.sched.JobStatus(ctx, jobID)
	if err != nil {
		return JobStatusResponse{}, err
	}
	out := JobStatusResponse{
		Job:   FromJob(job, overall, tasks),
		Tasks: make([]TaskView, 0, len(tasks)),
	}
	for _, task := range tasks {
		out.Tasks = append(out.Tasks, FromTask(task))
	}
	return out, nil
}

func (s *Service) describeJob(ctx context.Context, jobID uuid.UUID) (JobView, error) {
	job, tasks, overall, err := s.sched.JobStatus(ctx, jobID)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job, overall, tasks), nil
}

// CancelJob stops every unfinished task of a job.
func (s *Service) CancelJob(ctx context.Context, jobID uuid.UUID) (CancelResponse, error) {
	cancelled, err := s.sched.CancelJob(ctx, jobID)
	if err != nil {
		return CancelResponse{}, err
	}
	return CancelResponse{Cancelled: cancelled}, nil
}

// OpenJobOutput returns a seekable reader over a finished job's output.
// Returns scheduler.ErrNoTask while the job has not completed.
func (s *Service) OpenJobOutput(ctx context.Context, jobID uuid.UUID) (io.ReadSeekCloser, error) {
	key, err := s.sched.JobOutput(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.content.Open(key)
}

// Allocate grants the oldest ready task to the calling worker, blocking up
// to the configured wait when nothing is ready.
func (s *Service) Allocate(ctx context.Context, worker registry.WorkerIdentity) (AllocateResponse, error) {
	task, err := s.sched.Allocate(ctx, worker.ID)
	if err != nil {
		return AllocateResponse{}, err
	}
	s.workers.SetCurrentTask(worker.ID, task.ID)

	out := AllocateResponse{
		Task:    FromTask(task),
		RunID:   task.RunID.String(),
		Encoder: fromEncoder(task.Recipe.Encoder),
	}
	if task.LeaseExpiry != nil {
		out.LeaseExpiry = task.LeaseExpiry.UTC().Format(dateTimeFormat)
	}
	return out, nil
}

// OpenTaskInput resolves and opens one input stream of a task: the job
// source for source inputs, the producing task's output otherwise.
func (s *Service) OpenTaskInput(ctx context.Context, taskID uuid.UUID, index int) (io.ReadSeekCloser, error) {
	task, err := s.sched.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(task.Inputs) {
		return nil, fmt.Errorf("%w: task %s has no input %d", jobs.ErrNotFound, taskID, index)
	}
	in := task.Inputs[index]
	if in.FromSource() {
		return s.content.Open(storage.SourceKey(task.JobID))
	}
	return s.content.Open(storage.OutputKey(task.JobID, in.Task))
}

// OpenTaskOutput returns a seekable reader over one task's stored output.
// Returns storage.ErrNotFound while no output has been uploaded.
func (s *Service) OpenTaskOutput(ctx context.Context, taskID uuid.UUID) (io.ReadSeekCloser, error) {
	task, err := s.sched.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.content.Open(storage.OutputKey(task.JobID, task.ID))
}

// PutTaskOutput streams a worker's result into the content store. The write
// is durable before this returns; only then may the worker report success.
func (s *Service) PutTaskOutput(ctx context.Context, taskID uuid.UUID, body io.Reader) (int64, error) {
	task, err := s.sched.GetTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return s.content.Put(storage.OutputKey(task.JobID, task.ID), body)
}

// ReportStatus applies a worker's verdict on its grant.
func (s *Service) ReportStatus(ctx context.Context, worker registry.WorkerIdentity, taskID uuid.UUID, report StatusReport) (TaskView, error) {
	runID, err := uuid.Parse(report.RunID)
	if err != nil {
		return TaskView{}, fmt.Errorf("%w: malformed run id", jobs.ErrValidation)
	}

	var task *jobs.Task
	if report.Success {
		task, err = s.sched.Complete(ctx, taskID, worker.ID, runID, report.DurationSeconds)
	} else {
		reason := report.Error
		if reason == "" {
			reason = "worker reported failure"
		}
		task, err = s.sched.Fail(ctx, taskID, worker.ID, runID, reason)
	}
	if err != nil {
		return TaskView{}, err
	}
	s.workers.SetCurrentTask(worker.ID, uuid.Nil)
	return FromTask(task), nil
}

// RenewLease extends the lease on a live grant.
func (s *Service) RenewLease(ctx context.Context, worker registry.WorkerIdentity, taskID uuid.UUID, req RenewRequest) (RenewResponse, error) {
	runID, err := uuid.Parse(req.RunID)
	if err != nil {
		return RenewResponse{}, fmt.Errorf("%w: malformed run id", jobs.ErrValidation)
	}
	expiry, err := s.sched.Renew(ctx, taskID, worker.ID, runID)
	if err != nil {
		return RenewResponse{}, err
	}
	return RenewResponse{LeaseExpiry: expiry.UTC().Format(dateTimeFormat)}, nil
}

// CancelTask stops or restarts one task.
func (s *Service) CancelTask(ctx context.Context, taskID uuid.UUID, restart bool) (TaskView, error) {
	task, err := s.sched.CancelTask(ctx, taskID, restart)
	if err != nil {
		return TaskView{}, err
	}
	return FromTask(task), nil
}
