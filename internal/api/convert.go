package api

import (
	"github.com/google/uuid"

	"splice/internal/jobs"
	"splice/internal/media"
	"splice/internal/registry"
)

// FromJob converts a job record and its aggregated status to the API
// representation.
func FromJob(job *jobs.Job, overall jobs.OverallStatus, tasks []*jobs.Task) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		ID:           job.ID.String(),
		Status:       string(overall),
		Options:      fromJobOptions(job.Options),
		ErrorMessage: job.ErrorMessage,
		TasksTotal:   len(tasks),
	}
	for _, task := range tasks {
		if task.State == jobs.StateCompleted {
			view.TasksCompleted++
		}
	}
	if !job.CreatedAt.IsZero() {
		view.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		view.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return view
}

func fromJobOptions(opts media.JobOptions) SubmitOptions {
	out := SubmitOptions{
		VideoCodec:     opts.Video.Codec,
		VideoParams:    opts.Video.Params,
		SegmentSeconds: opts.SegmentSeconds,
	}
	if opts.Audio != nil {
		out.AudioCodec = opts.Audio.Codec
		out.AudioParams = opts.Audio.Params
	}
	return out
}

// ToJobOptions builds the internal option set from a submission payload.
func ToJobOptions(opts SubmitOptions) media.JobOptions {
	out := media.JobOptions{
		Video:          media.Options{Codec: opts.VideoCodec, Params: opts.VideoParams},
		SegmentSeconds: opts.SegmentSeconds,
	}
	if opts.AudioCodec != "" || len(opts.AudioParams) > 0 {
		out.Audio = &media.Options{Codec: opts.AudioCodec, Params: opts.AudioParams}
	}
	return out
}

// FromTask converts a task record to its API representation.
func FromTask(task *jobs.Task) TaskView {
	if task == nil {
		return TaskView{}
	}
	view := TaskView{
		ID:           task.ID.String(),
		JobID:        task.JobID.String(),
		Kind:         string(task.Recipe.Kind),
		State:        string(task.State),
		Attempts:     task.Attempts,
		Inputs:       fromInputs(task.Inputs),
		Duration:     task.Duration,
		ErrorMessage: task.ErrorMsg,
	}
	for _, id := range task.Recipe.Concatenate {
		view.Concatenate = append(view.Concatenate, id.String())
	}
	if task.WorkerID != uuid.Nil {
		view.WorkerID = task.WorkerID.String()
	}
	if task.LeaseExpiry != nil {
		view.LeaseExpiry = task.LeaseExpiry.UTC().Format(dateTimeFormat)
	}
	if !task.CreatedAt.IsZero() {
		view.CreatedAt = task.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !task.UpdatedAt.IsZero() {
		view.UpdatedAt = task.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return view
}

func fromInputs(inputs []jobs.Input) []InputView {
	out := make([]InputView, 0, len(inputs))
	for i, in := range inputs {
		view := InputView{
			Index:      i,
			FromSource: in.FromSource(),
			Start:      in.Start,
			End:        in.End,
		}
		if !in.FromSource() {
			view.Task = in.Task.String()
		}
		out = append(out, view)
	}
	return out
}

// FromWorker converts a worker session to its API representation.
func FromWorker(identity registry.WorkerIdentity) WorkerView {
	view := WorkerView{
		ID:          identity.ID.String(),
		DisplayName: identity.DisplayName,
	}
	if !identity.LastSeen.IsZero() {
		view.LastSeen = identity.LastSeen.UTC().Format(dateTimeFormat)
	}
	if identity.CurrentTask != uuid.Nil {
		view.CurrentTask = identity.CurrentTask.String()
	}
	return view
}

func fromEncoder(enc *jobs.EncoderOptions) *EncoderView {
	if enc == nil {
		return nil
	}
	view := &EncoderView{
		Video: OptionsView{Codec: enc.Video.Codec, Params: enc.Video.Params},
	}
	if enc.Audio != nil {
		view.Audio = &OptionsView{Codec: enc.Audio.Codec, Params: enc.Audio.Params}
	}
	return view
}
