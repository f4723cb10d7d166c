package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// VersionInfo identifies the running daemon. Served without authentication.
type VersionInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// LoginRequest opens a worker session.
type LoginRequest struct {
	DisplayName string `json:"displayName"`
}

// LoginResponse carries the capability token a worker presents on every
// later call, plus the identity it was minted for.
type LoginResponse struct {
	Token  string     `json:"token"`
	Worker WorkerView `json:"worker"`
}

// WorkerView describes an authenticated worker session.
type WorkerView struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	LastSeen    string `json:"lastSeen,omitempty"`
	CurrentTask string `json:"currentTask,omitempty"`
}

// WorkerListResponse wraps the known worker sessions.
type WorkerListResponse struct {
	Workers []WorkerView `json:"workers"`
}

// SubmitOptions are the encoding settings accepted on job submission.
type SubmitOptions struct {
	VideoCodec     string   `json:"videoCodec"`
	VideoParams    []string `json:"videoParams,omitempty"`
	AudioCodec     string   `json:"audioCodec,omitempty"`
	AudioParams    []string `json:"audioParams,omitempty"`
	SegmentSeconds float64  `json:"segmentSeconds,omitempty"`
}

// JobView describes a job in a transport-friendly format.
type JobView struct {
	ID             string        `json:"id"`
	Status         string        `json:"status"`
	Options        SubmitOptions `json:"options"`
	ErrorMessage   string        `json:"errorMessage,omitempty"`
	CreatedAt      string        `json:"createdAt,omitempty"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
	TasksTotal     int           `json:"tasksTotal"`
	TasksCompleted int           `json:"tasksCompleted"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobStatusResponse pairs a job with its full task list.
type JobStatusResponse struct {
	Job   JobView    `json:"job"`
	Tasks []TaskView `json:"tasks"`
}

// TaskView describes one task of a job.
type TaskView struct {
	ID           string      `json:"id"`
	JobID        string      `json:"jobId"`
	Kind         string      `json:"kind"`
	State        string      `json:"state"`
	Attempts     int         `json:"attempts"`
	Inputs       []InputView `json:"inputs"`
	Concatenate  []string    `json:"concatenate,omitempty"`
	WorkerID     string      `json:"workerId,omitempty"`
	LeaseExpiry  string      `json:"leaseExpiry,omitempty"`
	Duration     *float64    `json:"durationSeconds,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	CreatedAt    string      `json:"createdAt,omitempty"`
	UpdatedAt    string      `json:"updatedAt,omitempty"`
}

// InputView describes one input stream of a task. FromSource inputs read
// the job upload; the rest read the named task's output. Start and End trim
// the stream in seconds, with a nil End meaning the remainder.
type InputView struct {
	Index      int      `json:"index"`
	FromSource bool     `json:"fromSource"`
	Task       string   `json:"task,omitempty"`
	Start      *float64 `json:"start,omitempty"`
	End        *float64 `json:"end,omitempty"`
}

// AllocateResponse is a granted task. RunID must be echoed on every report
// about this grant; reports carrying an older run id are rejected.
type AllocateResponse struct {
	Task        TaskView     `json:"task"`
	RunID       string       `json:"runId"`
	LeaseExpiry string       `json:"leaseExpiry"`
	Encoder     *EncoderView `json:"encoder,omitempty"`
}

// EncoderView carries the codec settings a transcode task applies.
type EncoderView struct {
	Video OptionsView  `json:"video"`
	Audio *OptionsView `json:"audio,omitempty"`
}

// OptionsView is one codec plus its free-form parameters.
type OptionsView struct {
	Codec  string   `json:"codec"`
	Params []string `json:"params,omitempty"`
}

// StatusReport is a worker's verdict on its granted task.
type StatusReport struct {
	RunID           string   `json:"runId"`
	Success         bool     `json:"success"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// RenewRequest identifies the grant whose lease should be extended.
type RenewRequest struct {
	RunID string `json:"runId"`
}

// RenewResponse carries the new lease expiry.
type RenewResponse struct {
	LeaseExpiry string `json:"leaseExpiry"`
}

// CancelResponse reports how many tasks a job cancellation stopped.
type CancelResponse struct {
	Cancelled int64 `json:"cancelled"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
