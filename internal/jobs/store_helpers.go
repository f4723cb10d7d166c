package jobs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"splice/internal/media"
)

const jobColumns = "id, options_json, terminal_task, error_message, created_at, updated_at"

const taskColumns = "id, job_id, seq, recipe_json, inputs_json, state, attempts, worker_id, run_id, lease_expiry, duration_seconds, has_output, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		idRaw       string
		optionsJSON string
		terminalRaw sql.NullString
		errorMsg    sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(&idRaw, &optionsJSON, &terminalRaw, &errorMsg, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idRaw)
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	var opts media.JobOptions
	if err := json.Unmarshal([]byte(optionsJSON), &opts); err != nil {
		return nil, fmt.Errorf("decode job options: %w", err)
	}

	job := &Job{
		ID:           id,
		Options:      opts,
		ErrorMessage: errorMsg.String,
	}
	if terminalRaw.Valid && terminalRaw.String != "" {
		terminal, err := uuid.Parse(terminalRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse terminal task id: %w", err)
		}
		job.TerminalTask = terminal
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		idRaw      string
		jobRaw     string
		seq        int
		recipeJSON string
		inputsJSON string
		stateStr   string
		attempts   int
		workerRaw  sql.NullString
		runRaw     sql.NullString
		leaseRaw   sql.NullString
		duration   sql.NullFloat64
		hasOutput  sql.NullInt64
		errorMsg   sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&idRaw, &jobRaw, &seq, &recipeJSON, &inputsJSON, &stateStr, &attempts,
		&workerRaw, &runRaw, &leaseRaw, &duration, &hasOutput, &errorMsg,
		&createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idRaw)
	if err != nil {
		return nil, fmt.Errorf("parse task id: %w", err)
	}
	jobID, err := uuid.Parse(jobRaw)
	if err != nil {
		return nil, fmt.Errorf("parse task job id: %w", err)
	}

	task := &Task{
		ID:       id,
		JobID:    jobID,
		Seq:      seq,
		State:    State(stateStr),
		Attempts: attempts,
		ErrorMsg: errorMsg.String,
	}
	if err := json.Unmarshal([]byte(recipeJSON), &task.Recipe); err != nil {
		return nil, fmt.Errorf("decode task recipe: %w", err)
	}
	if err := json.Unmarshal([]byte(inputsJSON), &task.Inputs); err != nil {
		return nil, fmt.Errorf("decode task inputs: %w", err)
	}
	if workerRaw.Valid && workerRaw.String != "" {
		worker, err := uuid.Parse(workerRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse worker id: %w", err)
		}
		task.WorkerID = worker
	}
	if runRaw.Valid && runRaw.String != "" {
		run, err := uuid.Parse(runRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse run id: %w", err)
		}
		task.RunID = run
	}
	if leaseRaw.Valid {
		if lease, err := parseTimeString(leaseRaw.String); err == nil {
			task.LeaseExpiry = &lease
		}
	}
	if duration.Valid {
		d := duration.Float64
		task.Duration = &d
	}
	if hasOutput.Valid {
		task.HasOutput = hasOutput.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func encodeJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(data), nil
}
