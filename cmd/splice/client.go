package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"splice/internal/api"
)

// client is a thin typed wrapper over the daemon's HTTP API.
type client struct {
	base  string
	token string
	http  *http.Client
}

func newClient(base, token string) *client {
	return &client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s: %w", c.base, err)
	}
	return resp, nil
}

func (c *client) doJSON(ctx context.Context, method, path string, body io.Reader, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var payload api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon: %s (HTTP %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("daemon returned HTTP %d", resp.StatusCode)
}

func (c *client) version(ctx context.Context) (api.VersionInfo, error) {
	var info api.VersionInfo
	err := c.doJSON(ctx, http.MethodGet, "/api/version", nil, &info)
	return info, err
}

func (c *client) submitJob(ctx context.Context, opts api.SubmitOptions, source io.Reader) (api.JobView, error) {
	query := url.Values{}
	query.Set("videoCodec", opts.VideoCodec)
	for _, param := range opts.VideoParams {
		query.Add("videoParam", param)
	}
	if opts.AudioCodec != "" {
		query.Set("audioCodec", opts.AudioCodec)
	}
	for _, param := range opts.AudioParams {
		query.Add("audioParam", param)
	}
	if opts.SegmentSeconds > 0 {
		query.Set("segmentSeconds", strconv.FormatFloat(opts.SegmentSeconds, 'f', -1, 64))
	}

	var job api.JobView
	err := c.doJSON(ctx, http.MethodPost, "/api/jobs?"+query.Encode(), source, &job)
	return job, err
}

func (c *client) listJobs(ctx context.Context) (api.JobListResponse, error) {
	var list api.JobListResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/jobs", nil, &list)
	return list, err
}

func (c *client) jobStatus(ctx context.Context, jobID string) (api.JobStatusResponse, error) {
	var status api.JobStatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), nil, &status)
	return status, err
}

func (c *client) cancelJob(ctx context.Context, jobID string) (api.CancelResponse, error) {
	var resp api.CancelResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(jobID)+"/cancel", nil, &resp)
	return resp, err
}

func (c *client) cancelTask(ctx context.Context, taskID string, restart bool) (api.TaskView, error) {
	path := "/api/tasks/" + url.PathEscape(taskID) + "/cancel"
	if restart {
		path += "?restart=true"
	}
	var view api.TaskView
	err := c.doJSON(ctx, http.MethodPost, path, nil, &view)
	return view, err
}

func (c *client) workers(ctx context.Context) (api.WorkerListResponse, error) {
	var list api.WorkerListResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/workers", nil, &list)
	return list, err
}

// jobOutput streams a finished job's output into w.
func (c *client) jobOutput(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID)+"/output", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, apiError(resp)
	}
	return io.Copy(w, resp.Body)
}
