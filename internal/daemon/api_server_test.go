package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"splice/internal/api"
	"splice/internal/config"
	"splice/internal/testsupport"
)

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func startTestAPI(t *testing.T, opts ...testsupport.ConfigOption) *apiClient {
	t.Helper()

	opts = append([]testsupport.ConfigOption{
		testsupport.WithAPIToken("admin-token"),
		func(cfg *config.Config) {
			cfg.Scheduler.AllocateWaitSeconds = 0
		},
	}, opts...)
	d := newTestDaemon(t, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})
	return &apiClient{t: t, base: "http://" + d.Addr()}
}

func (c *apiClient) do(method, path string, body io.Reader) *http.Response {
	c.t.Helper()

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *apiClient) doJSON(method, path string, body io.Reader, status int, out any) {
	c.t.Helper()

	resp := c.do(method, path, body)
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != status {
		c.t.Fatalf("%s %s = %d, want %d (body %s)", method, path, resp.StatusCode, status, payload)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			c.t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
}

const submitPath = "/api/jobs?videoCodec=libsvtav1&segmentSeconds=30"

func TestAPIVersionIsAnonymous(t *testing.T) {
	client := startTestAPI(t)

	var info api.VersionInfo
	client.doJSON(http.MethodGet, "/api/version", nil, http.StatusOK, &info)
	if info.Name != "spliced" {
		t.Fatalf("version name = %q, want spliced", info.Name)
	}
}

func TestAPIRejectsMissingToken(t *testing.T) {
	client := startTestAPI(t)

	resp := client.do(http.MethodGet, "/api/jobs", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list = %d, want 401", resp.StatusCode)
	}
}

func TestAPIAdminTokenCannotAllocate(t *testing.T) {
	client := startTestAPI(t)
	client.token = "admin-token"

	resp := client.do(http.MethodPost, "/api/allocate", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("allocate with admin token = %d, want 403", resp.StatusCode)
	}
}

func TestAPIWorkerLifecycle(t *testing.T) {
	client := startTestAPI(t)
	client.token = "admin-token"

	var job api.JobView
	client.doJSON(http.MethodPost, submitPath, strings.NewReader("raw source bytes"), http.StatusCreated, &job)
	if job.Status != "pending" {
		t.Fatalf("fresh job status = %q", job.Status)
	}

	worker := &apiClient{t: t, base: client.base}
	var login api.LoginResponse
	worker.doJSON(http.MethodPost, "/api/login", strings.NewReader(`{"displayName":"encoder-1"}`), http.StatusOK, &login)
	if login.Token == "" {
		t.Fatal("login minted no token")
	}
	worker.token = login.Token

	var grant api.AllocateResponse
	worker.doJSON(http.MethodPost, "/api/allocate", nil, http.StatusOK, &grant)
	if grant.Task.Kind != "analysis" {
		t.Fatalf("first grant kind = %q, want analysis", grant.Task.Kind)
	}

	// Input 0 is the raw job source, range requests included.
	inputPath := fmt.Sprintf("/api/tasks/%s/input/0", grant.Task.ID)
	resp := worker.do(http.MethodGet, inputPath, nil)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(data) != "raw source bytes" {
		t.Fatalf("input fetch = %d %q", resp.StatusCode, data)
	}

	req, _ := http.NewRequest(http.MethodGet, worker.base+inputPath, nil)
	req.Header.Set("Authorization", "Bearer "+worker.token)
	req.Header.Set("Range", "bytes=4-9")
	ranged, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("range request: %v", err)
	}
	rangedData, _ := io.ReadAll(ranged.Body)
	ranged.Body.Close()
	if ranged.StatusCode != http.StatusPartialContent || string(rangedData) != "source" {
		t.Fatalf("range fetch = %d %q, want 206 \"source\"", ranged.StatusCode, rangedData)
	}

	// Success without a stored output is rejected.
	report := fmt.Sprintf(`{"runId":%q,"success":true,"durationSeconds":45}`, grant.RunID)
	resp = worker.do(http.MethodPost, "/api/tasks/"+grant.Task.ID+"/status", strings.NewReader(report))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("report without output = %d, want 409", resp.StatusCode)
	}

	resp = worker.do(http.MethodPut, "/api/tasks/"+grant.Task.ID+"/output", bytes.NewReader([]byte("probe")))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("output upload = %d, want 204", resp.StatusCode)
	}

	resp = client.do(http.MethodGet, "/api/tasks/"+grant.Task.ID+"/output", nil)
	fetched, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(fetched) != "probe" {
		t.Fatalf("output fetch = %d %q, want 200 \"probe\"", resp.StatusCode, fetched)
	}

	var done api.TaskView
	worker.doJSON(http.MethodPost, "/api/tasks/"+grant.Task.ID+"/status", strings.NewReader(report), http.StatusOK, &done)
	if done.State != "completed" {
		t.Fatalf("task state = %q, want completed", done.State)
	}

	var status api.JobStatusResponse
	client.doJSON(http.MethodGet, "/api/jobs/"+job.ID, nil, http.StatusOK, &status)
	// 45s at 30s segments expands into 2 transcodes and a merge.
	if len(status.Tasks) != 4 {
		t.Fatalf("task count after expansion = %d, want 4", len(status.Tasks))
	}

	// Transcode outputs do not exist until a worker uploads them.
	for _, task := range status.Tasks {
		if task.Kind != "transcode" {
			continue
		}
		resp = client.do(http.MethodGet, "/api/tasks/"+task.ID+"/output", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("unwritten output fetch = %d, want 404", resp.StatusCode)
		}
		break
	}
}

func TestAPISubmitRejectsBadSegmentSeconds(t *testing.T) {
	client := startTestAPI(t)
	client.token = "admin-token"

	resp := client.do(http.MethodPost, "/api/jobs?videoCodec=libsvtav1&segmentSeconds=abc", strings.NewReader("source"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("submit with bad segmentSeconds = %d, want 400", resp.StatusCode)
	}

	var list api.JobListResponse
	client.doJSON(http.MethodGet, "/api/jobs", nil, http.StatusOK, &list)
	if len(list.Jobs) != 0 {
		t.Fatalf("rejected submission created %d jobs", len(list.Jobs))
	}
}

func TestAPIAllocateEmptyQueueBacksOff(t *testing.T) {
	client := startTestAPI(t)

	worker := &apiClient{t: t, base: client.base}
	var login api.LoginResponse
	worker.doJSON(http.MethodPost, "/api/login", nil, http.StatusOK, &login)
	worker.token = login.Token

	resp := worker.do(http.MethodPost, "/api/allocate", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("allocate on empty queue = %d, want 503", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("503 without Retry-After")
	}
}

func TestAPIJobOutputNotReady(t *testing.T) {
	client := startTestAPI(t)
	client.token = "admin-token"

	var job api.JobView
	client.doJSON(http.MethodPost, submitPath, strings.NewReader("source"), http.StatusCreated, &job)

	resp := client.do(http.MethodGet, "/api/jobs/"+job.ID+"/output", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("output of unfinished job = %d, want 503", resp.StatusCode)
	}
}

func TestAPIUnknownJobIs404(t *testing.T) {
	client := startTestAPI(t)
	client.token = "admin-token"

	resp := client.do(http.MethodGet, "/api/jobs/5a7ec0bb-55d6-44a2-a1fc-0ac934e7e7b7", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown job = %d, want 404", resp.StatusCode)
	}
}
