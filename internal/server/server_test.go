package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/db"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
	"github.com/chulminlee01/mrt-tech-test/internal/server/ratelimit"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// fakeRunner writes a portal page and reports a few progress events
type fakeRunner struct {
	mu    sync.Mutex
	calls []pipeline.RunOptions
	fail  error
}

func (f *fakeRunner) Run(_ context.Context, opts pipeline.RunOptions) (*types.RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()

	result := types.NewRunResult(opts.Job, opts.OutputDir)
	emit := func(step, message string) {
		if opts.OnProgress != nil {
			opts.OnProgress(pipeline.ProgressEvent{Step: step, Category: "step", Message: message, RunID: result.RunID.String()})
		}
	}

	emit("research", "Researching role and market context")
	if f.fail != nil {
		result.AddError(types.StepError{Step: "assignments", Kind: types.ErrorGatewayExhausted, Message: f.fail.Error(), Terminal: true})
		result.Finish(types.RunStatusFailed)
		return result, f.fail
	}
	emit("assignments", "Generating 1 assignment(s)")

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(opts.OutputDir, "index.html"), []byte("<html>portal</html>"), 0644); err != nil {
		return nil, err
	}
	result.AddArtifact(types.ArtifactPortalHTML, "index.html", "portal")
	emit("portal", "Assembling portal")
	result.Finish(types.RunStatusCompleted)
	return result, nil
}

func (f *fakeRunner) lastCall(t *testing.T) pipeline.RunOptions {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

type testServer struct {
	*Server
	runner *fakeRunner
	store  *db.MemoryStore
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()
	cfg := Config{
		OutputRoot: t.TempDir(),
		RateLimit:  &ratelimit.Config{Enabled: false},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	runner := &fakeRunner{}
	store := db.NewMemoryStore()
	srv := New(cfg, runner, store, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Close(ctx)
	})
	return &testServer{Server: srv, runner: runner, store: store}
}

func (ts *testServer) do(t *testing.T, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.RemoteAddr = "192.0.2.10:40000"
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) generate(t *testing.T, req GenerateRequest) GenerateResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/generate", req, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (ts *testServer) waitDone(t *testing.T, jobID string) *db.Job {
	t.Helper()
	id := uuid.MustParse(jobID)
	var job *db.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = ts.store.GetJob(context.Background(), id)
		return err == nil && job != nil && job.Done()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

var iosRequest = GenerateRequest{JobRole: "iOS Developer", JobLevel: "sr", Language: "Korean"}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGenerate_RunsJobAndPublishesPortal(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.generate(t, iosRequest)
	assert.Equal(t, db.JobStatusQueued, resp.Status)
	assert.Equal(t, "/api/status/"+resp.JobID, resp.StatusURL)

	job := ts.waitDone(t, resp.JobID)
	assert.Equal(t, db.JobStatusCompleted, job.Status)
	assert.Equal(t, "Assembling portal", job.Progress)

	call := ts.runner.lastCall(t)
	assert.Equal(t, 1, call.AssignmentCount)
	assert.Equal(t, types.LevelSenior, call.Job.Level)
	assert.Equal(t, types.DefaultCompanyName, call.Job.CompanyName)
	assert.Equal(t, filepath.Join(ts.cfg.OutputRoot, WebOutputDir, resp.JobID), call.OutputDir)

	rec := ts.do(t, http.MethodGet, resp.StatusURL, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, db.JobStatusCompleted, status.Status)
	require.NotNil(t, status.Result)
	assert.Equal(t, "/output/web/"+resp.JobID+"/index.html", status.PortalURL)

	rec = ts.do(t, http.MethodGet, status.PortalURL, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal")
}

func TestGenerate_RequestOptions(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.Models = pipeline.ModelOverrides{Run: "gpt-4o-mini"}
	})

	resp := ts.generate(t, GenerateRequest{
		JobRole: "Backend Developer", JobLevel: "Junior", Language: "English",
		CompanyName: "Acme", Topic: "payments", AssignmentCount: 3, WithDesigner: true,
	})
	ts.waitDone(t, resp.JobID)

	call := ts.runner.lastCall(t)
	assert.Equal(t, 3, call.AssignmentCount)
	assert.True(t, call.WithDesigner)
	assert.Equal(t, "Acme", call.Job.CompanyName)
	assert.Equal(t, "payments", call.Job.Topic)
	assert.Equal(t, "gpt-4o-mini", call.Models.Run)
}

func TestGenerate_Validation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body GenerateRequest
		want string
	}{
		{"missing role", GenerateRequest{JobLevel: "Senior"}, "job_role"},
		{"missing level", GenerateRequest{JobRole: "QA"}, "job_level"},
		{"unknown level", GenerateRequest{JobRole: "QA", JobLevel: "wizard"}, "job_level"},
		{"count too high", GenerateRequest{JobRole: "QA", JobLevel: "Mid", AssignmentCount: 9}, "between 1 and 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/generate", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	jobs, err := ts.store.ListJobs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected requests create no jobs")
}

func TestGenerate_FailedRun(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.runner.fail = errors.New("all model candidates failed")

	resp := ts.generate(t, iosRequest)
	job := ts.waitDone(t, resp.JobID)
	assert.Equal(t, db.JobStatusFailed, job.Status)
	assert.Equal(t, "all model candidates failed", job.Error)
	require.NotNil(t, job.Result)
	assert.Equal(t, types.RunStatusFailed, job.Result.Status)

	rec := ts.do(t, http.MethodGet, resp.StatusURL, nil, nil)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Empty(t, status.PortalURL)
}

func TestStatus_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/status/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/status/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "job not found")

	rec = ts.do(t, http.MethodGet, "/api/status/"+uuid.NewString()+"/stream", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStream_ReplaysProgressThenCompletes(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := ts.generate(t, iosRequest)
	ts.waitDone(t, resp.JobID)

	rec := ts.do(t, http.MethodGet, resp.StreamURL, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event: progress"))
	assert.Contains(t, body, "Researching role and market context")
	assert.Less(t, strings.Index(body, "Researching"), strings.Index(body, "Assembling portal"))
	require.Contains(t, body, "event: complete")
	assert.Contains(t, body, `"status":"completed"`)
}

func TestStream_FinishedJobWithoutHistory(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.runner.fail = errors.New("boom")
	resp := ts.generate(t, iosRequest)
	ts.waitDone(t, resp.JobID)
	ts.progress.remove(uuid.MustParse(resp.JobID))

	rec := ts.do(t, http.MethodGet, resp.StreamURL, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "event: progress")
	assert.Contains(t, body, `"status":"failed"`)
	assert.Contains(t, body, `"error":"boom"`)
}

func TestStream_UnknownToBrokerWhileRunning(t *testing.T) {
	ts := newTestServer(t, nil)
	job := &db.Job{JobSpec: types.JobSpec{Role: "QA", Level: types.LevelMid, Language: "English", CompanyName: "Acme"}}
	require.NoError(t, ts.store.CreateJob(context.Background(), job))
	require.NoError(t, ts.store.MarkRunning(context.Background(), job.ID))

	rec := ts.do(t, http.MethodGet, "/api/status/"+job.ID.String()+"/stream", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListJobs(t *testing.T) {
	ts := newTestServer(t, nil)
	first := ts.generate(t, iosRequest)
	second := ts.generate(t, iosRequest)
	ts.waitDone(t, first.JobID)
	ts.waitDone(t, second.JobID)

	rec := ts.do(t, http.MethodGet, "/api/jobs", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Jobs  []db.Job `json:"jobs"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	rec = ts.do(t, http.MethodGet, "/api/jobs?limit=1", nil, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = ts.do(t, http.MethodGet, "/api/jobs?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOutput_NoDirectoryListing(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(ts.cfg.OutputRoot, WebOutputDir), 0755))

	rec := ts.do(t, http.MethodGet, "/output/web/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/output/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOutput_ServesPortalFiles(t *testing.T) {
	ts := newTestServer(t, nil)
	jobDir := filepath.Join(ts.cfg.OutputRoot, WebOutputDir, "job1")
	require.NoError(t, os.MkdirAll(filepath.Join(jobDir, "datasets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, "index.html"), []byte("<h1>portal</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, "datasets", "bookings.csv"), []byte("id\n1\n"), 0644))

	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
		wantPath string
	}{
		{"index by name", "/output/web/job1/index.html", http.StatusOK, "<h1>portal</h1>", "/output/web/job1/index.html"},
		{"directory with index", "/output/web/job1/", http.StatusOK, "<h1>portal</h1>", "/output/web/job1/"},
		{"directory without slash", "/output/web/job1", http.StatusOK, "<h1>portal</h1>", "/output/web/job1/"},
		{"dataset", "/output/web/job1/datasets/bookings.csv", http.StatusOK, "id\n1\n", "/output/web/job1/datasets/bookings.csv"},
		{"directory without index", "/output/web/job1/datasets/", http.StatusNotFound, "", "/output/web/job1/datasets/"},
		{"missing file", "/output/web/job1/nope.html", http.StatusNotFound, "", "/output/web/job1/nope.html"},
		{"traversal", "/output/../go.mod", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			if tt.wantPath != "" {
				assert.Equal(t, tt.wantPath, resp.Request.URL.Path)
			}
			if tt.wantBody != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestAuth(t *testing.T) {
	jwtCfg := &config.JWTConfig{Secret: testSecret, ExpirationHours: 1}
	ts := newTestServer(t, func(c *Config) { c.JWT = jwtCfg })

	rec := ts.do(t, http.MethodPost, "/api/generate", iosRequest, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")

	token, err := NewJWTService(jwtCfg).GenerateToken("recruiter@example.com")
	require.NoError(t, err)
	auth := http.Header{"Authorization": []string{"Bearer " + token}}

	rec = ts.do(t, http.MethodPost, "/api/generate", iosRequest, auth)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	job := ts.waitDone(t, resp.JobID)
	assert.Equal(t, "recruiter@example.com", job.Subject)
}

func TestRateLimitOnGenerate(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.RateLimit = &ratelimit.Config{
			Enabled:         true,
			DefaultLimit:    100,
			DefaultWindow:   time.Minute,
			EndpointConfigs: ratelimit.DefaultEndpointConfigs(1),
		}
	})

	first := ts.generate(t, iosRequest)
	rec := ts.do(t, http.MethodPost, "/api/generate", iosRequest, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	ts.waitDone(t, first.JobID)

	rec = ts.do(t, http.MethodGet, first.StatusURL, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads use the default limit")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodOptions, "/api/generate", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(&ErrValidation{Field: "job_role", Message: "is required"}))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(&ErrJobNotFound{JobID: uuid.New()}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("db down")))
	assert.Equal(t, "validation error: job_role - is required", (&ErrValidation{Field: "job_role", Message: "is required"}).Error())
}
