package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"reelscan/internal/config"
	"reelscan/internal/jobs"
	"reelscan/internal/media/capture"
	"reelscan/internal/testsupport"
)

// recordingSubmitter registers jobs without running a pipeline.
type recordingSubmitter struct {
	store   *jobs.Store
	dataDir string
}

func (r *recordingSubmitter) Submit(ctx context.Context, videoURL string) (*jobs.Job, error) {
	if err := capture.ValidateURL(videoURL); err != nil {
		return nil, err
	}
	job, err := r.store.NewJob(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	if _, err := jobs.EnsureJobDir(r.dataDir, job.ID); err != nil {
		return nil, err
	}
	return job, nil
}

func newTestServer(t *testing.T) (*Server, *jobs.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	submitter := &recordingSubmitter{store: store, dataDir: cfg.Paths.DataDir}
	return NewServer(cfg, store, submitter, nil), store, cfg
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeAcceptsValidURL(t *testing.T) {
	server, store, _ := newTestServer(t)

	rec := postJSON(t, server.Handler(), "/api/analyze", `{"url": "https://videos.example.com/watch?v=abc"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("response must carry a job id")
	}

	if _, err := store.GetByID(context.Background(), resp.ID); err != nil {
		t.Fatalf("job not registered: %v", err)
	}
}

func TestAnalyzeRejectsInvalidURLWithoutAllocation(t *testing.T) {
	server, store, _ := newTestServer(t)

	rec := postJSON(t, server.Handler(), "/api/analyze", `{"url": "ftp://example.com/v"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	listed, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 0 {
		t.Fatal("rejected submission must not allocate a job")
	}
}

func TestAnalyzeRejectsMalformedBody(t *testing.T) {
	server, _, _ := newTestServer(t)
	rec := postJSON(t, server.Handler(), "/api/analyze", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAnalyzeRequiresPost(t *testing.T) {
	server, _, _ := newTestServer(t)
	rec := get(t, server.Handler(), "/api/analyze")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestResultUnknownJob(t *testing.T) {
	server, _, _ := newTestServer(t)
	rec := get(t, server.Handler(), "/api/results/no-such-id")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestResultRunningJob(t *testing.T) {
	server, store, _ := newTestServer(t)

	job, err := store.NewJob(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	job.Status = jobs.StatusRunning
	job.Stage = "transcription"
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	rec := get(t, server.Handler(), "/api/results/"+job.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp resultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != jobs.StatusRunning || resp.Stage != "transcription" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Result != nil || resp.Failure != nil {
		t.Fatal("running job must not carry an outcome")
	}
}

func TestResultCompletedJob(t *testing.T) {
	server, store, cfg := newTestServer(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/v")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	envelope := jobs.NewFailureEnvelope(&jobs.Failure{
		JobID:    job.ID,
		VideoURL: job.VideoURL,
		Stage:    "capture",
		Message:  "browser failed",
		FailedAt: time.Now().UTC(),
	})
	if err := jobs.WriteEnvelope(cfg.Paths.DataDir, job.ID, envelope); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	job.Status = jobs.StatusFailed
	job.Stage = "capture"
	job.Error = "browser failed"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	rec := get(t, server.Handler(), "/api/results/"+job.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp resultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != jobs.StatusFailed || resp.Failure == nil {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Failure.Message != "browser failed" {
		t.Fatalf("failure = %+v", resp.Failure)
	}
}

func TestJobsListing(t *testing.T) {
	server, store, _ := newTestServer(t)
	ctx := context.Background()

	if _, err := store.NewJob(ctx, "https://example.com/one"); err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := store.NewJob(ctx, "https://example.com/two"); err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	rec := get(t, server.Handler(), "/api/jobs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp jobListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("jobs = %+v", resp.Jobs)
	}
}

func TestJobsListingStatusFilter(t *testing.T) {
	server, store, _ := newTestServer(t)
	ctx := context.Background()

	if _, err := store.NewJob(ctx, "https://example.com/one"); err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	failed, err := store.NewJob(ctx, "https://example.com/two")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	failed.Status = jobs.StatusFailed
	failed.Error = "capture failed"
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	rec := get(t, server.Handler(), "/api/jobs?status=failed")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp jobListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].ID != failed.ID {
		t.Fatalf("filtered jobs = %+v", resp.Jobs)
	}

	rec = get(t, server.Handler(), "/api/jobs?status=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status filter: status = %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	server, store, _ := newTestServer(t)

	if _, err := store.NewJob(context.Background(), "https://example.com/v"); err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	rec := get(t, server.Handler(), "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Running || resp.Total != 1 || resp.Pending != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestArtifactDownload(t *testing.T) {
	server, store, cfg := newTestServer(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/v")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := jobs.EnsureJobDir(cfg.Paths.DataDir, job.ID); err != nil {
		t.Fatalf("EnsureJobDir: %v", err)
	}
	if err := os.WriteFile(jobs.ScreenshotPath(cfg.Paths.DataDir, job.ID), []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write screenshot: %v", err)
	}

	rec := get(t, server.Handler(), "/data/"+job.ID+"/"+jobs.ScreenshotFile)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "png-bytes" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestArtifactRejectsUnknownNames(t *testing.T) {
	server, store, cfg := newTestServer(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/v")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := jobs.EnsureJobDir(cfg.Paths.DataDir, job.ID); err != nil {
		t.Fatalf("EnsureJobDir: %v", err)
	}

	for _, path := range []string{
		"/data/" + job.ID + "/secrets.txt",
		"/data/" + job.ID,
		"/data/no-such-job/" + jobs.ScreenshotFile,
	} {
		rec := get(t, server.Handler(), path)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
	}
}
