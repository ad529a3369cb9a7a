package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelscan/internal/config"
	"reelscan/internal/detection"
	"reelscan/internal/jobs"
	"reelscan/internal/services"
	"reelscan/internal/testsupport"
	"reelscan/internal/transcription"
)

type fakeCapturer struct {
	err   error
	calls int
}

func (f *fakeCapturer) Capture(_ context.Context, _ string, destPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(destPath, []byte("png"), 0o644)
}

type fakeExtractor struct {
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ string, destPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(destPath, []byte("wav"), 0o644)
}

type fakeTranscriber struct {
	transcript *transcription.Transcript
	err        error
	calls      int
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (*transcription.Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

type fakeClassifier struct {
	verdicts []detection.Verdict
	errs     []error
	calls    int
}

func (f *fakeClassifier) Classify(context.Context, string) (detection.Verdict, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return detection.Verdict{}, f.errs[i]
	}
	if i < len(f.verdicts) {
		return f.verdicts[i], nil
	}
	return detection.Verdict{Probability: 0.5, Provider: "heuristic"}, nil
}

func twoSentenceTranscript() *transcription.Transcript {
	return &transcription.Transcript{
		Provider: "whisper",
		Duration: 8,
		Sentences: []transcription.Sentence{
			{Index: 0, Text: "First sentence.", Start: 0, End: 4},
			{Index: 1, Text: "Second sentence.", Start: 4, End: 8},
		},
	}
}

func newTestOrchestrator(t *testing.T, capturer ScreenshotCapturer, extractor AudioExtractor, transcriber Transcriber, classifier Classifier) (*Orchestrator, *jobs.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	return NewOrchestrator(cfg, nil, store, capturer, extractor, transcriber, classifier), store, cfg
}

func TestSubmitRejectsInvalidURL(t *testing.T) {
	orchestrator, store, _ := newTestOrchestrator(t,
		&fakeCapturer{}, &fakeExtractor{}, &fakeTranscriber{}, &fakeClassifier{})

	_, err := orchestrator.Submit(context.Background(), "ftp://example.com/v")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	listed, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 0 {
		t.Fatal("invalid submission must not allocate a job")
	}
}

func TestSubmitDropsJobWhenDirCreationFails(t *testing.T) {
	orchestrator, store, cfg := newTestOrchestrator(t,
		&fakeCapturer{}, &fakeExtractor{}, &fakeTranscriber{}, &fakeClassifier{})

	// A regular file where the data dir should be makes the job
	// directory creation fail after the row is inserted.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg.Paths.DataDir = blocked

	if _, err := orchestrator.Submit(context.Background(), "https://example.com/v"); err == nil {
		t.Fatal("expected Submit to fail")
	}

	listed, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("index should hold no jobs, got %d", len(listed))
	}
}

func TestPipelineCompletesAndPersistsResult(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []detection.Verdict{
		{Probability: 0.2, Provider: "gptzero"},
		{Probability: 0.6, Provider: "gptzero"},
	}}
	orchestrator, store, cfg := newTestOrchestrator(t,
		&fakeCapturer{}, &fakeExtractor{},
		&fakeTranscriber{transcript: twoSentenceTranscript()}, classifier)

	job, err := orchestrator.Submit(context.Background(), "https://videos.example.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	orchestrator.Wait()

	loaded, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != jobs.StatusCompleted {
		t.Fatalf("status = %q, error = %q", loaded.Status, loaded.Error)
	}

	envelope, err := jobs.LoadEnvelope(cfg.Paths.DataDir, job.ID)
	if err != nil {
		t.Fatalf("LoadEnvelope: %v", err)
	}
	if envelope.Kind != jobs.KindResult {
		t.Fatalf("kind = %q", envelope.Kind)
	}
	result := envelope.Result
	if result.Detection.SentencesScored != 2 {
		t.Fatalf("detection = %+v", result.Detection)
	}
	if diff := result.Detection.AverageProbability - 0.4; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("average = %v", result.Detection.AverageProbability)
	}

	first := result.Transcript.Sentences[0]
	if first.AIProbability == nil || *first.AIProbability != 0.2 || first.DetectionProvider != "gptzero" {
		t.Fatalf("first sentence = %+v", first)
	}
}

func TestCaptureFailureIsFatal(t *testing.T) {
	capturer := &fakeCapturer{err: services.Wrap(services.ErrExternalTool, "capture", "screenshot", "browser failed", nil)}
	extractor := &fakeExtractor{}
	transcriber := &fakeTranscriber{transcript: twoSentenceTranscript()}
	orchestrator, store, cfg := newTestOrchestrator(t, capturer, extractor, transcriber, &fakeClassifier{})

	job, err := orchestrator.Submit(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	orchestrator.Wait()

	loaded, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != jobs.StatusFailed || loaded.Stage != StageCapture {
		t.Fatalf("job = %+v", loaded)
	}
	if extractor.calls != 0 || transcriber.calls != 0 {
		t.Fatal("later stages must not run after a capture failure")
	}

	envelope, err := jobs.LoadEnvelope(cfg.Paths.DataDir, job.ID)
	if err != nil {
		t.Fatalf("LoadEnvelope: %v", err)
	}
	if envelope.Kind != jobs.KindFailure || envelope.Failure.Stage != StageCapture {
		t.Fatalf("envelope = %+v", envelope)
	}
	if envelope.Failure.Message == "" {
		t.Fatal("failure message should be populated")
	}
}

func TestExtractionFailureIsFatal(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("yt-dlp failed")}
	transcriber := &fakeTranscriber{transcript: twoSentenceTranscript()}
	orchestrator, store, cfg := newTestOrchestrator(t, &fakeCapturer{}, extractor, transcriber, &fakeClassifier{})

	job, err := orchestrator.Submit(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	orchestrator.Wait()

	loaded, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != jobs.StatusFailed || loaded.Stage != StageAudioExtraction {
		t.Fatalf("job = %+v", loaded)
	}
	if transcriber.calls != 0 {
		t.Fatal("transcription must not run after an extraction failure")
	}

	envelope, err := jobs.LoadEnvelope(cfg.Paths.DataDir, job.ID)
	if err != nil {
		t.Fatalf("LoadEnvelope: %v", err)
	}
	if envelope.Failure.Stage != StageAudioExtraction {
		t.Fatalf("failure = %+v", envelope.Failure)
	}
}

func TestTranscriberErrorIsInternalFault(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("chain returned no transcript")}
	orchestrator, store, cfg := newTestOrchestrator(t,
		&fakeCapturer{}, &fakeExtractor{}, transcriber, &fakeClassifier{})

	job, err := orchestrator.Submit(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	orchestrator.Wait()

	loaded, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != jobs.StatusFailed || loaded.Stage != StageTranscription {
		t.Fatalf("job = %+v", loaded)
	}
	if !strings.Contains(loaded.Error, "internal fault") {
		t.Fatalf("error = %q, want internal fault", loaded.Error)
	}

	envelope, err := jobs.LoadEnvelope(cfg.Paths.DataDir, job.ID)
	if err != nil {
		t.Fatalf("LoadEnvelope: %v", err)
	}
	if envelope.Failure.Stage != StageTranscription {
		t.Fatalf("failure = %+v", envelope.Failure)
	}
}

func TestClassifierErrorIsInternalFault(t *testing.T) {
	classifier := &fakeClassifier{
		verdicts: []detection.Verdict{{}, {Probability: 0.7, Provider: "heuristic"}},
		errs:     []error{errors.New("chain returned no verdict"), nil},
	}
	orchestrator, store, cfg := newTestOrchestrator(t,
		&fakeCapturer{}, &fakeExtractor{},
		&fakeTranscriber{transcript: twoSentenceTranscript()}, classifier)

	job, err := orchestrator.Submit(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	orchestrator.Wait()

	loaded, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != jobs.StatusFailed || loaded.Stage != StageClassification {
		t.Fatalf("job = %+v", loaded)
	}
	if !strings.Contains(loaded.Error, "internal fault") {
		t.Fatalf("error = %q, want internal fault", loaded.Error)
	}

	envelope, err := jobs.LoadEnvelope(cfg.Paths.DataDir, job.ID)
	if err != nil {
		t.Fatalf("LoadEnvelope: %v", err)
	}
	if envelope.Failure.Stage != StageClassification {
		t.Fatalf("failure = %+v", envelope.Failure)
	}
}

func TestJobRunningWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	blockingClassifier := &blockingFakeClassifier{release: release, started: make(chan struct{})}
	orchestrator, store, _ := newTestOrchestrator(t,
		&fakeCapturer{}, &fakeExtractor{},
		&fakeTranscriber{transcript: twoSentenceTranscript()}, blockingClassifier)

	job, err := orchestrator.Submit(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-blockingClassifier.started
	loaded, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != jobs.StatusRunning {
		t.Fatalf("status = %q, want running", loaded.Status)
	}

	close(release)
	orchestrator.Wait()

	loaded, err = store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != jobs.StatusCompleted {
		t.Fatalf("final status = %q", loaded.Status)
	}
}

type blockingFakeClassifier struct {
	release   chan struct{}
	started   chan struct{}
	startOnce bool
}

func (f *blockingFakeClassifier) Classify(context.Context, string) (detection.Verdict, error) {
	if !f.startOnce {
		f.startOnce = true
		close(f.started)
	}
	<-f.release
	return detection.Verdict{Probability: 0.5, Provider: "heuristic"}, nil
}

type gatedCapturer struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedCapturer) Capture(_ context.Context, _ string, destPath string) error {
	g.started <- struct{}{}
	<-g.release
	return os.WriteFile(destPath, []byte("png"), 0o644)
}

func TestSubmittedJobsStartImmediately(t *testing.T) {
	capturer := &gatedCapturer{started: make(chan struct{}, 2), release: make(chan struct{})}

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	orchestrator := NewOrchestrator(cfg, nil, store, capturer, &fakeExtractor{},
		&fakeTranscriber{transcript: twoSentenceTranscript()}, &fakeClassifier{})

	first, err := orchestrator.Submit(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Submit first: %v", err)
	}
	second, err := orchestrator.Submit(context.Background(), "https://example.com/b")
	if err != nil {
		t.Fatalf("Submit second: %v", err)
	}

	// Both executions must reach capture while the gate still blocks the
	// first one, so neither waited on the other.
	for i := 0; i < 2; i++ {
		select {
		case <-capturer.started:
		case <-time.After(5 * time.Second):
			t.Fatalf("job %d never started capture", i+1)
		}
	}

	close(capturer.release)
	orchestrator.Wait()

	for _, id := range []string{first.ID, second.ID} {
		loaded, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID %s: %v", id, err)
		}
		if loaded.Status != jobs.StatusCompleted {
			t.Fatalf("job %s status = %q, want completed", id, loaded.Status)
		}
	}
}
