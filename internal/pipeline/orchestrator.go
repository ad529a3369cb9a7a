package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reelscan/internal/config"
	"reelscan/internal/detection"
	"reelscan/internal/jobs"
	"reelscan/internal/logging"
	"reelscan/internal/media/capture"
	"reelscan/internal/services"
	"reelscan/internal/transcription"
)

// Stage names the pipeline steps in execution order.
const (
	StageCapture         = "capture"
	StageAudioExtraction = "audio-extraction"
	StageTranscription   = "transcription"
	StageClassification  = "classification"
)

// ScreenshotCapturer renders the video page and saves a screenshot.
type ScreenshotCapturer interface {
	Capture(ctx context.Context, videoURL, destPath string) error
}

// AudioExtractor downloads the media and produces normalized audio.
type AudioExtractor interface {
	Extract(ctx context.Context, videoURL, workDir, destPath string) error
}

// Transcriber converts audio into a sentence-level transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*transcription.Transcript, error)
}

// Classifier scores one piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (detection.Verdict, error)
}

// Orchestrator accepts job submissions and drives each one through the
// pipeline stages in a background goroutine.
type Orchestrator struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *jobs.Store
	capturer   ScreenshotCapturer
	extractor  AudioExtractor
	transcribe Transcriber
	classify   Classifier

	wg sync.WaitGroup
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	cfg *config.Config,
	logger *slog.Logger,
	store *jobs.Store,
	capturer ScreenshotCapturer,
	extractor AudioExtractor,
	transcriber Transcriber,
	classifier Classifier,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		store:      store,
		capturer:   capturer,
		extractor:  extractor,
		transcribe: transcriber,
		classify:   classifier,
	}
}

// Submit validates the URL, records a pending job, and starts the pipeline
// in the background. It returns as soon as the job is registered.
func (o *Orchestrator) Submit(ctx context.Context, videoURL string) (*jobs.Job, error) {
	if err := capture.ValidateURL(videoURL); err != nil {
		return nil, err
	}

	job, err := o.store.NewJob(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	if _, err := jobs.EnsureJobDir(o.cfg.Paths.DataDir, job.ID); err != nil {
		// A job without a workspace can never run; drop the row so the
		// index does not accumulate permanently pending entries.
		if delErr := o.store.Delete(ctx, job.ID); delErr != nil {
			logging.WithContext(ctx, o.logger).Error("remove stillborn job", logging.Error(delErr))
		}
		return nil, err
	}

	// The pipeline must outlive the submission request, so the background
	// context is detached from the caller's.
	runCtx := services.WithJobID(context.Background(), job.ID)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(runCtx, job)
	}()

	return job, nil
}

// Wait blocks until every submitted job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, job *jobs.Job) {
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("pipeline started", logging.String("url", job.VideoURL))

	dataDir := o.cfg.Paths.DataDir
	screenshotPath := jobs.ScreenshotPath(dataDir, job.ID)
	audioPath := jobs.AudioPath(dataDir, job.ID)

	o.markRunning(ctx, job, StageCapture)
	if err := o.capturer.Capture(services.WithStage(ctx, StageCapture), job.VideoURL, screenshotPath); err != nil {
		o.fail(ctx, job, StageCapture, err)
		return
	}

	o.setStage(ctx, job, StageAudioExtraction)
	workDir := jobs.JobDir(dataDir, job.ID)
	if err := o.extractor.Extract(services.WithStage(ctx, StageAudioExtraction), job.VideoURL, workDir, audioPath); err != nil {
		o.fail(ctx, job, StageAudioExtraction, err)
		return
	}

	o.setStage(ctx, job, StageTranscription)
	transcript, err := o.transcribe.Transcribe(services.WithStage(ctx, StageTranscription), audioPath)
	if err != nil {
		o.internalFault(ctx, job, StageTranscription, err)
		return
	}

	o.setStage(ctx, job, StageClassification)
	summary, err := o.classifySentences(services.WithStage(ctx, StageClassification), transcript)
	if err != nil {
		o.internalFault(ctx, job, StageClassification, err)
		return
	}

	result := &jobs.Result{
		JobID:       job.ID,
		VideoURL:    job.VideoURL,
		Screenshot:  jobs.ScreenshotFile,
		Audio:       jobs.AudioFile,
		Transcript:  transcript,
		Detection:   summary,
		CompletedAt: time.Now().UTC(),
	}
	if err := jobs.WriteEnvelope(dataDir, job.ID, jobs.NewResultEnvelope(result)); err != nil {
		o.internalFault(ctx, job, StageClassification, err)
		return
	}

	job.Status = jobs.StatusCompleted
	job.Stage = ""
	job.Error = ""
	if err := o.store.Update(ctx, job); err != nil {
		logger.Error("mark completed", logging.Error(err))
		return
	}
	logger.Info("pipeline completed",
		logging.Int("sentences", len(transcript.Sentences)),
		logging.Float64("average_probability", summary.AverageProbability))
}

// classifySentences scores each sentence in order. The classifier chain
// ends in an offline heuristic that always produces a verdict, so an error
// here means a fault in reelscan itself rather than a provider outage.
func (o *Orchestrator) classifySentences(ctx context.Context, transcript *transcription.Transcript) (jobs.DetectionSummary, error) {
	var summary jobs.DetectionSummary
	var total float64
	for i := range transcript.Sentences {
		sentence := &transcript.Sentences[i]
		verdict, err := o.classify.Classify(ctx, sentence.Text)
		if err != nil {
			return summary, fmt.Errorf("classify sentence %d: %w", sentence.Index, err)
		}
		prob := verdict.Probability
		sentence.AIProbability = &prob
		sentence.DetectionProvider = verdict.Provider
		summary.SentencesScored++
		total += prob
	}
	if summary.SentencesScored > 0 {
		summary.AverageProbability = total / float64(summary.SentencesScored)
	}
	return summary, nil
}

func (o *Orchestrator) markRunning(ctx context.Context, job *jobs.Job, stage string) {
	job.Status = jobs.StatusRunning
	job.Stage = stage
	if err := o.store.Update(ctx, job); err != nil {
		logging.WithContext(ctx, o.logger).Error("mark running", logging.Error(err))
	}
}

func (o *Orchestrator) setStage(ctx context.Context, job *jobs.Job, stage string) {
	job.Stage = stage
	if err := o.store.Update(ctx, job); err != nil {
		logging.WithContext(ctx, o.logger).Error("record stage", logging.Error(err))
	}
}

// internalFault fails the job for a defect inside reelscan. The provider
// chains end in offline terminals, so an error surfacing from them is the
// same class of fault as an envelope that cannot be written, not an
// external outage.
func (o *Orchestrator) internalFault(ctx context.Context, job *jobs.Job, stage string, cause error) {
	o.fail(ctx, job, stage, fmt.Errorf("internal fault: %w", cause))
}

func (o *Orchestrator) fail(ctx context.Context, job *jobs.Job, stage string, cause error) {
	logger := logging.WithContext(ctx, o.logger)
	logger.Error("pipeline failed",
		logging.String(logging.FieldStage, stage),
		logging.Error(cause))

	failure := &jobs.Failure{
		JobID:    job.ID,
		VideoURL: job.VideoURL,
		Stage:    stage,
		Message:  services.Message(cause),
		FailedAt: time.Now().UTC(),
	}
	if err := jobs.WriteEnvelope(o.cfg.Paths.DataDir, job.ID, jobs.NewFailureEnvelope(failure)); err != nil {
		logger.Error("persist failure", logging.Error(err))
	}

	job.Status = jobs.StatusFailed
	job.Stage = stage
	job.Error = services.Message(cause)
	if err := o.store.Update(ctx, job); err != nil {
		logger.Error("mark failed", logging.Error(err))
	}
}
