package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"reelscan/internal/services"
	"reelscan/internal/transcription"
)

// Kind discriminates persisted job outcomes.
type Kind string

const (
	KindResult  Kind = "result"
	KindFailure Kind = "failure"
)

// Envelope is the persisted outcome of a job, either a result or a failure.
type Envelope struct {
	Kind    Kind     `json:"kind"`
	Result  *Result  `json:"result,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// DetectionSummary aggregates the per-sentence classification outcome.
type DetectionSummary struct {
	SentencesScored    int     `json:"sentences_scored"`
	AverageProbability float64 `json:"average_probability"`
}

// Result is the successful outcome of the analysis pipeline.
type Result struct {
	JobID       string                    `json:"job_id"`
	VideoURL    string                    `json:"video_url"`
	Screenshot  string                    `json:"screenshot,omitempty"`
	Audio       string                    `json:"audio,omitempty"`
	Transcript  *transcription.Transcript `json:"transcript"`
	Detection   DetectionSummary          `json:"detection"`
	CompletedAt time.Time                 `json:"completed_at"`
}

// Failure records why a job could not complete.
type Failure struct {
	JobID    string    `json:"job_id"`
	VideoURL string    `json:"video_url"`
	Stage    string    `json:"stage"`
	Message  string    `json:"message"`
	FailedAt time.Time `json:"failed_at"`
}

// NewResultEnvelope wraps a result.
func NewResultEnvelope(result *Result) *Envelope {
	return &Envelope{Kind: KindResult, Result: result}
}

// NewFailureEnvelope wraps a failure.
func NewFailureEnvelope(failure *Failure) *Envelope {
	return &Envelope{Kind: KindFailure, Failure: failure}
}

// Validate checks the envelope's kind and payload agree.
func (e *Envelope) Validate() error {
	switch e.Kind {
	case KindResult:
		if e.Result == nil || e.Failure != nil {
			return errors.New("result envelope must carry exactly a result")
		}
	case KindFailure:
		if e.Failure == nil || e.Result != nil {
			return errors.New("failure envelope must carry exactly a failure")
		}
	default:
		return fmt.Errorf("unknown envelope kind %q", e.Kind)
	}
	return nil
}

// WriteEnvelope persists the envelope to the job's result file. The write
// goes through a temp file and rename so readers never observe a partial
// document.
func WriteEnvelope(dataDir, jobID string, envelope *Envelope) error {
	if err := envelope.Validate(); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}

	dir, err := EnsureJobDir(dataDir, jobID)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ResultFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp result: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp result: %w", err)
	}
	if err := os.Rename(tmpPath, ResultPath(dataDir, jobID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// LoadEnvelope reads a job's persisted outcome. A missing file yields a
// not-found error so callers can distinguish unfinished jobs.
func LoadEnvelope(dataDir, jobID string) (*Envelope, error) {
	data, err := os.ReadFile(ResultPath(dataDir, jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "jobs", "load", "no result for job "+jobID, err)
		}
		return nil, fmt.Errorf("read result: %w", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if err := envelope.Validate(); err != nil {
		return nil, fmt.Errorf("load envelope: %w", err)
	}
	return &envelope, nil
}
