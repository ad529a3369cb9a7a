package transcription

import (
	"context"
	"os"

	"reelscan/internal/services"
)

const mockProviderName = "mock"

// MockProvider is the terminal transcription provider. It never calls out
// and always produces a transcript, so the pipeline can finish even when
// every real provider is unreachable.
type MockProvider struct{}

// NewMockProvider constructs the terminal provider.
func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Name() string { return mockProviderName }

// Attempt produces a synthetic single-sentence transcript. The duration is
// estimated from the audio file size so downstream timing stays plausible.
func (p *MockProvider) Attempt(_ context.Context, audioPath string) (*Transcript, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcription", "mock", "stat audio file", err)
	}

	duration := float64(info.Size()) / 10000
	if duration < 10 {
		duration = 10
	}

	return &Transcript{
		Provider:  mockProviderName,
		Duration:  duration,
		Synthetic: true,
		Note:      "synthetic transcript: no transcription provider was reachable",
		Sentences: []Sentence{
			{
				Index: 0,
				Text:  "Audio content could not be transcribed by any configured provider.",
				Start: 0,
				End:   duration,
			},
		},
	}, nil
}
