package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reelscan/internal/config"
)

func writeAudioFixture(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("First point. Second point! Is there a third? trailing fragment")
	want := []string{"First point.", "Second point!", "Is there a third?", "trailing fragment"}
	if len(sentences) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(sentences), len(want), sentences)
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Fatalf("sentence %d = %q, want %q", i, sentences[i], want[i])
		}
	}
}

func TestSentencesFromWords(t *testing.T) {
	words := []Word{
		{Text: "Hello", Start: 0.0, End: 0.4},
		{Text: "there.", Start: 0.5, End: 0.9},
		{Text: "How", Start: 1.2, End: 1.5},
		{Text: "are", Start: 1.6, End: 1.8},
		{Text: "you?", Start: 1.9, End: 2.3},
	}
	sentences := sentencesFromWords(words)
	if len(sentences) != 2 {
		t.Fatalf("got %d sentences: %+v", len(sentences), sentences)
	}
	if sentences[0].Text != "Hello there." || sentences[0].Start != 0.0 || sentences[0].End != 0.9 {
		t.Fatalf("first sentence = %+v", sentences[0])
	}
	if sentences[1].Text != "How are you?" || sentences[1].Start != 1.2 || sentences[1].End != 2.3 {
		t.Fatalf("second sentence = %+v", sentences[1])
	}
	if sentences[1].Index != 1 {
		t.Fatalf("index = %d", sentences[1].Index)
	}
}

func TestScribeAttempt(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("model_id"); got != "scribe_v1" {
			t.Errorf("model_id = %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("form file: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"language_code": "en",
			"language_probability": 0.97,
			"text": "Welcome back. Today we review headphones.",
			"words": [
				{"text": "Welcome", "start": 0.1, "end": 0.5, "type": "word"},
				{"text": " ", "start": 0.5, "end": 0.6, "type": "spacing"},
				{"text": "back.", "start": 0.6, "end": 1.0, "type": "word"},
				{"text": "Today", "start": 1.4, "end": 1.8, "type": "word"},
				{"text": "we", "start": 1.9, "end": 2.0, "type": "word"},
				{"text": "review", "start": 2.1, "end": 2.5, "type": "word"},
				{"text": "headphones.", "start": 2.6, "end": 3.2, "type": "word"}
			]
		}`))
	}))
	defer server.Close()

	provider := NewScribeProvider(ScribeConfig{APIKey: "test-key", BaseURL: server.URL})
	transcript, err := provider.Attempt(context.Background(), writeAudioFixture(t, 4096))
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if gotKey != "test-key" {
		t.Fatalf("xi-api-key = %q", gotKey)
	}
	if transcript.Provider != "scribe" || transcript.Language != "en" {
		t.Fatalf("transcript header = %+v", transcript)
	}
	if len(transcript.Sentences) != 2 {
		t.Fatalf("sentences = %+v", transcript.Sentences)
	}
	if transcript.Sentences[0].Text != "Welcome back." {
		t.Fatalf("first sentence = %q", transcript.Sentences[0].Text)
	}
	if transcript.Duration != 3.2 {
		t.Fatalf("duration = %v", transcript.Duration)
	}
}

func TestScribeRequiresAPIKey(t *testing.T) {
	provider := NewScribeProvider(ScribeConfig{BaseURL: "http://localhost"})
	if _, err := provider.Attempt(context.Background(), writeAudioFixture(t, 64)); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestWhisperAttemptSplitsSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "One sentence here. And another one.",
			"language": "english",
			"duration": 6.0,
			"segments": [
				{"id": 0, "start": 0.0, "end": 6.0, "text": "One sentence here. And another one."}
			]
		}`))
	}))
	defer server.Close()

	provider := NewWhisperProvider(WhisperConfig{APIKey: "test-key", BaseURL: server.URL, Model: "whisper-1"})
	transcript, err := provider.Attempt(context.Background(), writeAudioFixture(t, 4096))
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if len(transcript.Sentences) != 2 {
		t.Fatalf("sentences = %+v", transcript.Sentences)
	}
	first, second := transcript.Sentences[0], transcript.Sentences[1]
	if first.Start != 0.0 || second.End != 6.0 {
		t.Fatalf("timing bounds = %+v, %+v", first, second)
	}
	if first.End <= first.Start || second.Start != first.End {
		t.Fatalf("interpolated timing broken: %+v, %+v", first, second)
	}
	if transcript.Duration != 6.0 {
		t.Fatalf("duration = %v", transcript.Duration)
	}
}

func TestWhisperHTTPErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewWhisperProvider(WhisperConfig{APIKey: "test-key", BaseURL: server.URL})
	if _, err := provider.Attempt(context.Background(), writeAudioFixture(t, 64)); err == nil {
		t.Fatal("expected error on http 429")
	}
}

func TestMockProviderDeterministic(t *testing.T) {
	provider := NewMockProvider()

	small, err := provider.Attempt(context.Background(), writeAudioFixture(t, 1024))
	if err != nil {
		t.Fatalf("Attempt small: %v", err)
	}
	if small.Duration != 10 {
		t.Fatalf("small duration = %v, want 10", small.Duration)
	}

	large, err := provider.Attempt(context.Background(), writeAudioFixture(t, 250000))
	if err != nil {
		t.Fatalf("Attempt large: %v", err)
	}
	if large.Duration != 25 {
		t.Fatalf("large duration = %v, want 25", large.Duration)
	}
	if len(large.Sentences) != 1 {
		t.Fatalf("sentences = %+v", large.Sentences)
	}
	sentence := large.Sentences[0]
	if sentence.End < sentence.Start {
		t.Fatalf("sentence timing inverted: %+v", sentence)
	}
	if !large.Synthetic {
		t.Fatal("mock transcript should be marked synthetic")
	}
	if large.Note == "" {
		t.Fatal("synthetic transcript should carry a note")
	}
}

func TestServiceFallsBackToMock(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	cfg := config.Default()
	cfg.Transcription.Providers = []string{"scribe", "whisper"}
	cfg.Transcription.ScribeAPIKey = "key"
	cfg.Transcription.ScribeBaseURL = failing.URL
	cfg.Transcription.WhisperAPIKey = "key"
	cfg.Transcription.WhisperBaseURL = failing.URL

	service, err := NewService(&cfg, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	transcript, err := service.Transcribe(context.Background(), writeAudioFixture(t, 2048))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if transcript.Provider != "mock" {
		t.Fatalf("provider = %q, want mock", transcript.Provider)
	}
	if len(transcript.Sentences) != 1 {
		t.Fatalf("sentences = %+v", transcript.Sentences)
	}
}

func TestServiceRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.Providers = []string{"deepgram"}
	if _, err := NewService(&cfg, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
