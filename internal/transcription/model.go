package transcription

import (
	"strings"
	"unicode"
)

// Word is a single timed token within the transcript.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Sentence is one sentence of transcribed speech. The detection fields are
// populated after classification runs.
type Sentence struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words,omitempty"`

	AIProbability     *float64 `json:"ai_probability,omitempty"`
	DetectionProvider string   `json:"detection_provider,omitempty"`
}

// Transcript is the full output of the transcription stage.
type Transcript struct {
	Provider   string     `json:"provider"`
	Model      string     `json:"model,omitempty"`
	Language   string     `json:"language,omitempty"`
	Duration   float64    `json:"duration_seconds"`
	Confidence float64    `json:"confidence,omitempty"`
	Synthetic  bool       `json:"synthetic,omitempty"`
	Note       string     `json:"note,omitempty"`
	Sentences  []Sentence `json:"sentences"`
}

// Text returns the transcript rejoined into a single string.
func (t *Transcript) Text() string {
	parts := make([]string, 0, len(t.Sentences))
	for _, sentence := range t.Sentences {
		if trimmed := strings.TrimSpace(sentence.Text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// splitSentences breaks flowing text on terminal punctuation. The terminator
// stays attached to its sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// sentencesFromWords groups timed words into sentences using terminal
// punctuation, preserving word timings.
func sentencesFromWords(words []Word) []Sentence {
	var sentences []Sentence
	var textBuf strings.Builder
	var group []Word

	flush := func() {
		text := strings.TrimSpace(textBuf.String())
		if text == "" {
			textBuf.Reset()
			group = nil
			return
		}
		sentence := Sentence{
			Index: len(sentences),
			Text:  text,
			Words: group,
		}
		if len(group) > 0 {
			sentence.Start = group[0].Start
			sentence.End = group[len(group)-1].End
		}
		sentences = append(sentences, sentence)
		textBuf.Reset()
		group = nil
	}

	for _, word := range words {
		trimmed := strings.TrimSpace(word.Text)
		if trimmed == "" {
			continue
		}
		if textBuf.Len() > 0 {
			textBuf.WriteByte(' ')
		}
		textBuf.WriteString(trimmed)
		group = append(group, word)
		if endsSentence(trimmed) {
			flush()
		}
	}
	flush()
	return sentences
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRightFunc(word, func(r rune) bool {
		return r == '"' || r == '\'' || r == ')' || unicode.IsSpace(r)
	})
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	return last == '.' || last == '!' || last == '?'
}
