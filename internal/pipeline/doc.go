// Package pipeline drives submitted jobs through capture, audio
// extraction, transcription, and per-sentence classification, persisting
// the outcome for later lookup.
package pipeline
