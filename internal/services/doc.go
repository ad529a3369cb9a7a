// Package services defines shared utilities consumed by the pipeline stages
// and external provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job identifiers, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure messages
//     consistent across capture, extraction, transcription, and detection.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
