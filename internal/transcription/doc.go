// Package transcription converts extracted audio into per-sentence
// transcripts. Providers are tried in configured order and a deterministic
// mock provider terminates the chain, so the stage degrades instead of
// failing the job.
package transcription
