// Package config loads, normalizes, and validates the TOML configuration that
// drives the daemon: directories, bind address, external tool binaries, and
// the ordered provider chains for transcription and detection.
//
// Provider selection is resolved here once at load time; call sites never
// consult the process environment.
package config
