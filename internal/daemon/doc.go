// Package daemon ties the job store, pipeline orchestrator, and HTTP
// gateway into a single lifecycle with flock-based locking to prevent
// multiple concurrent instances.
package daemon
