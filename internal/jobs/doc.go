// Package jobs persists analysis jobs. A SQLite index tracks lifecycle
// state for every submitted job; per-job artifacts and the final outcome
// envelope live in a directory named after the job ID.
package jobs
