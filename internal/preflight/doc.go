// Package preflight provides readiness checks for the external binaries
// and filesystem paths the pipeline depends on. The daemon runs them at
// startup and the status command surfaces them to operators.
package preflight
