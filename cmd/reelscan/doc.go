// Package main hosts the Reelscan CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the reelscand API: job submission, result inspection, job
// listing, daemon status, and configuration scaffolding. It centralizes
// configuration resolution and API endpoint discovery so subcommands can
// focus on presentation.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
