// Package logging builds the process-wide slog logger.
//
// Two output formats are supported: a key=value console format for
// interactive use and JSON for log shipping. Child loggers carry a
// component attribute and pick up job metadata from the context.
package logging
