// Package logging provides slog-based structured logging for tenderlist.
//
// Two handlers are offered: a human-readable console handler that renders
// the component attribute as a message prefix, and a JSON handler for
// machine consumption. Context helpers propagate item, job, and stage
// identifiers into every log line emitted during pipeline processing.
package logging
