// Package logs reads the daemon's log file for the CLI and IPC
// diagnostics.
//
// tenderlistd writes a single structured log (tenderlistd.log) under the
// configured log directory. This package tails it with bounded memory: a
// negative offset yields the last N lines, a non-negative offset resumes a
// follow loop exactly where the previous read stopped, and follow mode
// polls for new lines until the caller's wait or context expires. The IPC
// LogTail call and the CLI's direct-file fallback both go through Tail so
// `tenderlist logs --follow` behaves the same whether or not the daemon is
// reachable.
package logs
