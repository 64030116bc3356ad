// Package main hosts the tenderlist CLI entrypoint and command graph.
//
// The Cobra-based command tree covers job submission, queue inspection and
// maintenance, checklist display, daemon control over the IPC socket, log
// tailing, and configuration scaffolding. Queue mutations open the SQLite
// store directly; only daemon lifecycle and log streaming go through IPC.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
