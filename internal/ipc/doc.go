// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// The surface is deliberately small: daemon status, queue and database
// health, log tailing, and stop. Queue mutations go through the store
// directly; the socket only carries what requires the live process.
package ipc
