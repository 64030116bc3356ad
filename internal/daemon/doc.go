// Package daemon hosts the long-running tenderlist process. It owns the
// singleton file lock, starts and stops the workflow manager, and exposes
// the queue maintenance operations served over IPC.
package daemon
