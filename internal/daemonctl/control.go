// Package daemonctl gives the CLI a thin control surface over a running
// tenderlistd process through its IPC socket.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"tenderlist/internal/ipc"
)

// ErrNotRunning indicates no daemon is listening on the socket.
var ErrNotRunning = errors.New("tenderlist daemon is not running")

// Connect dials the daemon socket, mapping connection failures to
// ErrNotRunning so commands can print a friendly message.
func Connect(socketPath string) (*ipc.Client, error) {
	if strings.TrimSpace(socketPath) == "" {
		return nil, fmt.Errorf("%w: socket path not configured", ErrNotRunning)
	}
	if _, err := os.Stat(socketPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotRunning
		}
		return nil, fmt.Errorf("stat daemon socket: %w", err)
	}
	client, err := ipc.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return client, nil
}

// Status fetches daemon status, or ErrNotRunning when the socket is dead.
func Status(socketPath string) (*ipc.StatusResponse, error) {
	client, err := Connect(socketPath)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.Status()
}

// Stop asks a running daemon to stop processing. Missing daemon is not an
// error: the desired state is already true.
func Stop(socketPath string) (bool, error) {
	client, err := Connect(socketPath)
	if err != nil {
		if errors.Is(err, ErrNotRunning) {
			return false, nil
		}
		return false, err
	}
	defer client.Close()
	resp, err := client.Stop()
	if err != nil {
		return false, err
	}
	return resp.Stopped, nil
}

// WaitForSocket polls until the daemon socket accepts connections.
func WaitForSocket(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}
