package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"tenderlist/internal/daemonctl"
	"tenderlist/internal/queue"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the tenderlistd daemon",
	}

	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))

	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Launch tenderlistd in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if client, err := daemonctl.Connect(ctx.socketPath()); err == nil {
				client.Close()
				fmt.Fprintln(out, "Daemon already running")
				return nil
			} else if !errors.Is(err, daemonctl.ErrNotRunning) {
				return err
			}

			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			launchArgs := []string{}
			if ctx.configFlag != nil && *ctx.configFlag != "" {
				launchArgs = append(launchArgs, "--config", *ctx.configFlag)
			}
			launch := exec.Command(exe, launchArgs...)
			launch.Stdout = nil
			launch.Stderr = nil
			if err := launch.Start(); err != nil {
				return fmt.Errorf("launch %s: %w", exe, err)
			}
			if err := launch.Process.Release(); err != nil {
				return fmt.Errorf("detach daemon process: %w", err)
			}

			fmt.Fprintln(out, "Daemon launching...")
			client, err := daemonctl.WaitForSocket(ctx.socketPath(), 10*time.Second)
			if err != nil {
				return fmt.Errorf("daemon did not become ready: %w", err)
			}
			client.Close()
			fmt.Fprintln(out, "Daemon started")
			return nil
		},
	}
}

// daemonExecutable locates tenderlistd next to the CLI binary, falling back
// to PATH lookup.
func daemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "tenderlistd")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("tenderlistd")
	if err != nil {
		return "", errors.New("tenderlistd binary not found next to tenderlist or on PATH")
	}
	return path, nil
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := daemonctl.Status(ctx.socketPath())
			if errors.Is(err, daemonctl.ErrNotRunning) {
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"running": false})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			runningKind := statusOK
			if !resp.Running {
				runningKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Workflow", runningKind, fmt.Sprintf("running=%s pid=%d", yesNo(resp.Running), resp.PID), colorize))
			if resp.LastError != "" {
				fmt.Fprintln(out, renderStatusLine("Last error", statusError, resp.LastError, colorize))
			}
			if resp.LastJobID != "" {
				fmt.Fprintln(out, renderStatusLine("Last job", statusInfo, fmt.Sprintf("%s (%s)", resp.LastJobID, resp.LastStatus), colorize))
			}

			if len(resp.StageHealth) > 0 {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Stages", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, stage := range resp.StageHealth {
					kind := statusOK
					if !stage.Ready {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(stage.Name, kind, stage.Detail, colorize))
				}
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(out, line)
			}
			rows := buildQueueStatsRows(resp.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}
			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of formatted text")
	return cmd
}

// buildQueueStatsRows orders rows by pipeline position, with unknown statuses
// appended alphabetically.
func buildQueueStatsRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(stats))
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		if count, ok := stats[string(status)]; ok && count > 0 {
			rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
			seen[string(status)] = true
		}
	}
	extra := make([]string, 0)
	for status, count := range stats {
		if !seen[status] && count > 0 {
			extra = append(extra, status)
		}
	}
	sort.Strings(extra)
	for _, status := range extra {
		rows = append(rows, []string{status, fmt.Sprintf("%d", stats[status])})
	}
	return rows
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the tenderlistd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stopped, err := daemonctl.Stop(ctx.socketPath())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !stopped {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			fmt.Fprintln(out, "Daemon stopping")
			return nil
		},
	}
}
