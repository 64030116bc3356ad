package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"tenderlist/internal/daemonctl"
	"tenderlist/internal/ipc"
	"tenderlist/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lineCount int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lineCount <= 0 {
				return fmt.Errorf("invalid line count %d", lineCount)
			}

			client, err := daemonctl.Connect(ctx.socketPath())
			if err == nil {
				defer client.Close()
				return streamDaemonLogs(cmd, client, lineCount, follow)
			}
			if !errors.Is(err, daemonctl.ErrNotRunning) {
				return err
			}

			// Daemon is down; read the log file directly.
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "tenderlistd.log")
			result, err := logs.Tail(cmd.Context(), logPath, logs.TailOptions{Offset: -1, Limit: lineCount})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if follow {
				fmt.Fprintln(cmd.ErrOrStderr(), "Daemon is not running; cannot follow")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lineCount, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	return cmd
}

func streamDaemonLogs(cmd *cobra.Command, client *ipc.Client, lineCount int, follow bool) error {
	resp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: lineCount})
	if err != nil {
		return err
	}
	for _, line := range resp.Lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	if !follow {
		return nil
	}

	offset := resp.Offset
	for {
		if err := cmd.Context().Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 1000})
		if err != nil {
			return err
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		offset = resp.Offset
	}
}
