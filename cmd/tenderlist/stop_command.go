package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tenderlist/internal/queue"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id> [id...]",
		Short: "Stop queued or in-flight jobs",
		Long:  "Stop queued or in-flight jobs. A running job will halt after current stage and is marked for review; use retry to resume it.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				updated, err := store.StopItems(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				if updated == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs to stop (already completed or failed)")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stop requested for %d job(s); running work will halt after current stage\n", updated)
				return nil
			})
		},
	}
}
