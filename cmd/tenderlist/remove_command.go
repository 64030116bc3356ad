package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tenderlist/internal/queue"
	"tenderlist/internal/tender"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var removeCompleted bool
	var removeFailed bool
	var keepArtifacts bool

	cmd := &cobra.Command{
		Use:   "remove [id...]",
		Short: "Remove jobs from the queue",
		Long:  "Remove jobs from the queue along with their stored artifacts. Pass item ids, or use --completed / --failed to remove in bulk.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if removeCompleted && removeFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			if len(args) == 0 && !removeCompleted && !removeFailed {
				return errors.New("pass item ids or one of --completed / --failed")
			}
			if len(args) > 0 && (removeCompleted || removeFailed) {
				return errors.New("item ids and bulk flags are mutually exclusive")
			}

			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()

				targets := make([]*queue.Item, 0, len(ids))
				if len(ids) > 0 {
					for _, id := range ids {
						item, err := store.GetByID(cmd.Context(), id)
						if err != nil {
							return err
						}
						if item == nil {
							fmt.Fprintf(out, "Item %d not found\n", id)
							continue
						}
						targets = append(targets, item)
					}
				} else {
					status := queue.StatusCompleted
					if removeFailed {
						status = queue.StatusFailed
					}
					items, err := store.ItemsByStatus(cmd.Context(), status)
					if err != nil {
						return err
					}
					targets = items
				}

				removed := 0
				for _, item := range targets {
					ok, err := store.Remove(cmd.Context(), item.ID)
					if err != nil {
						return err
					}
					if !ok {
						continue
					}
					removed++
					if !keepArtifacts {
						if files, err := ctx.openFiles(); err == nil {
							if err := files.DeletePrefix(cmd.Context(), tender.KeyJobPrefix(item.JobID)); err != nil {
								fmt.Fprintf(out, "Warning: could not remove artifacts for job %s: %v\n", item.JobID, err)
							}
						}
					}
					fmt.Fprintf(out, "Removed item %d (job %s)\n", item.ID, item.JobID)
				}
				if removed == 0 {
					fmt.Fprintln(out, "Nothing removed")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&removeCompleted, "completed", false, "Remove all completed jobs")
	cmd.Flags().BoolVar(&removeFailed, "failed", false, "Remove all failed jobs")
	cmd.Flags().BoolVar(&keepArtifacts, "keep-artifacts", false, "Keep stored artifacts when removing jobs")
	return cmd
}
