package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tenderlist/internal/queue"
	"tenderlist/internal/services"
	"tenderlist/internal/tender"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id|job-id>",
		Short: "Show the checklist produced for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				item, err := resolveItem(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}

				files, err := ctx.openFiles()
				if err != nil {
					return err
				}
				data, err := files.Get(cmd.Context(), tender.KeyChecklist(item.JobID))
				if err != nil {
					if errors.Is(err, services.ErrNotFound) {
						return fmt.Errorf("no checklist for job %s yet (status: %s)", item.JobID, item.Status)
					}
					return err
				}

				var checklist tender.Checklist
				if err := json.Unmarshal(data, &checklist); err != nil {
					return fmt.Errorf("decode checklist: %w", err)
				}

				if jsonOutput {
					return writeJSON(cmd, checklist)
				}

				out := cmd.OutOrStdout()
				if len(checklist.Items) == 0 {
					fmt.Fprintf(out, "Checklist for job %s is empty\n", checklist.JobID)
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Category", "Mandatory", "Due", "Pages", "Status"},
					buildChecklistRows(checklist.Items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				fmt.Fprintf(out, "%d checklist items\n", len(checklist.Items))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the checklist JSON verbatim")
	return cmd
}

func buildChecklistRows(items []tender.ChecklistItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		due := "-"
		if item.DueDate != nil && *item.DueDate != "" {
			due = *item.DueDate
		}
		rows = append(rows, []string{
			item.ID,
			truncateText(item.Title, 48),
			item.Category,
			yesNo(item.IsMandatory),
			due,
			formatPageRefs(item.PageRefs),
			item.Status,
		})
	}
	return rows
}

func formatPageRefs(refs []int) string {
	if len(refs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, fmt.Sprintf("%d", ref))
	}
	return strings.Join(parts, ",")
}

func truncateText(value string, max int) string {
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
