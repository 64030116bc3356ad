package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tenderlist/internal/queue"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, buildListJSON(items))
				}

				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Job", "File", "Status", "Progress"},
					buildListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func buildListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			shortJobID(item.JobID),
			item.Filename,
			string(item.Status),
			fmt.Sprintf("%.0f%%", item.ProgressPercent),
		})
	}
	return rows
}

func buildListJSON(items []*queue.Item) map[string]any {
	type jsonItem struct {
		ID              int64   `json:"id"`
		JobID           string  `json:"job_id"`
		Filename        string  `json:"filename"`
		Status          string  `json:"status"`
		ProgressStage   string  `json:"progress_stage,omitempty"`
		ProgressPercent float64 `json:"progress_percent"`
		ErrorMessage    string  `json:"error_message,omitempty"`
		NeedsReview     bool    `json:"needs_review,omitempty"`
		ReviewReason    string  `json:"review_reason,omitempty"`
		CreatedAt       string  `json:"created_at"`
		UpdatedAt       string  `json:"updated_at"`
	}
	out := make([]jsonItem, 0, len(items))
	for _, item := range items {
		out = append(out, jsonItem{
			ID:              item.ID,
			JobID:           item.JobID,
			Filename:        item.Filename,
			Status:          string(item.Status),
			ProgressStage:   item.ProgressStage,
			ProgressPercent: item.ProgressPercent,
			ErrorMessage:    item.ErrorMessage,
			NeedsReview:     item.NeedsReview,
			ReviewReason:    item.ReviewReason,
			CreatedAt:       item.CreatedAt.Format(time.RFC3339),
			UpdatedAt:       item.UpdatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{"items": out}
}

// shortJobID truncates a UUID for table display. JSON output keeps the full
// identifier.
func shortJobID(jobID string) string {
	if len(jobID) <= 8 {
		return jobID
	}
	return jobID[:8]
}
