package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tenderlist/internal/objectstore"
	"tenderlist/internal/queue"
	"tenderlist/internal/tender"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <id|job-id>",
		Short: "Show the status of a queued job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				item, err := resolveItem(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}

				var external *tender.JobStatus
				if files, err := ctx.openFiles(); err == nil {
					external = readExternalStatus(cmd.Context(), files, item.JobID)
				}

				if jsonOutput {
					return writeJSON(cmd, buildStatusJSON(item, external))
				}

				printItemStatus(cmd, item, external)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of formatted text")
	return cmd
}

// resolveItem accepts either a numeric queue id or a job identifier.
func resolveItem(ctx context.Context, store *queue.Store, arg string) (*queue.Item, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, errors.New("job id is required")
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
		item, err := store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			return item, nil
		}
	}
	item, err := store.GetByJobID(ctx, arg)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("no job matching %q", arg)
	}
	return item, nil
}

func readExternalStatus(ctx context.Context, files objectstore.Store, jobID string) *tender.JobStatus {
	data, err := files.Get(ctx, tender.KeyStatus(jobID))
	if err != nil {
		return nil
	}
	var status tender.JobStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil
	}
	return &status
}

func printItemStatus(cmd *cobra.Command, item *queue.Item, external *tender.JobStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader(fmt.Sprintf("Job %s", item.JobID), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", statusKindForItem(item), string(item.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("File", statusInfo, item.Filename, colorize))
	if item.ProgressStage != "" {
		progress := fmt.Sprintf("%s (%.0f%%)", item.ProgressStage, item.ProgressPercent)
		if item.ProgressMessage != "" {
			progress += " - " + item.ProgressMessage
		}
		fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, progress, colorize))
	}
	if item.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, item.ErrorMessage, colorize))
	}
	if item.NeedsReview {
		fmt.Fprintln(out, renderStatusLine("Review", statusWarn, item.ReviewReason, colorize))
	}
	if external != nil {
		detail := external.Status
		if external.Status == tender.JobStatusDone {
			detail = fmt.Sprintf("%s (%d checklist items)", external.Status, external.Items)
		}
		fmt.Fprintln(out, renderStatusLine("Reported", statusInfo, detail, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Updated", statusInfo, item.UpdatedAt.Format(time.RFC3339), colorize))
}

func statusKindForItem(item *queue.Item) statusKind {
	switch {
	case item.Status == queue.StatusCompleted:
		return statusOK
	case item.Status == queue.StatusFailed:
		return statusError
	case item.Status == queue.StatusReview:
		return statusWarn
	default:
		return statusInfo
	}
}

func buildStatusJSON(item *queue.Item, external *tender.JobStatus) map[string]any {
	payload := map[string]any{
		"id":               item.ID,
		"job_id":           item.JobID,
		"filename":         item.Filename,
		"status":           string(item.Status),
		"progress_stage":   item.ProgressStage,
		"progress_percent": item.ProgressPercent,
		"created_at":       item.CreatedAt.Format(time.RFC3339),
		"updated_at":       item.UpdatedAt.Format(time.RFC3339),
	}
	if item.ErrorMessage != "" {
		payload["error_message"] = item.ErrorMessage
	}
	if item.NeedsReview {
		payload["needs_review"] = true
		payload["review_reason"] = item.ReviewReason
	}
	if external != nil {
		payload["reported_status"] = external
	}
	return payload
}
