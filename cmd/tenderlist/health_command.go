package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tenderlist/internal/daemonctl"
	"tenderlist/internal/ipc"
	"tenderlist/internal/queue"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var showDatabase bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check queue and database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, dbHealth, viaDaemon, err := gatherHealth(cmd, ctx, showDatabase)
			if err != nil {
				return err
			}

			if jsonOutput {
				payload := map[string]any{
					"via_daemon": viaDaemon,
					"queue":      health,
				}
				if dbHealth != nil {
					payload["database"] = dbHealth
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			source := "direct database access"
			if viaDaemon {
				source = "daemon"
			}
			for _, line := range renderSectionHeader("Queue health ("+source+")", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "Total: %d\n", health.Total)
			fmt.Fprintf(out, "Pending: %d\n", health.Pending)
			fmt.Fprintf(out, "Processing: %d\n", health.Processing)
			fmt.Fprintf(out, "Completed: %d\n", health.Completed)
			fmt.Fprintf(out, "Failed: %d\n", health.Failed)

			if dbHealth != nil {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Database", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintf(out, "Path: %s\n", dbHealth.DBPath)
				fmt.Fprintf(out, "Exists: %s\n", yesNo(dbHealth.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(dbHealth.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %s\n", dbHealth.SchemaVersion)
				fmt.Fprintf(out, "queue_items table present: %s\n", yesNo(dbHealth.TableExists))
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(dbHealth.IntegrityCheck))
				fmt.Fprintf(out, "Total items: %d\n", dbHealth.TotalItems)
				if dbHealth.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", dbHealth.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of formatted text")
	cmd.Flags().BoolVar(&showDatabase, "database", false, "Include database diagnostics")
	return cmd
}

// gatherHealth prefers the daemon's view when it is running and falls back to
// opening the database directly.
func gatherHealth(cmd *cobra.Command, ctx *commandContext, includeDB bool) (queue.HealthSummary, *queue.DatabaseHealth, bool, error) {
	if client, err := daemonctl.Connect(ctx.socketPath()); err == nil {
		defer client.Close()
		resp, err := client.Health()
		if err != nil {
			return queue.HealthSummary{}, nil, true, err
		}
		health := queue.HealthSummary{
			Total:      resp.Total,
			Pending:    resp.Pending,
			Processing: resp.Processing,
			Failed:     resp.Failed,
			Completed:  resp.Completed,
		}
		var dbHealth *queue.DatabaseHealth
		if includeDB {
			dbResp, err := client.DatabaseHealth()
			if err != nil {
				return health, nil, true, err
			}
			dbHealth = databaseHealthFromIPC(dbResp)
		}
		return health, dbHealth, true, nil
	} else if !errors.Is(err, daemonctl.ErrNotRunning) {
		return queue.HealthSummary{}, nil, false, err
	}

	var health queue.HealthSummary
	var dbHealth *queue.DatabaseHealth
	err := ctx.withStore(func(store *queue.Store) error {
		var err error
		health, err = store.Health(cmd.Context())
		if err != nil {
			return err
		}
		if includeDB {
			checked, err := store.CheckHealth(cmd.Context())
			if err != nil && checked.Error == "" {
				return err
			}
			dbHealth = &checked
		}
		return nil
	})
	return health, dbHealth, false, err
}

func databaseHealthFromIPC(resp *ipc.DatabaseHealthResponse) *queue.DatabaseHealth {
	return &queue.DatabaseHealth{
		DBPath:           resp.DBPath,
		DatabaseExists:   resp.DatabaseExists,
		DatabaseReadable: resp.DatabaseReadable,
		SchemaVersion:    resp.SchemaVersion,
		TableExists:      resp.TableExists,
		IntegrityCheck:   resp.IntegrityCheck,
		TotalItems:       resp.TotalItems,
		Error:            resp.Error,
	}
}
