package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tenderlist/internal/queue"
	"tenderlist/internal/tender"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var windowPages int
	var overlapPages int
	var threshold float64

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Queue a tender PDF for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			if ext := strings.ToLower(filepath.Ext(info.Name())); ext != ".pdf" {
				return fmt.Errorf("unsupported file extension %q (expected .pdf)", ext)
			}
			if windowPages < 0 || overlapPages < 0 {
				return errors.New("window and overlap must not be negative")
			}
			if windowPages > 0 && overlapPages >= windowPages {
				return fmt.Errorf("overlap %d must be smaller than window %d", overlapPages, windowPages)
			}
			if threshold < 0 || threshold > 1 {
				return fmt.Errorf("threshold %v must be between 0 and 1", threshold)
			}

			data, err := os.ReadFile(absPath)
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			files, err := ctx.openFiles()
			if err != nil {
				return err
			}

			jobID := uuid.NewString()
			if err := files.Put(cmd.Context(), tender.KeyRawPDF(jobID), data); err != nil {
				return fmt.Errorf("store pdf: %w", err)
			}

			options := tender.Options{
				ChunkWindowPages:   windowPages,
				ChunkOverlapPages:  overlapPages,
				EmbeddingThreshold: threshold,
			}
			optionsJSON := ""
			if options != (tender.Options{}) {
				encoded, err := json.Marshal(options)
				if err != nil {
					return fmt.Errorf("encode options: %w", err)
				}
				optionsJSON = string(encoded)
			}

			return ctx.withStore(func(store *queue.Store) error {
				item, err := store.NewJob(cmd.Context(), jobID, info.Name(), absPath, optionsJSON)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as item #%d\n", info.Name(), item.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Job ID: %s\n", item.JobID)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&windowPages, "window", 0, "Chunk window size in pages (0 uses the configured default)")
	cmd.Flags().IntVar(&overlapPages, "overlap", 0, "Chunk overlap in pages (0 uses the configured default)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Deduplication similarity threshold (0 uses the configured default)")

	return cmd
}
