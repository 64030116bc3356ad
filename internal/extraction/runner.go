package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/tender"
)

// Runner fans chunk extraction out across a bounded worker pool. Each
// worker writes only its own chunk's keys, so results compose through the
// object store instead of shared memory.
type Runner struct {
	store       objectstore.Store
	extractor   *Extractor
	concurrency int
	logger      *slog.Logger
}

// NewRunner constructs a fan-out runner. Concurrency below 1 is raised to 1.
func NewRunner(store objectstore.Store, extractor *Extractor, concurrency int, logger *slog.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		store:       store,
		extractor:   extractor,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "extraction"),
	}
}

// Summary aggregates the terminal states of every chunk in a job.
type Summary struct {
	Total        int
	Succeeded    int
	Failed       int
	Requirements int
}

// Run drives every chunk to a terminal state and persists per-chunk
// artifacts. Chunks with a persisted valid result are not re-extracted,
// making re-delivery of the same job cheap; failed results are always
// re-attempted so a retried job gets a fresh shot. The returned
// error reports storage or cancellation problems only; per-chunk extraction
// failures land in the Summary.
func (r *Runner) Run(ctx context.Context, jobID string, chunks []tender.Chunk) ([]tender.ChunkResult, Summary, error) {
	results := make([]tender.ChunkResult, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for i, chunk := range chunks {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := r.runChunk(groupCtx, jobID, chunk)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, Summary{}, err
	}

	summary := Summary{Total: len(results)}
	for _, result := range results {
		if result.State == tender.ChunkStateValid {
			summary.Succeeded++
			summary.Requirements += len(result.Requirements)
		} else {
			summary.Failed++
		}
	}
	return results, summary, nil
}

func (r *Runner) runChunk(ctx context.Context, jobID string, chunk tender.Chunk) (tender.ChunkResult, error) {
	resultKey := tender.KeyLLMOutput(jobID, chunk.ChunkID)

	// Only valid results short-circuit. A persisted failed result would
	// otherwise pin the chunk to its old error forever, turning an explicit
	// retry into a replay of the failure without a single model call. The
	// raw outputs stay behind for diagnosis either way.
	if existing, err := r.store.Get(ctx, resultKey); err == nil {
		var result tender.ChunkResult
		if jsonErr := json.Unmarshal(existing, &result); jsonErr == nil && result.State == tender.ChunkStateValid {
			r.logger.Debug("valid chunk result exists, skipping extraction",
				logging.String(logging.FieldJobID, jobID),
				logging.String(logging.FieldChunkID, chunk.ChunkID))
			return result, nil
		}
	}

	outcome := r.extractor.ExtractChunk(ctx, chunk)

	if outcome.RawPrimary != "" {
		key := tender.KeyRawLLMOutput(jobID, chunk.ChunkID)
		if err := r.store.Put(ctx, key, []byte(outcome.RawPrimary)); err != nil {
			return tender.ChunkResult{}, fmt.Errorf("persist raw output: %w", err)
		}
	}
	if outcome.RawRepaired != "" {
		key := tender.KeyRepairedLLMOutput(jobID, chunk.ChunkID)
		if err := r.store.Put(ctx, key, []byte(outcome.RawRepaired)); err != nil {
			return tender.ChunkResult{}, fmt.Errorf("persist repaired output: %w", err)
		}
	}

	encoded, err := tender.MarshalArtifact(outcome.Result)
	if err != nil {
		return tender.ChunkResult{}, err
	}
	if err := r.store.Put(ctx, resultKey, encoded); err != nil {
		return tender.ChunkResult{}, fmt.Errorf("persist chunk result: %w", err)
	}
	return outcome.Result, nil
}
