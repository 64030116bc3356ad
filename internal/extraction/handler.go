package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/queue"
	"tenderlist/internal/services"
	"tenderlist/internal/stage"
	"tenderlist/internal/tender"
)

// Handler integrates requirement extraction with the workflow manager.
type Handler struct {
	store  *queue.Store
	files  objectstore.Store
	runner *Runner
	logger *slog.Logger
}

// NewHandler constructs a workflow stage that extracts requirements from
// every chunk of a queue item.
func NewHandler(store *queue.Store, files objectstore.Store, runner *Runner, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		files:  files,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "extraction-stage"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped log.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if h == nil {
		return
	}
	h.logger = logging.NewComponentLogger(logger, "extraction-stage")
}

// Prepare primes queue progress fields before executing the stage.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if h == nil || h.runner == nil {
		return services.Wrap(services.ErrConfiguration, "extraction", "prepare", "Extraction stage is not configured", nil)
	}
	item.SetProgress("Extracting requirements", "Loading chunks", 0)
	return h.store.Update(ctx, item)
}

// Execute runs requirement extraction over every persisted chunk. Individual
// chunk failures are tolerated; the stage fails only when no chunk yields a
// usable result.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	if h == nil || h.runner == nil {
		return services.Wrap(services.ErrConfiguration, "extraction", "execute", "Extraction stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "extraction", "execute", "Queue item is nil", nil)
	}

	chunks, err := h.loadChunks(ctx, item.JobID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return services.Wrap(services.ErrNotFound, "extraction", "execute", "No chunks found for job; re-run chunking", nil)
	}

	results, summary, err := h.runner.Run(ctx, item.JobID, chunks)
	if err != nil {
		return services.Wrap(services.ErrTransient, "extraction", "execute", "Chunk extraction aborted", err)
	}

	meta, metaErr := item.Metadata()
	if metaErr != nil {
		meta = queue.JobMetadata{}
	}
	meta.Chunks = summary.Total
	meta.Requirements = summary.Requirements
	meta.FailedChunks = nil
	for _, result := range results {
		if result.State == tender.ChunkStateFailed {
			meta.FailedChunks = append(meta.FailedChunks, result.ChunkIndex)
		}
	}
	sort.Ints(meta.FailedChunks)
	if err := item.SetMetadata(meta); err != nil {
		return services.Wrap(services.ErrValidation, "extraction", "execute", "Failed to record chunk counters", err)
	}

	if summary.Succeeded == 0 {
		return services.Wrap(services.ErrNoRequirements, "extraction", "execute",
			fmt.Sprintf("All %d chunks failed extraction", summary.Total), nil)
	}

	h.logger.Info("requirement extraction complete",
		logging.String(logging.FieldJobID, item.JobID),
		logging.Int("chunks", summary.Total),
		logging.Int("failed_chunks", summary.Failed),
		logging.Int("requirements", summary.Requirements))

	item.SetProgress("Extracting requirements",
		fmt.Sprintf("%d requirements from %d/%d chunks", summary.Requirements, summary.Succeeded, summary.Total), 100)
	return h.store.Update(ctx, item)
}

// HealthCheck reports readiness of the extraction dependencies.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "extraction"
	if h == nil || h.runner == nil || h.runner.extractor == nil {
		return stage.Unhealthy(name, "extractor not configured")
	}
	if h.files == nil {
		return stage.Unhealthy(name, "object store unavailable")
	}
	return stage.Healthy(name)
}

func (h *Handler) loadChunks(ctx context.Context, jobID string) ([]tender.Chunk, error) {
	keys, err := h.files.List(ctx, tender.KeyChunkPrefix(jobID))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "extraction", "load-chunks", "Failed to list chunks", err)
	}
	chunks := make([]tender.Chunk, 0, len(keys))
	for _, key := range keys {
		data, err := h.files.Get(ctx, key)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "extraction", "load-chunks", "Failed to read chunk "+key, err)
		}
		var chunk tender.Chunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return nil, services.Wrap(services.ErrValidation, "extraction", "load-chunks", "Chunk artifact is corrupt: "+key, err)
		}
		chunks = append(chunks, chunk)
	}
	sort.Slice(chunks, func(a, b int) bool { return chunks[a].Index < chunks[b].Index })
	return chunks, nil
}

var _ stage.Handler = (*Handler)(nil)
