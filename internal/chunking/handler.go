package chunking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/queue"
	"tenderlist/internal/services"
	"tenderlist/internal/stage"
	"tenderlist/internal/tender"
)

// Defaults supplies the chunking parameters used when a job's options do
// not override them.
type Defaults struct {
	WindowPages  int
	OverlapPages int
}

// Handler integrates page chunking with the workflow manager.
type Handler struct {
	store    *queue.Store
	files    objectstore.Store
	defaults Defaults
	logger   *slog.Logger
}

// NewHandler constructs a workflow stage that splits extracted pages into
// overlapping chunks.
func NewHandler(store *queue.Store, files objectstore.Store, defaults Defaults, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		files:    files,
		defaults: defaults,
		logger:   logging.NewComponentLogger(logger, "chunking-stage"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped log.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if h == nil {
		return
	}
	h.logger = logging.NewComponentLogger(logger, "chunking-stage")
}

// Prepare primes queue progress fields before executing the stage.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if h == nil || h.files == nil {
		return services.Wrap(services.ErrConfiguration, "chunking", "prepare", "Chunking stage is not configured", nil)
	}
	item.SetProgress("Chunking", "Splitting pages into windows", 0)
	return h.store.Update(ctx, item)
}

// Execute chunks the extracted pages and persists one artifact per chunk.
// Chunking is deterministic, so re-delivered jobs overwrite their chunk
// artifacts with identical bytes.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	if h == nil || h.files == nil {
		return services.Wrap(services.ErrConfiguration, "chunking", "execute", "Chunking stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "chunking", "execute", "Queue item is nil", nil)
	}

	opts, err := stage.ParseOptions(item.OptionsJSON)
	if err != nil {
		return err
	}
	// Options travel as a set: a job that overrides the window also owns
	// the overlap, including an explicit zero.
	window, overlap := h.defaults.WindowPages, h.defaults.OverlapPages
	if opts.ChunkWindowPages > 0 {
		window, overlap = opts.ChunkWindowPages, opts.ChunkOverlapPages
	}

	data, err := h.files.Get(ctx, tender.KeyPages(item.JobID))
	if err != nil {
		return services.Wrap(services.ErrNotFound, "chunking", "execute", "Pages artifact is missing; re-run text extraction", err)
	}
	var pages []tender.Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return services.Wrap(services.ErrValidation, "chunking", "execute", "Pages artifact is corrupt", err)
	}

	chunks, err := Chunk(pages, window, overlap)
	if err != nil {
		return services.Wrap(services.ErrValidation, "chunking", "execute",
			fmt.Sprintf("Invalid chunk window (window=%d overlap=%d)", window, overlap), err)
	}

	for _, chunk := range chunks {
		encoded, err := tender.MarshalArtifact(chunk)
		if err != nil {
			return err
		}
		if err := h.files.Put(ctx, tender.KeyChunk(item.JobID, chunk.ChunkID), encoded); err != nil {
			return services.Wrap(services.ErrTransient, "chunking", "execute", "Failed to persist chunk "+chunk.ChunkID, err)
		}
	}

	meta, metaErr := item.Metadata()
	if metaErr != nil {
		meta = queue.JobMetadata{}
	}
	meta.Chunks = len(chunks)
	if err := item.SetMetadata(meta); err != nil {
		return services.Wrap(services.ErrValidation, "chunking", "execute", "Failed to record chunk counters", err)
	}

	h.logger.Info("chunking complete",
		logging.String(logging.FieldJobID, item.JobID),
		logging.Int("pages", len(pages)),
		logging.Int("chunks", len(chunks)),
		logging.Int("window", window),
		logging.Int("overlap", overlap))

	item.SetProgress("Chunking", fmt.Sprintf("%d chunks", len(chunks)), 100)
	return h.store.Update(ctx, item)
}

// HealthCheck reports readiness of the chunking stage.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "chunking"
	if h == nil || h.files == nil {
		return stage.Unhealthy(name, "object store unavailable")
	}
	if h.defaults.WindowPages <= 0 || h.defaults.OverlapPages >= h.defaults.WindowPages {
		return stage.Unhealthy(name, "invalid default chunk window")
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Handler)(nil)
