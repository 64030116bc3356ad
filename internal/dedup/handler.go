package dedup

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

// Handler integrates requirement deduplication with the workflow manager.
type Handler struct {
	store            *queue.Store
	files            objectstore.Store
	embedder         Embedder
	defaultThreshold float64
	logger           *slog.Logger
}

// NewHandler constructs a workflow stage that merges near-duplicate
// requirements across chunks.
func NewHandler(store *queue.Store, files objectstore.Store, embedder Embedder, defaultThreshold float64, logger *slog.Logger) *Handler {
	return &Handler{
		store:            store,
		files:            files,
		embedder:         embedder,
		defaultThreshold: defaultThreshold,
		logger:           logging.NewComponentLogger(logger, "dedup-stage"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped log.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if h == nil {
		return
	}
	h.logger = logging.NewComponentLogger(logger, "dedup-stage")
}

// Prepare primes queue progress fields before executing the stage.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if h == nil || h.embedder == nil {
		return services.Wrap(services.ErrConfiguration, "dedup", "prepare", "Dedup stage is not configured", nil)
	}
	item.SetProgress("Deduplicating", "Comparing requirements", 0)
	return h.store.Update(ctx, item)
}

// Execute merges duplicate requirements and persists
// merged_requirements.json. When the artifact already exists the stage
// reloads it, skipping the embedding calls on re-delivery.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	if h == nil || h.embedder == nil {
		return services.Wrap(services.ErrConfiguration, "dedup", "execute", "Dedup stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "dedup", "execute", "Queue item is nil", nil)
	}

	mergedKey := tender.KeyMergedRequirements(item.JobID)
	if existing, err := h.files.Get(ctx, mergedKey); err == nil {
		var merged []tender.Requirement
		if jsonErr := json.Unmarshal(existing, &merged); jsonErr == nil {
			h.logger.Debug("merged artifact exists, skipping dedup",
				logging.String(logging.FieldJobID, item.JobID))
			return h.finish(ctx, item, merged)
		}
	}

	requirements, err := h.loadRequirements(ctx, item.JobID)
	if err != nil {
		return err
	}

	opts, err := stage.ParseOptions(item.OptionsJSON)
	if err != nil {
		return err
	}
	threshold := h.defaultThreshold
	if opts.EmbeddingThreshold > 0 {
		threshold = opts.EmbeddingThreshold
	}

	merged, err := Deduplicate(ctx, h.embedder, requirements, threshold)
	if err != nil {
		return err
	}

	encoded, err := tender.MarshalArtifact(merged)
	if err != nil {
		return err
	}
	if err := h.files.Put(ctx, mergedKey, encoded); err != nil {
		return services.Wrap(services.ErrTransient, "dedup", "execute", "Failed to persist merged requirements", err)
	}

	h.logger.Info("deduplication complete",
		logging.String(logging.FieldJobID, item.JobID),
		logging.Int("input", len(requirements)),
		logging.Int("merged", len(merged)),
		logging.Float64("threshold", threshold))
	return h.finish(ctx, item, merged)
}

// HealthCheck reports readiness of the embedding dependency.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "dedup"
	if h == nil || h.embedder == nil {
		return stage.Unhealthy(name, "embedding client not configured")
	}
	if h.files == nil {
		return stage.Unhealthy(name, "object store unavailable")
	}
	return stage.Healthy(name)
}

func (h *Handler) finish(ctx context.Context, item *queue.Item, merged []tender.Requirement) error {
	meta, err := item.Metadata()
	if err != nil {
		meta = queue.JobMetadata{}
	}
	meta.MergedCount = len(merged)
	if err := item.SetMetadata(meta); err != nil {
		return services.Wrap(services.ErrValidation, "dedup", "execute", "Failed to record merge counters", err)
	}
	item.SetProgress("Deduplicating", fmt.Sprintf("%d unique requirements", len(merged)), 100)
	return h.store.Update(ctx, item)
}

// loadRequirements gathers the requirements of every valid chunk result in
// chunk order. Failed chunks contribute nothing.
func (h *Handler) loadRequirements(ctx context.Context, jobID string) ([]tender.Requirement, error) {
	keys, err := h.files.List(ctx, tender.KeyLLMOutputPrefix(jobID))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "dedup", "load-results", "Failed to list chunk results", err)
	}
	if len(keys) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "dedup", "load-results", "No chunk results found; re-run extraction", nil)
	}

	results := make([]tender.ChunkResult, 0, len(keys))
	for _, key := range keys {
		data, err := h.files.Get(ctx, key)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "dedup", "load-results", "Failed to read chunk result "+key, err)
		}
		var result tender.ChunkResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, services.Wrap(services.ErrValidation, "dedup", "load-results", "Chunk result artifact is corrupt: "+key, err)
		}
		results = append(results, result)
	}
	sort.Slice(results, func(a, b int) bool { return results[a].ChunkIndex < results[b].ChunkIndex })

	var requirements []tender.Requirement
	for _, result := range results {
		if result.State != tender.ChunkStateValid {
			continue
		}
		requirements = append(requirements, result.Requirements...)
	}
	return requirements, nil
}

var _ stage.Handler = (*Handler)(nil)
