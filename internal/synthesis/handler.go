package synthesis

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

// Handler integrates checklist synthesis with the workflow manager.
type Handler struct {
	store       *queue.Store
	files       objectstore.Store
	synthesizer *Synthesizer
	logger      *slog.Logger
}

// NewHandler constructs a workflow stage that builds the final checklist.
func NewHandler(store *queue.Store, files objectstore.Store, synthesizer *Synthesizer, logger *slog.Logger) *Handler {
	return &Handler{
		store:       store,
		files:       files,
		synthesizer: synthesizer,
		logger:      logging.NewComponentLogger(logger, "synthesis-stage"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped log.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if h == nil {
		return
	}
	h.logger = logging.NewComponentLogger(logger, "synthesis-stage")
}

// Prepare primes queue progress fields before executing the stage.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if h == nil || h.synthesizer == nil {
		return services.Wrap(services.ErrConfiguration, "synthesis", "prepare", "Synthesis stage is not configured", nil)
	}
	item.SetProgress("Synthesizing", "Building checklist", 0)
	return h.store.Update(ctx, item)
}

// Execute synthesizes and persists checklist.json. Re-delivered jobs with
// an existing checklist reload it; synthesis is deterministic, so either
// path yields identical bytes.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	if h == nil || h.synthesizer == nil {
		return services.Wrap(services.ErrConfiguration, "synthesis", "execute", "Synthesis stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "synthesis", "execute", "Queue item is nil", nil)
	}

	checklistKey := tender.KeyChecklist(item.JobID)
	if existing, err := h.files.Get(ctx, checklistKey); err == nil {
		var checklist tender.Checklist
		if jsonErr := json.Unmarshal(existing, &checklist); jsonErr == nil && checklist.JobID == item.JobID {
			h.logger.Debug("checklist artifact exists, skipping synthesis",
				logging.String(logging.FieldJobID, item.JobID))
			return h.finish(ctx, item, checklist)
		}
	}

	data, err := h.files.Get(ctx, tender.KeyMergedRequirements(item.JobID))
	if err != nil {
		return services.Wrap(services.ErrNotFound, "synthesis", "execute", "Merged requirements missing; re-run dedup", err)
	}
	var requirements []tender.Requirement
	if err := json.Unmarshal(data, &requirements); err != nil {
		return services.Wrap(services.ErrValidation, "synthesis", "execute", "Merged requirements artifact is corrupt", err)
	}

	checklist, err := h.synthesizer.Synthesize(ctx, item.JobID, requirements)
	if err != nil {
		return services.Wrap(services.ErrTransient, "synthesis", "execute", "Checklist synthesis failed", err)
	}

	encoded, err := tender.MarshalArtifact(checklist)
	if err != nil {
		return err
	}
	if err := h.files.Put(ctx, checklistKey, encoded); err != nil {
		return services.Wrap(services.ErrTransient, "synthesis", "execute", "Failed to persist checklist", err)
	}

	h.logger.Info("checklist synthesized",
		logging.String(logging.FieldJobID, item.JobID),
		logging.Int("items", len(checklist.Items)))
	return h.finish(ctx, item, checklist)
}

// HealthCheck reports readiness of the synthesis stage.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "synthesis"
	if h == nil || h.synthesizer == nil {
		return stage.Unhealthy(name, "synthesizer not configured")
	}
	if h.files == nil {
		return stage.Unhealthy(name, "object store unavailable")
	}
	return stage.Healthy(name)
}

func (h *Handler) finish(ctx context.Context, item *queue.Item, checklist tender.Checklist) error {
	meta, err := item.Metadata()
	if err != nil {
		meta = queue.JobMetadata{}
	}
	meta.Items = len(checklist.Items)
	if err := item.SetMetadata(meta); err != nil {
		return services.Wrap(services.ErrValidation, "synthesis", "execute", "Failed to record item counters", err)
	}
	item.SetProgress("Synthesizing", fmt.Sprintf("%d checklist items", len(checklist.Items)), 100)
	return h.store.Update(ctx, item)
}

var _ stage.Handler = (*Handler)(nil)
