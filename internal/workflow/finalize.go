package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"tenderlist/internal/apiclient"
	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/prompts"
	"tenderlist/internal/queue"
	"tenderlist/internal/services"
	"tenderlist/internal/stage"
	"tenderlist/internal/synthesis"
	"tenderlist/internal/tender"
)

// Finalizer is the last pipeline stage: it synthesizes the checklist,
// evaluates any user prompts against the extracted pages, and hands the
// finished package to the checklist service. Prompt fetch problems degrade
// to an empty prompt set; a failed ingest fails the job so the operator can
// retry it once the service is reachable again.
type Finalizer struct {
	synth    *synthesis.Handler
	prompts  *prompts.Service
	notifier *apiclient.Client
	files    objectstore.Store
	logger   *slog.Logger
}

// NewFinalizer constructs the terminal workflow stage.
func NewFinalizer(synth *synthesis.Handler, promptService *prompts.Service, notifier *apiclient.Client, files objectstore.Store, logger *slog.Logger) *Finalizer {
	return &Finalizer{
		synth:    synth,
		prompts:  promptService,
		notifier: notifier,
		files:    files,
		logger:   logging.NewComponentLogger(logger, "finalize-stage"),
	}
}

// SetLogger routes stage logs into the item-scoped log.
func (f *Finalizer) SetLogger(logger *slog.Logger) {
	if f == nil {
		return
	}
	f.logger = logging.NewComponentLogger(logger, "finalize-stage")
	f.synth.SetLogger(logger)
}

// Prepare primes queue progress via the synthesis stage.
func (f *Finalizer) Prepare(ctx context.Context, item *queue.Item) error {
	if f == nil || f.synth == nil {
		return services.Wrap(services.ErrConfiguration, "finalize", "prepare", "Finalize stage is not configured", nil)
	}
	return f.synth.Prepare(ctx, item)
}

// Execute synthesizes the checklist, runs prompt evaluation, and ingests the
// result. Every step is idempotent, so a re-delivered job repeats only the
// work whose artifact is missing.
func (f *Finalizer) Execute(ctx context.Context, item *queue.Item) error {
	if f == nil || f.synth == nil || f.prompts == nil {
		return services.Wrap(services.ErrConfiguration, "finalize", "execute", "Finalize stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "finalize", "execute", "Queue item is nil", nil)
	}

	if err := f.synth.Execute(ctx, item); err != nil {
		return err
	}

	data, err := f.files.Get(ctx, tender.KeyChecklist(item.JobID))
	if err != nil {
		return services.Wrap(services.ErrNotFound, "finalize", "execute", "Checklist artifact missing after synthesis", err)
	}
	var checklist tender.Checklist
	if err := json.Unmarshal(data, &checklist); err != nil {
		return services.Wrap(services.ErrValidation, "finalize", "execute", "Checklist artifact is corrupt", err)
	}

	jobPrompts, err := f.notifier.FetchPrompts(ctx, item.JobID)
	if err != nil {
		f.logger.Warn("prompt fetch failed, continuing without prompts",
			logging.String(logging.FieldJobID, item.JobID),
			logging.Error(err))
		jobPrompts = nil
	}

	results, err := f.prompts.Run(ctx, item.JobID, jobPrompts)
	if err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "execute", "Prompt evaluation failed", err)
	}

	meta := apiclient.IngestMeta{
		ItemCount:       len(checklist.Items),
		DurationSeconds: time.Since(item.CreatedAt).Seconds(),
	}
	if err := f.notifier.IngestChecklist(ctx, item.JobID, checklist, results, meta); err != nil {
		return err
	}

	f.logger.Info("job finalized",
		logging.String(logging.FieldJobID, item.JobID),
		logging.Int("items", len(checklist.Items)),
		logging.Int("prompts", len(results)))
	return nil
}

// HealthCheck reports readiness of the finalize stage.
func (f *Finalizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "finalize"
	if f == nil || f.synth == nil || f.prompts == nil {
		return stage.Unhealthy(name, "finalize stage not configured")
	}
	if synth := f.synth.HealthCheck(ctx); !synth.Ready {
		return stage.Unhealthy(name, synth.Detail)
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Finalizer)(nil)
