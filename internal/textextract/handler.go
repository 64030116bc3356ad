package textextract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/queue"
	"tenderlist/internal/services"
	"tenderlist/internal/stage"
	"tenderlist/internal/tender"
)

// Handler integrates PDF text extraction with the workflow manager.
type Handler struct {
	store     *queue.Store
	files     objectstore.Store
	extractor *Extractor
	logger    *slog.Logger
}

// NewHandler constructs a workflow stage that extracts per-page text from
// the job's stored PDF.
func NewHandler(store *queue.Store, files objectstore.Store, extractor *Extractor, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		files:     files,
		extractor: extractor,
		logger:    logging.NewComponentLogger(logger, "textextract-stage"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped log.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if h == nil {
		return
	}
	h.logger = logging.NewComponentLogger(logger, "textextract-stage")
}

// Prepare primes queue progress fields before executing the stage.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if h == nil || h.extractor == nil {
		return services.Wrap(services.ErrConfiguration, "textextract", "prepare", "Text extraction stage is not configured", nil)
	}
	item.SetProgress("Extracting text", "Reading document", 0)
	return h.store.Update(ctx, item)
}

// Execute extracts per-page text and persists pages.json. When the artifact
// already exists the stage reloads it instead of re-extracting, so
// re-delivered jobs do not repeat the expensive tool runs.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	if h == nil || h.extractor == nil {
		return services.Wrap(services.ErrConfiguration, "textextract", "execute", "Text extraction stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "textextract", "execute", "Queue item is nil", nil)
	}

	pagesKey := tender.KeyPages(item.JobID)
	if existing, err := h.files.Get(ctx, pagesKey); err == nil {
		var pages []tender.Page
		if jsonErr := json.Unmarshal(existing, &pages); jsonErr == nil && len(pages) > 0 {
			h.logger.Debug("pages artifact exists, skipping extraction",
				logging.String(logging.FieldJobID, item.JobID))
			return h.finish(ctx, item, pages, nil)
		}
	}

	pdfPath, cleanup, err := h.materializePDF(ctx, item.JobID)
	if err != nil {
		return err
	}
	defer cleanup()

	pages, warnings, err := h.extractor.Extract(ctx, pdfPath)
	if err != nil {
		return err
	}

	encoded, err := tender.MarshalArtifact(pages)
	if err != nil {
		return err
	}
	if err := h.files.Put(ctx, pagesKey, encoded); err != nil {
		return services.Wrap(services.ErrTransient, "textextract", "execute", "Failed to persist pages artifact", err)
	}
	return h.finish(ctx, item, pages, warnings)
}

// HealthCheck reports readiness of the extraction tooling.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "textextract"
	if h == nil || h.extractor == nil {
		return stage.Unhealthy(name, "extractor not configured")
	}
	if h.files == nil {
		return stage.Unhealthy(name, "object store unavailable")
	}
	return stage.Healthy(name)
}

func (h *Handler) finish(ctx context.Context, item *queue.Item, pages []tender.Page, warnings []string) error {
	ocrPages := 0
	failedPages := 0
	for _, page := range pages {
		switch page.Source {
		case tender.PageSourceOCR:
			ocrPages++
		case tender.PageSourceFailed:
			failedPages++
		}
	}

	meta, err := item.Metadata()
	if err != nil {
		meta = queue.JobMetadata{}
	}
	meta.Pages = len(pages)
	meta.Warnings = append(meta.Warnings, warnings...)
	if err := item.SetMetadata(meta); err != nil {
		return services.Wrap(services.ErrValidation, "textextract", "execute", "Failed to record page counters", err)
	}

	h.logger.Info("text extraction complete",
		logging.String(logging.FieldJobID, item.JobID),
		logging.Int("pages", len(pages)),
		logging.Int("ocr_pages", ocrPages),
		logging.Int("failed_pages", failedPages))

	item.SetProgress("Extracting text", fmt.Sprintf("%d pages extracted", len(pages)), 100)
	return h.store.Update(ctx, item)
}

// materializePDF copies the stored raw.pdf to a temp file so the external
// tools can read it by path. The source path recorded on the item may be
// gone by the time a retried job reaches this stage, so the object store
// copy is authoritative.
func (h *Handler) materializePDF(ctx context.Context, jobID string) (string, func(), error) {
	data, err := h.files.Get(ctx, tender.KeyRawPDF(jobID))
	if err != nil {
		return "", nil, services.Wrap(services.ErrNotFound, "textextract", "execute", "Stored PDF is missing; re-add the document", err)
	}
	dir, err := os.MkdirTemp("", "tenderlist-pdf-")
	if err != nil {
		return "", nil, services.Wrap(services.ErrTransient, "textextract", "execute", "Failed to create temp dir", err)
	}
	path := filepath.Join(dir, "raw.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		os.RemoveAll(dir)
		return "", nil, services.Wrap(services.ErrTransient, "textextract", "execute", "Failed to write temp PDF", err)
	}
	return path, func() { os.RemoveAll(dir) }, nil
}

var _ stage.Handler = (*Handler)(nil)
