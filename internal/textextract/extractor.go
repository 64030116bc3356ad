package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tenderlist/internal/logging"
	"tenderlist/internal/services"
	"tenderlist/internal/tender"
)

// Config carries the external-tool settings for text extraction.
type Config struct {
	Pdftotext    string
	Pdfinfo      string
	MinTextChars int
	// TimeoutSeconds bounds each external tool invocation.
	TimeoutSeconds int
}

// Extractor turns a PDF into ordered per-page text via pdftotext, with an
// optional OCR fallback for pages whose native text layer is too sparse.
type Extractor struct {
	cfg    Config
	runner Runner
	ocr    OCR
	logger *slog.Logger
}

// NewExtractor constructs a text extractor. A nil ocr disables the fallback:
// sparse pages keep their native text and collect a warning.
func NewExtractor(cfg Config, runner Runner, ocr OCR, logger *slog.Logger) *Extractor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 32
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 120
	}
	return &Extractor{
		cfg:    cfg,
		runner: runner,
		ocr:    ocr,
		logger: logging.NewComponentLogger(logger, "textextract"),
	}
}

// Extract returns every page of the document in order, plus per-page
// warnings that should land in job metadata. A page-level OCR failure does
// not abort the run; the page text stays empty and a warning is recorded.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) ([]tender.Page, []string, error) {
	pageCount, err := e.pageCount(ctx, pdfPath)
	if err != nil {
		return nil, nil, err
	}
	if pageCount <= 0 {
		return nil, nil, services.Wrap(services.ErrUnsupportedFormat, "textextract", "pageCount",
			"document reports zero pages", nil)
	}

	pages := make([]tender.Page, 0, pageCount)
	var warnings []string
	for pageNo := 1; pageNo <= pageCount; pageNo++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		page, warning := e.extractPage(ctx, pdfPath, pageNo)
		pages = append(pages, page)
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}
	return pages, warnings, nil
}

// runTool invokes an external binary with the configured per-invocation
// timeout.
func (e *Extractor) runTool(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	toolCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.TimeoutSeconds)*time.Second)
	defer cancel()
	return e.runner.Run(toolCtx, name, args...)
}

func (e *Extractor) extractPage(ctx context.Context, pdfPath string, pageNo int) (tender.Page, string) {
	pageArg := strconv.Itoa(pageNo)
	out, stderr, err := e.runTool(ctx, e.cfg.Pdftotext,
		"-f", pageArg, "-l", pageArg,
		"-layout", "-enc", "UTF-8", "-eol", "unix",
		pdfPath, "-")

	text := strings.TrimRight(string(out), "\f\n ")
	if err != nil {
		e.logger.Warn("native text extraction failed",
			logging.Int("page", pageNo),
			logging.String("stderr", truncate(string(stderr), 512)),
			logging.Error(err))
		text = ""
	}

	if len(strings.TrimSpace(text)) >= e.cfg.MinTextChars {
		return tender.Page{PageNo: pageNo, Text: text, Source: tender.PageSourceNative}, ""
	}

	if e.ocr == nil {
		warning := ""
		if strings.TrimSpace(text) == "" {
			warning = fmt.Sprintf("page %d: no text layer and OCR disabled", pageNo)
		}
		return tender.Page{PageNo: pageNo, Text: text, Source: tender.PageSourceNative}, warning
	}

	ocrText, ocrErr := e.ocr.RecognizePage(ctx, pdfPath, pageNo)
	if ocrErr != nil {
		e.logger.Warn("ocr fallback failed",
			logging.Int("page", pageNo),
			logging.Error(ocrErr))
		return tender.Page{PageNo: pageNo, Text: text, Source: tender.PageSourceFailed},
			fmt.Sprintf("page %d: ocr failed: %s", pageNo, services.StatusMessage(ocrErr))
	}

	ocrText = strings.TrimRight(ocrText, "\f\n ")
	if strings.TrimSpace(ocrText) == "" && strings.TrimSpace(text) == "" {
		return tender.Page{PageNo: pageNo, Text: "", Source: tender.PageSourceOCR},
			fmt.Sprintf("page %d: ocr produced no text", pageNo)
	}
	if len(strings.TrimSpace(ocrText)) < len(strings.TrimSpace(text)) {
		// OCR did worse than the sparse native layer; keep the native text.
		return tender.Page{PageNo: pageNo, Text: text, Source: tender.PageSourceNative}, ""
	}
	return tender.Page{PageNo: pageNo, Text: ocrText, Source: tender.PageSourceOCR}, ""
}

// pageCount parses the Pages field from pdfinfo output. A pdfinfo failure
// means the input is not a readable PDF.
func (e *Extractor) pageCount(ctx context.Context, pdfPath string) (int, error) {
	out, stderr, err := e.runTool(ctx, e.cfg.Pdfinfo, pdfPath)
	if err != nil {
		return 0, services.Wrap(services.ErrUnsupportedFormat, "textextract", "pdfinfo",
			fmt.Sprintf("not a readable PDF: %s", truncate(string(stderr), 512)), err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "Pages:"))
		count, convErr := strconv.Atoi(value)
		if convErr != nil {
			return 0, services.Wrap(services.ErrUnsupportedFormat, "textextract", "pdfinfo",
				fmt.Sprintf("unparseable page count %q", value), convErr)
		}
		return count, nil
	}
	return 0, services.Wrap(services.ErrUnsupportedFormat, "textextract", "pdfinfo",
		"no page count in pdfinfo output", nil)
}
