package textextract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tenderlist/internal/services"
)

// OCR recognizes the text of a single PDF page. Implementations render the
// page themselves so callers only deal in page numbers.
type OCR interface {
	RecognizePage(ctx context.Context, pdfPath string, pageNo int) (string, error)
}

// TesseractOCR renders a page with pdftoppm and recognizes it with a local
// tesseract binary.
type TesseractOCR struct {
	runner    Runner
	pdftoppm  string
	tesseract string
	language  string
	dpi       int
}

// NewTesseractOCR constructs a local OCR engine. Empty binary names default
// to pdftoppm/tesseract on PATH.
func NewTesseractOCR(runner Runner, pdftoppm, tesseract, language string) *TesseractOCR {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	if tesseract == "" {
		tesseract = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractOCR{
		runner:    runner,
		pdftoppm:  pdftoppm,
		tesseract: tesseract,
		language:  language,
		dpi:       300,
	}
}

func (t *TesseractOCR) RecognizePage(ctx context.Context, pdfPath string, pageNo int) (string, error) {
	image, cleanup, err := renderPage(ctx, t.runner, t.pdftoppm, pdfPath, pageNo, t.dpi)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return "", err
	}

	out, stderr, err := t.runner.Run(ctx, t.tesseract, image, "stdout", "-l", t.language)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "textextract", "tesseract",
			fmt.Sprintf("page %d: %s", pageNo, truncate(string(stderr), 512)), err)
	}
	return string(out), nil
}

// HTTPOCR renders a page locally and posts the PNG to a remote OCR service.
// The service is expected to respond with {"text": "..."}.
type HTTPOCR struct {
	runner     Runner
	pdftoppm   string
	baseURL    string
	apiKey     string
	language   string
	dpi        int
	httpClient *http.Client
}

// NewHTTPOCR constructs a remote OCR client.
func NewHTTPOCR(runner Runner, pdftoppm, baseURL, apiKey, language string, timeoutSeconds int) *HTTPOCR {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	if language == "" {
		language = "eng"
	}
	timeout := 300 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &HTTPOCR{
		runner:     runner,
		pdftoppm:   pdftoppm,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		language:   language,
		dpi:        300,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPOCR) RecognizePage(ctx context.Context, pdfPath string, pageNo int) (string, error) {
	image, cleanup, err := renderPage(ctx, h.runner, h.pdftoppm, pdfPath, pageNo, h.dpi)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return "", err
	}

	file, err := os.Open(image)
	if err != nil {
		return "", fmt.Errorf("ocr: open rendered page: %w", err)
	}
	defer file.Close()

	endpoint, err := url.JoinPath(h.baseURL, "ocr")
	if err != nil {
		return "", fmt.Errorf("ocr: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, file)
	if err != nil {
		return "", fmt.Errorf("ocr: new request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("X-OCR-Language", h.language)
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "textextract", "ocr",
			fmt.Sprintf("page %d request failed", pageNo), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ocr: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrTransient, "textextract", "ocr",
			fmt.Sprintf("page %d: http %d: %s", pageNo, resp.StatusCode, truncate(string(body), 512)), nil)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("ocr: decode response: %w", err)
	}
	return parsed.Text, nil
}

// renderPage rasterizes one page to a PNG in a temp dir. The caller must
// invoke cleanup when non-nil.
func renderPage(ctx context.Context, runner Runner, pdftoppm, pdfPath string, pageNo, dpi int) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "tenderlist-ocr-*")
	if err != nil {
		return "", nil, fmt.Errorf("ocr: temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	pageArg := fmt.Sprintf("%d", pageNo)
	_, stderr, err := runner.Run(ctx, pdftoppm,
		"-f", pageArg, "-l", pageArg,
		"-r", fmt.Sprintf("%d", dpi),
		"-png", pdfPath, prefix)
	if err != nil {
		return "", cleanup, services.Wrap(services.ErrExternalTool, "textextract", "pdftoppm",
			fmt.Sprintf("page %d: %s", pageNo, truncate(string(stderr), 512)), err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", cleanup, services.Wrap(services.ErrExternalTool, "textextract", "pdftoppm",
			fmt.Sprintf("page %d rendered no image", pageNo), nil)
	}
	return matches[0], cleanup, nil
}
