package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tenderlist/internal/logging"
	"tenderlist/internal/services"
	"tenderlist/internal/tender"
)

const defaultTimeout = 30 * time.Second

// Config carries connection settings for the external checklist API.
type Config struct {
	BaseURL        string
	IngestToken    string
	TimeoutSeconds int
}

// Client notifies the external checklist API about job progress and ingests
// the finished checklist. A client without a base URL and token is
// disabled: every call becomes a no-op so the pipeline runs standalone.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New constructs an API client. Returns a disabled client when the base URL
// or token is empty.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.IngestToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "apiclient"),
	}
}

// Enabled reports whether the client is configured to talk to the API.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.token != ""
}

// MarkProcessing tells the API a job entered the pipeline. Best-effort:
// failures are logged by the caller, never fatal.
func (c *Client) MarkProcessing(ctx context.Context, jobID string) error {
	return c.postStatus(ctx, jobID, "PROCESSING", "")
}

// MarkFailed tells the API a job failed, carrying the human-readable error.
func (c *Client) MarkFailed(ctx context.Context, jobID string, message string) error {
	return c.postStatus(ctx, jobID, "FAILED", message)
}

// IngestMeta summarizes a completed run for the ingest payload.
type IngestMeta struct {
	ItemCount       int     `json:"item_count"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// IngestChecklist delivers the finished checklist, prompt results, and run
// metadata. Unlike the status notifications this call is load-bearing: an
// ingest failure fails the job.
func (c *Client) IngestChecklist(ctx context.Context, jobID string, checklist tender.Checklist, prompts []tender.PromptResult, meta IngestMeta) error {
	if !c.Enabled() {
		return nil
	}
	if prompts == nil {
		prompts = []tender.PromptResult{}
	}
	payload := struct {
		Items   []tender.ChecklistItem `json:"items"`
		Meta    IngestMeta             `json:"meta"`
		Prompts []tender.PromptResult  `json:"prompts"`
	}{Items: checklist.Items, Meta: meta, Prompts: prompts}

	endpoint, err := url.JoinPath(c.baseURL, "api", "internal", "checklists", jobID, "ingest")
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "apiclient", "ingest", "Invalid API base URL", err)
	}
	if err := c.post(ctx, endpoint, payload, nil); err != nil {
		return services.Wrap(services.ErrTransient, "apiclient", "ingest", "Checklist ingest failed", err)
	}
	return nil
}

// FetchPrompts retrieves the user prompts registered for a job. A disabled
// client returns no prompts.
func (c *Client) FetchPrompts(ctx context.Context, jobID string) ([]tender.Prompt, error) {
	if !c.Enabled() {
		return nil, nil
	}
	endpoint, err := url.JoinPath(c.baseURL, "api", "checklists", jobID, "prompts")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "apiclient", "fetch-prompts", "Invalid API base URL", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: fetch prompts: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("apiclient: read prompts response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("apiclient: fetch prompts: status %d", resp.StatusCode)
	}
	var prompts []tender.Prompt
	if err := json.Unmarshal(body, &prompts); err != nil {
		return nil, fmt.Errorf("apiclient: decode prompts: %w", err)
	}
	return prompts, nil
}

func (c *Client) postStatus(ctx context.Context, jobID, status, message string) error {
	if !c.Enabled() {
		return nil
	}
	endpoint, err := url.JoinPath(c.baseURL, "api", "internal", "checklists", jobID, "status")
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "apiclient", "status", "Invalid API base URL", err)
	}
	payload := struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}{Status: status, Error: message}
	return c.post(ctx, endpoint, payload, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("apiclient: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: post: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("apiclient: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return fmt.Errorf("apiclient: status %d: %s", resp.StatusCode, snippet)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("apiclient: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
