package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration values for consistency. Connection secrets
// are deliberately not checked here: the daemon validates them lazily so that
// queue inspection commands work without credentials.
func (c *Config) Validate() error {
	if err := ensureNonEmpty(map[string]string{
		"paths.data_dir":  c.Paths.DataDir,
		"paths.store_dir": c.Paths.StoreDir,
		"paths.log_dir":   c.Paths.LogDir,
	}); err != nil {
		return err
	}

	if err := ensurePositive(map[string]int{
		"llm.timeout_seconds":       c.LLM.TimeoutSeconds,
		"llm.max_attempts":          c.LLM.MaxAttempts,
		"embedding.timeout_seconds": c.Embedding.TimeoutSeconds,
		"extract.timeout_seconds":   c.Extract.TimeoutSeconds,
		"extract.min_text_chars":    c.Extract.MinTextChars,
		"pipeline.chunk_window_pages": c.Pipeline.ChunkWindowPages,
		"pipeline.chunk_concurrency":  c.Pipeline.ChunkConcurrency,
		"api.timeout_seconds":          c.API.TimeoutSeconds,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.heartbeat_interval":   c.Workflow.HeartbeatInterval,
		"workflow.heartbeat_timeout":    c.Workflow.HeartbeatTimeout,
	}); err != nil {
		return err
	}

	if c.Pipeline.ChunkOverlapPages < 0 {
		return fmt.Errorf("pipeline.chunk_overlap_pages must not be negative")
	}
	if c.Pipeline.ChunkOverlapPages >= c.Pipeline.ChunkWindowPages {
		return fmt.Errorf("pipeline.chunk_overlap_pages must be smaller than pipeline.chunk_window_pages")
	}
	if c.Pipeline.SimilarityThreshold <= 0 || c.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("pipeline.similarity_threshold must be in (0, 1]")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return fmt.Errorf("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be one of console, json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}

	if c.OCR.Enabled && c.OCR.BaseURL != "" && c.OCR.TimeoutSeconds <= 0 {
		return fmt.Errorf("ocr.timeout_seconds must be positive")
	}

	return nil
}

// ValidateLLM verifies that language-model credentials are usable. Called by
// the daemon before processing begins, not at load time.
func (c *Config) ValidateLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("llm.api_key is required (or set LLM_API_KEY)")
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	if strings.TrimSpace(c.Embedding.BaseURL) == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if strings.TrimSpace(c.Embedding.Model) == "" {
		return fmt.Errorf("embedding.model is required")
	}
	return nil
}

func ensureNonEmpty(values map[string]string) error {
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	return nil
}

func ensurePositive(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
