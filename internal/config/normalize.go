package config

import (
	"os"
	"strings"
)

// normalize expands paths and applies environment fallbacks. It is called by
// Load before validation so that Validate sees final values.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.StoreDir, err = expandPath(c.Paths.StoreDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	// Environment overrides keep secrets out of the config file.
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY"))
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
	if c.OCR.APIKey == "" {
		c.OCR.APIKey = strings.TrimSpace(os.Getenv("OCR_API_KEY"))
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = strings.TrimSpace(os.Getenv("API_BASE"))
	}
	if c.API.IngestToken == "" {
		c.API.IngestToken = strings.TrimSpace(os.Getenv("WORKER_INGEST_TOKEN"))
	}

	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.Embedding.BaseURL = strings.TrimRight(strings.TrimSpace(c.Embedding.BaseURL), "/")
	c.OCR.BaseURL = strings.TrimRight(strings.TrimSpace(c.OCR.BaseURL), "/")
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}
