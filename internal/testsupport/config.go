// Package testsupport provides shared helpers for package tests: temp-dir
// backed configs, queue stores, and object stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"tenderlist/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StoreDir = filepath.Join(base, "store")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	cfg.LLM.BaseURL = "http://127.0.0.1:0/v1"
	cfg.Embedding.APIKey = "test"
	cfg.Embedding.BaseURL = "http://127.0.0.1:0/v1"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithLLMBaseURL points the LLM client at a test server.
func WithLLMBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.BaseURL = url
	}
}

// WithEmbeddingBaseURL points the embedding client at a test server.
func WithEmbeddingBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Embedding.BaseURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
