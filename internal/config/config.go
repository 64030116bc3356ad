package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// DataDir holds the queue database, the daemon lock, and the IPC socket.
	DataDir string `toml:"data_dir"`
	// StoreDir is the root of the filesystem object store (jobs/{job_id}/...).
	StoreDir string `toml:"store_dir"`
	LogDir   string `toml:"log_dir"`
}

// LLM contains connection settings for the language-model service.
type LLM struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	// Model is the primary extraction tier.
	Model string `toml:"model"`
	// RepairModel reformats malformed responses into valid JSON.
	RepairModel string `toml:"repair_model"`
	// FallbackModel is the higher-capability tier used when the primary
	// output fails validation even after repair.
	FallbackModel  string `toml:"fallback_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// MaxAttempts bounds transient retries per model tier (attempts, not retries).
	MaxAttempts int `toml:"max_attempts"`
}

// Embedding contains connection settings for the text-embedding service.
type Embedding struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// OCR contains connection settings for the OCR fallback service.
type OCR struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Extract contains text-extraction settings.
type Extract struct {
	PdftotextBinary string `toml:"pdftotext_binary"`
	PdfinfoBinary   string `toml:"pdfinfo_binary"`
	// MinTextChars is the per-page density heuristic: pages whose native
	// text layer yields fewer characters route through OCR.
	MinTextChars   int `toml:"min_text_chars"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Pipeline contains chunking, dedup, and fan-out settings.
type Pipeline struct {
	ChunkWindowPages    int     `toml:"chunk_window_pages"`
	ChunkOverlapPages   int     `toml:"chunk_overlap_pages"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	ChunkConcurrency    int     `toml:"chunk_concurrency"`
}

// API contains settings for notifying the external checklist API.
type API struct {
	BaseURL        string `toml:"base_url"`
	IngestToken    string `toml:"ingest_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tenderlist.
//
// Configuration sections by subsystem:
//   - Paths: data, object store, and log directories
//   - LLM: language-model service connection and model tiers
//   - Embedding: text-embedding service for dedup similarity
//   - OCR: fallback OCR service for pages without a text layer
//   - Extract: pdftotext/pdfinfo binaries and density heuristic
//   - Pipeline: chunk window/overlap, similarity threshold, fan-out width
//   - API: external checklist API notifications and ingest
//   - Workflow: daemon polling intervals and heartbeats
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	LLM       LLM       `toml:"llm"`
	Embedding Embedding `toml:"embedding"`
	OCR       OCR       `toml:"ocr"`
	Extract   Extract   `toml:"extract"`
	Pipeline  Pipeline  `toml:"pipeline"`
	API       API       `toml:"api"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tenderlist/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tenderlist.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StoreDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SocketPath returns the IPC socket location used by the daemon and CLI.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "tenderlistd.sock")
}

// LockPath returns the daemon singleton lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "tenderlistd.lock")
}
