package config

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  "~/.local/share/tenderlist",
			StoreDir: "~/.local/share/tenderlist/store",
			LogDir:   "~/.local/share/tenderlist/logs",
		},
		LLM: LLM{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			RepairModel:    "gpt-4o-mini",
			FallbackModel:  "gpt-4o",
			TimeoutSeconds: 120,
			MaxAttempts:    3,
		},
		Embedding: Embedding{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "text-embedding-3-small",
			TimeoutSeconds: 60,
		},
		OCR: OCR{
			Enabled:        true,
			Language:       "eng",
			TimeoutSeconds: 300,
		},
		Extract: Extract{
			PdftotextBinary: "pdftotext",
			PdfinfoBinary:   "pdfinfo",
			MinTextChars:    32,
			TimeoutSeconds:  300,
		},
		Pipeline: Pipeline{
			ChunkWindowPages:    5,
			ChunkOverlapPages:   1,
			SimilarityThreshold: 0.95,
			ChunkConcurrency:    4,
		},
		API: API{
			TimeoutSeconds: 30,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  15,
			HeartbeatTimeout:   120,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
