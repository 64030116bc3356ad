package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"tenderlist/internal/apiclient"
	"tenderlist/internal/chunking"
	"tenderlist/internal/config"
	"tenderlist/internal/daemon"
	"tenderlist/internal/dedup"
	"tenderlist/internal/extraction"
	"tenderlist/internal/ipc"
	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/prompts"
	"tenderlist/internal/queue"
	"tenderlist/internal/services/embedding"
	"tenderlist/internal/services/llm"
	"tenderlist/internal/synthesis"
	"tenderlist/internal/textextract"
	"tenderlist/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the tenderlist daemon runtime loop and blocks until SIGINT or
// SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "tenderlistd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	files, err := objectstore.NewFileStore(cfg.Paths.StoreDir)
	if err != nil {
		logger.Error("open object store", logging.Error(err))
		return err
	}

	notifier := apiclient.New(apiclient.Config{
		BaseURL:        cfg.API.BaseURL,
		IngestToken:    cfg.API.IngestToken,
		TimeoutSeconds: cfg.API.TimeoutSeconds,
	}, logger)

	manager := workflow.NewManager(cfg, store, files, notifier, logger)
	registerStages(manager, cfg, store, files, notifier, logger)

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}

	<-signalCtx.Done()
	logger.Info("tenderlist daemon shutting down")
	return nil
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, files objectstore.Store, notifier *apiclient.Client, logger *slog.Logger) {
	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(cfg.LLM.MaxAttempts))

	embedClient := embedding.NewClient(embedding.Config{
		APIKey:         cfg.Embedding.APIKey,
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	})

	runner := textextract.NewExecRunner(logger)
	var ocr textextract.OCR
	if cfg.OCR.Enabled {
		if cfg.OCR.BaseURL != "" {
			ocr = textextract.NewHTTPOCR(runner, "", cfg.OCR.BaseURL, cfg.OCR.APIKey,
				cfg.OCR.Language, cfg.OCR.TimeoutSeconds)
		} else {
			ocr = textextract.NewTesseractOCR(runner, "", "", cfg.OCR.Language)
		}
	}
	extractor := textextract.NewExtractor(textextract.Config{
		Pdftotext:      cfg.Extract.PdftotextBinary,
		Pdfinfo:        cfg.Extract.PdfinfoBinary,
		MinTextChars:   cfg.Extract.MinTextChars,
		TimeoutSeconds: cfg.Extract.TimeoutSeconds,
	}, runner, ocr, logger)

	chunkExtractor := extraction.NewExtractor(llmClient, extraction.ModelTiers{
		Primary:  cfg.LLM.Model,
		Repair:   cfg.LLM.RepairModel,
		Fallback: cfg.LLM.FallbackModel,
	}, logger)

	synthHandler := synthesis.NewHandler(store, files,
		synthesis.NewSynthesizer(synthesis.NewLLMDateResolver(llmClient, logger), logger), logger)
	promptService := prompts.NewService(files, prompts.NewEvaluator(llmClient, logger), logger)

	mgr.ConfigureStages(workflow.StageSet{
		TextExtractor: textextract.NewHandler(store, files, extractor, logger),
		Chunker: chunking.NewHandler(store, files, chunking.Defaults{
			WindowPages:  cfg.Pipeline.ChunkWindowPages,
			OverlapPages: cfg.Pipeline.ChunkOverlapPages,
		}, logger),
		Extractor: extraction.NewHandler(store, files,
			extraction.NewRunner(files, chunkExtractor, cfg.Pipeline.ChunkConcurrency, logger), logger),
		Deduplicator: dedup.NewHandler(store, files, embedClient,
			cfg.Pipeline.SimilarityThreshold, logger),
		Finalizer: workflow.NewFinalizer(synthHandler, promptService, notifier, files, logger),
	})
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
