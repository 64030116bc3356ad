package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tenderlist/internal/apiclient"
	"tenderlist/internal/config"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/queue"
)

// Manager coordinates queue processing using registered stage handlers. It
// owns every status transition and is the only writer of status.json.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	files        objectstore.Store
	notifier     *apiclient.Client
	logger       *slog.Logger
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor

	stages             []pipelineStage
	stageByStart       map[queue.Status]pipelineStage
	statusOrder        []queue.Status
	processingStatuses []queue.Status

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, files objectstore.Store, notifier *apiclient.Client, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		files:        files,
		notifier:     notifier,
		logger:       logger,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}
