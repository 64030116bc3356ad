package workflow

import (
	"tenderlist/internal/queue"
	"tenderlist/internal/stage"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	TextExtractor stage.Handler
	Chunker       stage.Handler
	Extractor     stage.Handler
	Deduplicator  stage.Handler
	Finalizer     stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// ConfigureStages registers the concrete stage handlers the workflow runs.
// Stages execute strictly in queue-status order; a nil handler leaves its
// start status unserviced, so partial sets are only useful in tests.
func (m *Manager) ConfigureStages(set StageSet) {
	var stages []pipelineStage
	if set.TextExtractor != nil {
		stages = append(stages, pipelineStage{
			name:             "textextract",
			handler:          set.TextExtractor,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusExtractingText,
			doneStatus:       queue.StatusTextExtracted,
		})
	}
	if set.Chunker != nil {
		stages = append(stages, pipelineStage{
			name:             "chunking",
			handler:          set.Chunker,
			startStatus:      queue.StatusTextExtracted,
			processingStatus: queue.StatusChunking,
			doneStatus:       queue.StatusChunked,
		})
	}
	if set.Extractor != nil {
		stages = append(stages, pipelineStage{
			name:             "extraction",
			handler:          set.Extractor,
			startStatus:      queue.StatusChunked,
			processingStatus: queue.StatusExtractingRequirement,
			doneStatus:       queue.StatusRequirementsExtracted,
		})
	}
	if set.Deduplicator != nil {
		stages = append(stages, pipelineStage{
			name:             "dedup",
			handler:          set.Deduplicator,
			startStatus:      queue.StatusRequirementsExtracted,
			processingStatus: queue.StatusDeduping,
			doneStatus:       queue.StatusDeduped,
		})
	}
	if set.Finalizer != nil {
		stages = append(stages, pipelineStage{
			name:             "finalize",
			handler:          set.Finalizer,
			startStatus:      queue.StatusDeduped,
			processingStatus: queue.StatusSynthesizing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	stageByStart := make(map[queue.Status]pipelineStage, len(stages))
	statusOrder := make([]queue.Status, 0, len(stages))
	processing := make([]queue.Status, 0, len(stages))
	for _, stg := range stages {
		stageByStart[stg.startStatus] = stg
		statusOrder = append(statusOrder, stg.startStatus)
		processing = append(processing, stg.processingStatus)
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByStart = stageByStart
	m.statusOrder = statusOrder
	m.processingStatuses = processing
	m.mu.Unlock()
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByStart[status]
	return stg, ok
}
