package workflow

import (
	"context"
	"fmt"

	"tenderlist/internal/queue"
	"tenderlist/internal/stage"
)

// StatusSummary is a point-in-time snapshot of the workflow runner.
type StatusSummary struct {
	Running     bool                    `json:"running"`
	LastError   string                  `json:"last_error,omitempty"`
	LastJobID   string                  `json:"last_job_id,omitempty"`
	LastStatus  string                  `json:"last_status,omitempty"`
	QueueStats  map[queue.Status]int    `json:"queue_stats,omitempty"`
	StageHealth map[string]stage.Health `json:"stage_health,omitempty"`
}

// Status reports runner state, queue depth per status, and per-stage health.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastItem != nil {
		summary.LastJobID = m.lastItem.JobID
		summary.LastStatus = string(m.lastItem.Status)
	}
	stages := make([]pipelineStage, len(m.stages))
	copy(stages, m.stages)
	m.mu.RUnlock()

	if stats, err := m.store.Stats(ctx); err == nil {
		summary.QueueStats = stats
	} else {
		summary.LastError = fmt.Sprintf("queue stats unavailable: %v", err)
	}

	if len(stages) > 0 {
		summary.StageHealth = make(map[string]stage.Health, len(stages))
		for _, ps := range stages {
			summary.StageHealth[ps.name] = ps.handler.HealthCheck(ctx)
		}
	}
	return summary
}

// Running reports whether the poll loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	m.lastItem = item
	m.mu.Unlock()
}
