package workflow

import (
	"context"

	"tenderlist/internal/logging"
	"tenderlist/internal/queue"
	"tenderlist/internal/tender"
)

// The manager is the sole writer of status.json. Every write is a full
// overwrite so external pollers never observe a partial document.

func (m *Manager) writeRunningStatus(ctx context.Context, item *queue.Item) {
	m.writeStatus(ctx, item.JobID, tender.JobStatus{Status: tender.JobStatusRunning})
}

func (m *Manager) writeFailedStatus(ctx context.Context, item *queue.Item, message string) {
	m.writeStatus(ctx, item.JobID, tender.JobStatus{Status: tender.JobStatusFailed, Error: message})
}

func (m *Manager) writeDoneStatus(ctx context.Context, item *queue.Item, items int) {
	m.writeStatus(ctx, item.JobID, tender.JobStatus{Status: tender.JobStatusDone, Items: items})
}

func (m *Manager) writeStatus(ctx context.Context, jobID string, status tender.JobStatus) {
	if m.files == nil || jobID == "" {
		return
	}
	encoded, err := tender.MarshalArtifact(status)
	if err != nil {
		m.runnerLogger().Warn("failed to encode job status", logging.Error(err))
		return
	}
	if err := m.files.Put(ctx, tender.KeyStatus(jobID), encoded); err != nil {
		m.runnerLogger().Warn("failed to write job status",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
	}
}

func (m *Manager) notifyProcessing(ctx context.Context, item *queue.Item) {
	if !m.notifier.Enabled() {
		return
	}
	if err := m.notifier.MarkProcessing(ctx, item.JobID); err != nil {
		m.runnerLogger().Warn("processing notification failed",
			logging.String(logging.FieldJobID, item.JobID),
			logging.Error(err))
	}
}

func (m *Manager) notifyFailed(ctx context.Context, item *queue.Item, message string) {
	if !m.notifier.Enabled() {
		return
	}
	if err := m.notifier.MarkFailed(ctx, item.JobID, message); err != nil {
		m.runnerLogger().Warn("failure notification failed",
			logging.String(logging.FieldJobID, item.JobID),
			logging.Error(err))
	}
}
