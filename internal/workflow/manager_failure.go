package workflow

import (
	"context"
	"errors"
	"strings"

	"tenderlist/internal/logging"
	"tenderlist/internal/queue"
	"tenderlist/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	logger := logging.WithContext(ctx, m.runnerLogger())

	message := strings.TrimSpace(services.StatusMessage(stageErr))
	if message == "" {
		message = stageName + " failed without error detail"
	}

	resolved := services.FailureStatus(stageErr)
	item.Status = resolved
	item.ErrorMessage = message
	item.LastHeartbeat = nil
	if resolved == queue.StatusReview {
		item.NeedsReview = true
		item.ReviewReason = message
	}

	logger.Error("stage failed",
		logging.String("stage", stageName),
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastItem(item)

	m.writeFailedStatus(ctx, item, message)
	m.notifyFailed(ctx, item, message)
}
