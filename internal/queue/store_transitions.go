package queue

import (
	"context"
	"fmt"
	"time"
)

func rollbackCaseClauses() (string, []any) {
	clause := `CASE status`
	args := make([]any, 0, len(stageRollbackTransitions)*2)
	for range stageRollbackTransitions {
		clause += ` WHEN ? THEN ?`
	}
	clause += ` ELSE status END`
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from, transition.to)
	}
	return clause, args
}

func processingStatusArgs() []any {
	args := make([]any, 0, len(stageRollbackTransitions))
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from)
	}
	return args
}

// ResetStuckProcessing resets items in processing states back to the start of
// their current stage. Invoked at daemon startup so jobs interrupted by a
// crash resume rather than staying wedged.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseClause, caseArgs := rollbackCaseClauses()
	inArgs := processingStatusArgs()

	args := make([]any, 0, len(caseArgs)+1+len(inArgs))
	args = append(args, caseArgs...)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, inArgs...)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = `+caseClause+`,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(inArgs))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items stuck in processing back to the start of
// their current stage when heartbeats expire.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	caseClause, caseArgs := rollbackCaseClauses()
	inArgs := processingStatusArgs()

	args := make([]any, 0, len(caseArgs)+1+len(inArgs)+1)
	args = append(args, caseArgs...)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, inArgs...)
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
        SET status = `+caseClause+`,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`+makePlaceholders(len(inArgs))+`) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// StopItems halts the listed items unless they already reached a terminal
// state. Stopped items land in failed with a review flag so the stop is
// visible in listings and can be retried later.
func (s *Store) StopItems(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+4)
	args = append(args, StatusFailed, UserStopReason, UserStopReason, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_items
        SET status = ?, needs_review = 1, review_reason = ?, error_message = ?,
            progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status NOT IN ('` +
		string(StatusCompleted) + `', '` + string(StatusFailed) + `')`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("stop items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing. With no
// arguments every failed item retries; otherwise only the listed ids.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_items
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}
