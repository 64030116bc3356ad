package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tenderlist/internal/queue"
	"tenderlist/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewJob(ctx, "job-1", "tender.pdf", "/tmp/tender.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Filename != "tender.pdf" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}

	byJob, err := store.GetByJobID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByJobID failed: %v", err)
	}
	if byJob == nil || byJob.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", byJob)
	}

	missing, err := store.GetByJobID(ctx, "nope")
	if err != nil {
		t.Fatalf("GetByJobID for missing job failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown job, got %#v", missing)
	}
}

func TestNewJobRejectsDuplicateJobID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewJob(ctx, "job-dup", "a.pdf", "/tmp/a.pdf", ""); err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if _, err := store.NewJob(ctx, "job-dup", "b.pdf", "/tmp/b.pdf", ""); err == nil {
		t.Fatal("expected duplicate job_id to be rejected")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"extracting_text", queue.StatusExtractingText, queue.StatusPending},
		{"chunking", queue.StatusChunking, queue.StatusTextExtracted},
		{"extracting_requirements", queue.StatusExtractingRequirement, queue.StatusChunked},
		{"deduping", queue.StatusDeduping, queue.StatusRequirementsExtracted},
		{"synthesizing", queue.StatusSynthesizing, queue.StatusDeduped},
	}
	var ids []int64
	for i, tc := range cases {
		item, err := store.NewJob(ctx, fmt.Sprintf("job-reset-%d", i), tc.name+".pdf", "/tmp/x.pdf", "")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
		item.Status = tc.initialStatus
		item.ProgressStage = tc.name
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(cases) {
		t.Fatalf("expected %d items reset, got %d", len(cases), count)
	}

	for idx, tc := range cases {
		updated, err := store.GetByID(ctx, ids[idx])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != tc.expected {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.expected, updated.Status)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", tc.name)
		}
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale, err := store.NewJob(ctx, "job-stale", "stale.pdf", "/tmp/stale.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	stale.Status = queue.StatusDeduping
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, stale.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	fresh, err := store.NewJob(ctx, "job-fresh", "fresh.pdf", "/tmp/fresh.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	fresh.Status = queue.StatusChunking
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	// Only the stale item's heartbeat is older than the cutoff.
	time.Sleep(20 * time.Millisecond)
	cutoff := time.Now().UTC()
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", count)
	}

	reclaimed, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reclaimed.Status != queue.StatusRequirementsExtracted {
		t.Fatalf("expected rollback to requirements_extracted, got %s", reclaimed.Status)
	}
	if reclaimed.LastHeartbeat != nil {
		t.Fatal("expected reclaimed heartbeat cleared")
	}

	untouched, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusChunking {
		t.Fatalf("expected fresh item untouched, got %s", untouched.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := store.NewJob(ctx, "job-fail-1", "a.pdf", "/tmp/a.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	first.SetFailed("extraction blew up")
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	second, err := store.NewJob(ctx, "job-fail-2", "b.pdf", "/tmp/b.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	second.SetFailed("also failed")
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, first.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 item retried, got %d", count)
	}

	retried, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", retried.Status)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("expected error cleared, got %q", retried.ErrorMessage)
	}

	// Retrying a pending item is a no-op.
	count, err = store.RetryFailed(ctx, first.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no-op retry, got %d", count)
	}

	// No ids retries every remaining failed item.
	count, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected remaining failed item retried, got %d", count)
	}
}

func TestStopItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	running, err := store.NewJob(ctx, "job-stop-1", "a.pdf", "/tmp/a.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	running.Status = queue.StatusChunking
	if err := store.Update(ctx, running); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	done, err := store.NewJob(ctx, "job-stop-2", "b.pdf", "/tmp/b.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.StopItems(ctx, running.ID, done.ID)
	if err != nil {
		t.Fatalf("StopItems failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 item stopped, got %d", count)
	}

	stopped, err := store.GetByID(ctx, running.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stopped.Status != queue.StatusFailed {
		t.Fatalf("expected failed after stop, got %s", stopped.Status)
	}
	if !stopped.NeedsReview || stopped.ReviewReason != queue.UserStopReason {
		t.Fatalf("expected user stop review flag, got needs_review=%v reason=%q", stopped.NeedsReview, stopped.ReviewReason)
	}

	untouched, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusCompleted {
		t.Fatalf("completed item should not be stopped, got %s", untouched.Status)
	}

	// Stopped items are retryable like any other failure.
	count, err = store.RetryFailed(ctx, running.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected stopped item retried, got %d", count)
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := store.NewJob(ctx, "job-old", "old.pdf", "/tmp/old.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := store.NewJob(ctx, "job-new", "new.pdf", "/tmp/new.pdf", ""); err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	item, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if item == nil || item.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %#v", item)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusDeduped)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for unmatched status, got %#v", none)
	}
}

func TestRemoveAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewJob(ctx, "job-rm", "rm.pdf", "/tmp/rm.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	removed, err := store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected item removed")
	}
	removed, err = store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Fatal("expected second remove to report missing item")
	}

	done, err := store.NewJob(ctx, "job-done", "done.pdf", "/tmp/done.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 completed item cleared, got %d", cleared)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewJob(ctx, "job-p", "p.pdf", "/tmp/p.pdf", ""); err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	working, err := store.NewJob(ctx, "job-w", "w.pdf", "/tmp/w.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	working.Status = queue.StatusExtractingRequirement
	if err := store.Update(ctx, working); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed, err := store.NewJob(ctx, "job-f", "f.pdf", "/tmp/f.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	failed.SetFailed("nope")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusExtractingRequirement] != 1 || stats[queue.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Processing != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}

	dbHealth, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !dbHealth.DatabaseExists || !dbHealth.DatabaseReadable || !dbHealth.TableExists || !dbHealth.IntegrityCheck {
		t.Fatalf("unexpected database health: %#v", dbHealth)
	}
	if dbHealth.TotalItems != 3 {
		t.Fatalf("expected 3 items, got %d", dbHealth.TotalItems)
	}
}

func TestJobMetadataRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewJob(ctx, "job-meta", "m.pdf", "/tmp/m.pdf", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	meta, err := item.Metadata()
	if err != nil {
		t.Fatalf("Metadata on empty payload failed: %v", err)
	}
	if meta.Pages != 0 || len(meta.Warnings) != 0 {
		t.Fatalf("expected zero metadata, got %#v", meta)
	}

	meta.Pages = 12
	meta.Chunks = 3
	meta.Items = 7
	if err := item.SetMetadata(meta); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	if err := item.AddWarning("page 4 used OCR fallback"); err != nil {
		t.Fatalf("AddWarning failed: %v", err)
	}
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reloaded, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	got, err := reloaded.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if got.Pages != 12 || got.Chunks != 3 || got.Items != 7 {
		t.Fatalf("unexpected metadata: %#v", got)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != "page 4 used OCR fallback" {
		t.Fatalf("unexpected warnings: %#v", got.Warnings)
	}
}

func TestStatusHelpers(t *testing.T) {
	if status, ok := queue.ParseStatus(" Extracting_Requirements "); !ok || status != queue.StatusExtractingRequirement {
		t.Fatalf("ParseStatus failed: %v %v", status, ok)
	}
	if _, ok := queue.ParseStatus("never-a-status"); ok {
		t.Fatal("expected unknown status to be rejected")
	}

	for _, status := range []queue.Status{queue.StatusCompleted, queue.StatusFailed, queue.StatusReview} {
		if !queue.IsTerminal(status) {
			t.Fatalf("expected %s terminal", status)
		}
	}
	if queue.IsTerminal(queue.StatusDeduping) {
		t.Fatal("deduping is not terminal")
	}
	if !queue.IsProcessingStatus(queue.StatusSynthesizing) {
		t.Fatal("synthesizing should count as processing")
	}
	if queue.IsProcessingStatus(queue.StatusPending) {
		t.Fatal("pending should not count as processing")
	}

	if got := queue.StatusCompleted.ExternalStatus(); got != "done" {
		t.Fatalf("expected done, got %s", got)
	}
	if got := queue.StatusFailed.ExternalStatus(); got != "failed" {
		t.Fatalf("expected failed, got %s", got)
	}
	if got := queue.StatusChunking.ExternalStatus(); got != "running" {
		t.Fatalf("expected running, got %s", got)
	}
}
