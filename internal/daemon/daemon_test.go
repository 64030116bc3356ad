package daemon

import (
	"context"
	"testing"

	"tenderlist/internal/apiclient"
	"tenderlist/internal/config"
	"tenderlist/internal/logging"
	"tenderlist/internal/queue"
	"tenderlist/internal/stage"
	"tenderlist/internal/testsupport"
	"tenderlist/internal/workflow"
)

type idleHandler struct{ name string }

func (h idleHandler) Prepare(_ context.Context, _ *queue.Item) error { return nil }
func (h idleHandler) Execute(_ context.Context, _ *queue.Item) error { return nil }
func (h idleHandler) HealthCheck(_ context.Context) stage.Health     { return stage.Healthy(h.name) }

func newTestDaemon(t *testing.T, cfg *config.Config) (*Daemon, *queue.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	files := testsupport.MustOpenObjectStore(t, cfg)
	nop := logging.NewNop()

	m := workflow.NewManager(cfg, store, files, apiclient.New(apiclient.Config{}, nop), nop)
	m.ConfigureStages(workflow.StageSet{
		TextExtractor: idleHandler{name: "textextract"},
		Chunker:       idleHandler{name: "chunking"},
		Extractor:     idleHandler{name: "extraction"},
		Deduplicator:  idleHandler{name: "dedup"},
		Finalizer:     idleHandler{name: "finalize"},
	})

	d, err := New(cfg, store, nop, m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	d, _ := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start succeeded")
	}

	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("status = %+v, want running", status)
	}
	if status.QueueDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("status paths missing: %+v", status)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("daemon still running after Stop")
	}
	d.Stop() // second Stop is a no-op
}

func TestDaemonLockConflict(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	first, _ := newTestDaemon(t, cfg)
	second, _ := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second daemon acquired the lock while the first held it")
	}
}

func TestDaemonResetStuck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	d, store := newTestDaemon(t, cfg)

	ctx := context.Background()
	item := testsupport.NewJob(t, store, "job-stuck", "tender.pdf")
	item.Status = queue.StatusExtractingText
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reset, err := d.ResetStuck(ctx)
	if err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	reloaded, err := store.GetByJobID(ctx, "job-stuck")
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if reloaded.Status != queue.StatusPending {
		t.Fatalf("status = %q, want pending after stuck reset", reloaded.Status)
	}
}
