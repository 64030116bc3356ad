package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tenderlist/internal/apiclient"
	"tenderlist/internal/daemon"
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

func startServer(t *testing.T) (*Client, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
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

	d, err := daemon.New(cfg, store, nop, m)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })

	socket := filepath.Join(t.TempDir(), "d.sock")
	srv, err := NewServer(context.Background(), socket, d, nop)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := Dial(socket)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, store
}

func TestStatusOverSocket(t *testing.T) {
	client, store := startServer(t)
	testsupport.NewJob(t, store, "job-ipc", "tender.pdf")

	resp, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if resp.Running {
		t.Fatal("daemon reported running before Start")
	}
	if resp.QueueStats["pending"] != 1 {
		t.Fatalf("pending = %d, want 1", resp.QueueStats["pending"])
	}
	if len(resp.StageHealth) != 5 {
		t.Fatalf("stage health entries = %d, want 5", len(resp.StageHealth))
	}
	for _, health := range resp.StageHealth {
		if !health.Ready {
			t.Fatalf("stage %s not ready: %s", health.Name, health.Detail)
		}
	}
	if resp.QueueDBPath == "" || resp.LockPath == "" || resp.PID == 0 {
		t.Fatalf("incomplete status: %+v", resp)
	}
}

func TestHealthOverSocket(t *testing.T) {
	client, store := startServer(t)
	testsupport.NewJob(t, store, "job-health", "tender.pdf")

	resp, err := client.Health()
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if resp.Total != 1 || resp.Pending != 1 {
		t.Fatalf("health = %+v, want one pending item", resp)
	}

	db, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth: %v", err)
	}
	if !db.DatabaseExists || !db.TableExists || db.TotalItems != 1 {
		t.Fatalf("database health = %+v", db)
	}
}

func TestStopOverSocket(t *testing.T) {
	client, _ := startServer(t)

	resp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !resp.Stopped {
		t.Fatal("stop not acknowledged")
	}
}

func TestServerCloseRemovesSocket(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	files := testsupport.MustOpenObjectStore(t, cfg)
	nop := logging.NewNop()
	m := workflow.NewManager(cfg, store, files, apiclient.New(apiclient.Config{}, nop), nop)
	m.ConfigureStages(workflow.StageSet{TextExtractor: idleHandler{name: "textextract"}})
	d, err := daemon.New(cfg, store, nop, m)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	socket := filepath.Join(t.TempDir(), "d.sock")
	srv, err := NewServer(context.Background(), socket, d, nop)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	srv.Close()

	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("socket still present after Close: %v", err)
	}
}
