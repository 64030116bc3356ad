package testsupport

import (
	"context"
	"testing"

	"tenderlist/internal/config"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenObjectStore opens the file-backed object store rooted at the
// config's store directory.
func MustOpenObjectStore(t testing.TB, cfg *config.Config) *objectstore.FileStore {
	t.Helper()

	store, err := objectstore.NewFileStore(cfg.Paths.StoreDir)
	if err != nil {
		t.Fatalf("objectstore.NewFileStore: %v", err)
	}
	return store
}

// NewJob creates a queue item for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, jobID, filename string) *queue.Item {
	t.Helper()

	item, err := store.NewJob(context.Background(), jobID, filename, "/tmp/"+filename, "")
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return item
}
