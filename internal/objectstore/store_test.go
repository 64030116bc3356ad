package objectstore

import (
	"context"
	"errors"
	"testing"

	"tenderlist/internal/services"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := "jobs/job-1/pages.json"
	if err := store.Put(ctx, key, []byte(`{"pages":[]}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"pages":[]}` {
		t.Fatalf("unexpected content: %s", data)
	}

	ok, err := store.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatal("expected object to exist")
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "jobs/missing/raw.pdf")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "jobs/job-1/status.json"

	if err := store.Put(ctx, key, []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, key, []byte("two")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("expected overwrite, got %s", data)
	}
}

func TestListReturnsSortedKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{
		"jobs/job-1/chunks/chunk_0002.json",
		"jobs/job-1/chunks/chunk_0000.json",
		"jobs/job-1/chunks/chunk_0001.json",
		"jobs/job-2/chunks/chunk_0000.json",
	} {
		if err := store.Put(ctx, key, []byte("{}")); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	keys, err := store.List(ctx, "jobs/job-1/chunks")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		"jobs/job-1/chunks/chunk_0000.json",
		"jobs/job-1/chunks/chunk_0001.json",
		"jobs/job-1/chunks/chunk_0002.json",
	}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d: %v", len(keys), len(want), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestListMissingPrefixIsEmpty(t *testing.T) {
	store := newTestStore(t)
	keys, err := store.List(context.Background(), "jobs/nothing")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestDeleteAndDeletePrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "jobs/job-1/raw.pdf", []byte("pdf")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, "jobs/job-1/raw.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err := store.Exists(ctx, "jobs/job-1/raw.pdf")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("object should be gone")
	}

	// Deleting a missing object is not an error.
	if err := store.Delete(ctx, "jobs/job-1/raw.pdf"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}

	if err := store.Put(ctx, "jobs/job-2/a.json", []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "jobs/job-2/b.json", []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.DeletePrefix(ctx, "jobs/job-2"); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	keys, err := store.List(ctx, "jobs/job-2")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected prefix cleared, got %v", keys)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store := newTestStore(t)
	err := store.Put(context.Background(), "../escape", []byte("no"))
	if err == nil {
		t.Fatal("expected error for traversal key")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
