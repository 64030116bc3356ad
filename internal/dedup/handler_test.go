package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/queue"
	"tenderlist/internal/services"
	"tenderlist/internal/tender"
	"tenderlist/internal/testsupport"
)

func newHandlerFixture(t *testing.T, embedder Embedder) (*Handler, *objectstore.FileStore, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	files := testsupport.MustOpenObjectStore(t, cfg)
	return NewHandler(store, files, embedder, 0.95, logging.NewNop()), files, store
}

func putChunkResult(t *testing.T, files objectstore.Store, jobID string, result tender.ChunkResult) {
	t.Helper()
	encoded, err := tender.MarshalArtifact(result)
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	if err := files.Put(context.Background(), tender.KeyLLMOutput(jobID, result.ChunkID), encoded); err != nil {
		t.Fatalf("Put chunk result: %v", err)
	}
}

func TestHandlerExecuteMergesAcrossChunks(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"submit three copies.":     unitVector(0),
		"submit three (3) copies.": unitVector(10),
	}}
	handler, files, store := newHandlerFixture(t, embedder)
	ctx := context.Background()

	item := testsupport.NewJob(t, store, "job-a", "tender.pdf")
	putChunkResult(t, files, "job-a", tender.ChunkResult{
		ChunkID: "chunk_0000", ChunkIndex: 0, State: tender.ChunkStateValid, Model: "primary",
		Requirements: []tender.Requirement{req("chunk_0000-r0000", "Submit three copies.", 2)},
	})
	putChunkResult(t, files, "job-a", tender.ChunkResult{
		ChunkID: "chunk_0001", ChunkIndex: 1, State: tender.ChunkStateValid, Model: "primary",
		Requirements: []tender.Requirement{req("chunk_0001-r0000", "Submit three (3) copies.", 5)},
	})
	putChunkResult(t, files, "job-a", tender.ChunkResult{
		ChunkID: "chunk_0002", ChunkIndex: 2, State: tender.ChunkStateFailed, Error: "exhausted",
	})

	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	data, err := files.Get(ctx, tender.KeyMergedRequirements("job-a"))
	if err != nil {
		t.Fatalf("merged artifact missing: %v", err)
	}
	var merged []tender.Requirement
	if err := json.Unmarshal(data, &merged); err != nil {
		t.Fatalf("decode merged: %v", err)
	}
	if len(merged) != 1 {
		t.Fatalf("merged = %d requirements, want 1", len(merged))
	}

	meta, err := item.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.MergedCount != 1 {
		t.Fatalf("meta.MergedCount = %d, want 1", meta.MergedCount)
	}
}

func TestHandlerExecuteSkipsWhenMergedExists(t *testing.T) {
	embedder := &fakeEmbedder{}
	handler, files, store := newHandlerFixture(t, embedder)
	ctx := context.Background()

	item := testsupport.NewJob(t, store, "job-b", "tender.pdf")
	existing := []tender.Requirement{req("chunk_0000-r0000", "Submit three copies.", 2)}
	encoded, err := tender.MarshalArtifact(existing)
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	if err := files.Put(ctx, tender.KeyMergedRequirements("job-b"), encoded); err != nil {
		t.Fatalf("Put merged: %v", err)
	}

	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if embedder.calls != 0 {
		t.Fatalf("embedder calls = %d, want 0 (idempotent skip)", embedder.calls)
	}
	meta, err := item.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.MergedCount != 1 {
		t.Fatalf("meta.MergedCount = %d, want 1", meta.MergedCount)
	}
}

func TestHandlerExecuteFailsWithoutChunkResults(t *testing.T) {
	handler, _, store := newHandlerFixture(t, &fakeEmbedder{})

	item := testsupport.NewJob(t, store, "job-c", "tender.pdf")
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
