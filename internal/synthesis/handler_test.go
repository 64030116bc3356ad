package synthesis

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/queue"
	"tenderlist/internal/services"
	"tenderlist/internal/tender"
	"tenderlist/internal/testsupport"
)

func newHandlerFixture(t *testing.T) (*Handler, *objectstore.FileStore, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	files := testsupport.MustOpenObjectStore(t, cfg)
	synth := NewSynthesizer(nil, logging.NewNop())
	return NewHandler(store, files, synth, logging.NewNop()), files, store
}

func putMerged(t *testing.T, files objectstore.Store, jobID string, requirements []tender.Requirement) {
	t.Helper()
	encoded, err := tender.MarshalArtifact(requirements)
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	if err := files.Put(context.Background(), tender.KeyMergedRequirements(jobID), encoded); err != nil {
		t.Fatalf("Put merged: %v", err)
	}
}

func TestHandlerExecuteWritesChecklist(t *testing.T) {
	handler, files, store := newHandlerFixture(t)
	ctx := context.Background()

	item := testsupport.NewJob(t, store, "job-a", "tender.pdf")
	putMerged(t, files, "job-a", []tender.Requirement{{
		ID:          "chunk_0000-r0000",
		PageRefs:    []int{2},
		Text:        "Submit three copies of the technical proposal.",
		Category:    tender.CategorySubmission,
		IsMandatory: true,
	}})

	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, err := files.Get(ctx, tender.KeyChecklist("job-a")); err != nil {
		t.Fatalf("checklist artifact missing: %v", err)
	}
	meta, err := item.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Items != 1 {
		t.Fatalf("meta.Items = %d, want 1", meta.Items)
	}
}

func TestHandlerExecuteIdempotentBytes(t *testing.T) {
	handler, files, store := newHandlerFixture(t)
	ctx := context.Background()

	item := testsupport.NewJob(t, store, "job-b", "tender.pdf")
	putMerged(t, files, "job-b", []tender.Requirement{{
		ID:          "chunk_0000-r0000",
		PageRefs:    []int{1, 4},
		Text:        "Provide a bid bond of 2% of the contract value.",
		Category:    tender.CategoryFinancial,
		IsMandatory: true,
	}})

	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	first, err := files.Get(ctx, tender.KeyChecklist("job-b"))
	if err != nil {
		t.Fatalf("Get checklist: %v", err)
	}

	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	second, err := files.Get(ctx, tender.KeyChecklist("job-b"))
	if err != nil {
		t.Fatalf("Get checklist: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("checklist bytes changed across re-delivery")
	}
}

func TestHandlerExecuteFailsWithoutMergedRequirements(t *testing.T) {
	handler, _, store := newHandlerFixture(t)

	item := testsupport.NewJob(t, store, "job-c", "tender.pdf")
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
