package prompts

import (
	"context"
	"encoding/json"
	"testing"

	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/tender"
)

func newServiceFixture(t *testing.T, completer Completer) (*Service, *objectstore.FileStore) {
	t.Helper()
	files, err := objectstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	evaluator := NewEvaluator(completer, logging.NewNop())
	return NewService(files, evaluator, logging.NewNop()), files
}

func putPages(t *testing.T, files objectstore.Store, jobID string) {
	t.Helper()
	pages := []tender.Page{{PageNo: 1, Text: "Submissions close on 2026-03-01.", Source: tender.PageSourceNative}}
	encoded, err := tender.MarshalArtifact(pages)
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	if err := files.Put(context.Background(), tender.KeyPages(jobID), encoded); err != nil {
		t.Fatalf("Put pages: %v", err)
	}
}

func TestServiceRunPersistsResults(t *testing.T) {
	completer := &fakeCompleter{response: `{"answer": "2026-03-01", "confidence": 1, "page_refs": [1]}`}
	service, files := newServiceFixture(t, completer)
	ctx := context.Background()
	putPages(t, files, "job-a")

	results, err := service.Run(ctx, "job-a", []tender.Prompt{question("When is the deadline?")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].Status != tender.PromptStatusAnswered {
		t.Fatalf("results = %+v", results)
	}

	data, err := files.Get(ctx, tender.KeyPromptResults("job-a"))
	if err != nil {
		t.Fatalf("results artifact missing: %v", err)
	}
	var stored []tender.PromptResult
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("decode stored results: %v", err)
	}
	if len(stored) != 1 || stored[0].PromptID != "p1" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestServiceRunSkipsWhenResultsExist(t *testing.T) {
	completer := &fakeCompleter{response: `{"answer": "unused"}`}
	service, files := newServiceFixture(t, completer)
	ctx := context.Background()

	existing := []tender.PromptResult{{PromptID: "p1", Status: tender.PromptStatusAnswered, PageRefs: []int{}}}
	encoded, err := tender.MarshalArtifact(existing)
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	if err := files.Put(ctx, tender.KeyPromptResults("job-b"), encoded); err != nil {
		t.Fatalf("Put results: %v", err)
	}

	results, err := service.Run(ctx, "job-b", []tender.Prompt{question("Anything?")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].PromptID != "p1" {
		t.Fatalf("results = %+v", results)
	}
	if completer.calls != 0 {
		t.Fatalf("completer calls = %d, want 0 (idempotent skip)", completer.calls)
	}
}

func TestServiceRunNoPrompts(t *testing.T) {
	completer := &fakeCompleter{}
	service, files := newServiceFixture(t, completer)

	results, err := service.Run(context.Background(), "job-c", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results != nil {
		t.Fatalf("results = %+v, want nil", results)
	}
	if completer.calls != 0 {
		t.Fatalf("completer calls = %d, want 0", completer.calls)
	}
	if _, err := files.Get(context.Background(), tender.KeyPromptResults("job-c")); err == nil {
		t.Fatal("no artifact expected when a job has no prompts")
	}
}
