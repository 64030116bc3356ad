package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tenderlist/internal/logging"
	"tenderlist/internal/tender"
)

func TestClientDisabledWithoutCredentials(t *testing.T) {
	client := New(Config{}, logging.NewNop())
	if client.Enabled() {
		t.Fatal("client without base URL and token must be disabled")
	}
	ctx := context.Background()
	if err := client.MarkProcessing(ctx, "job-a"); err != nil {
		t.Fatalf("MarkProcessing on disabled client: %v", err)
	}
	if err := client.IngestChecklist(ctx, "job-a", tender.Checklist{}, nil, IngestMeta{}); err != nil {
		t.Fatalf("IngestChecklist on disabled client: %v", err)
	}
	prompts, err := client.FetchPrompts(ctx, "job-a")
	if err != nil || prompts != nil {
		t.Fatalf("FetchPrompts on disabled client = (%v, %v)", prompts, err)
	}
}

func TestMarkProcessingAndFailed(t *testing.T) {
	type recorded struct {
		path    string
		auth    string
		payload map[string]any
	}
	var calls []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		calls = append(calls, recorded{path: r.URL.Path, auth: r.Header.Get("Authorization"), payload: payload})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, IngestToken: "secret"}, logging.NewNop())
	ctx := context.Background()
	if err := client.MarkProcessing(ctx, "job-a"); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := client.MarkFailed(ctx, "job-a", "all chunks failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].path != "/api/internal/checklists/job-a/status" {
		t.Fatalf("path = %q", calls[0].path)
	}
	if calls[0].auth != "Bearer secret" {
		t.Fatalf("auth = %q", calls[0].auth)
	}
	if calls[0].payload["status"] != "PROCESSING" {
		t.Fatalf("first payload = %v", calls[0].payload)
	}
	if calls[1].payload["status"] != "FAILED" || calls[1].payload["error"] != "all chunks failed" {
		t.Fatalf("second payload = %v", calls[1].payload)
	}
}

func TestIngestChecklistPayload(t *testing.T) {
	var gotPath string
	var payload struct {
		Items   []tender.ChecklistItem `json:"items"`
		Meta    IngestMeta             `json:"meta"`
		Prompts []tender.PromptResult  `json:"prompts"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode ingest payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, IngestToken: "secret"}, logging.NewNop())
	checklist := tender.Checklist{JobID: "job-b", Items: []tender.ChecklistItem{{
		ID: "chunk_0000-r0000", Title: "Submit Three Copies", Status: tender.ChecklistItemStatusOpen,
	}}}
	err := client.IngestChecklist(context.Background(), "job-b", checklist, nil, IngestMeta{ItemCount: 1, DurationSeconds: 4.2})
	if err != nil {
		t.Fatalf("IngestChecklist: %v", err)
	}

	if gotPath != "/api/internal/checklists/job-b/ingest" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(payload.Items) != 1 || payload.Items[0].ID != "chunk_0000-r0000" {
		t.Fatalf("items = %+v", payload.Items)
	}
	if payload.Meta.ItemCount != 1 {
		t.Fatalf("meta = %+v", payload.Meta)
	}
	if payload.Prompts == nil {
		t.Fatal("prompts must encode as an empty array, not null")
	}
}

func TestIngestChecklistFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, IngestToken: "secret"}, logging.NewNop())
	err := client.IngestChecklist(context.Background(), "job-c", tender.Checklist{}, nil, IngestMeta{})
	if err == nil {
		t.Fatal("expected error from 502 ingest")
	}
}

func TestFetchPrompts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/checklists/job-d/prompts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":"p1","kind":"QUESTION","text":"What is the submission deadline?"}]`)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, IngestToken: "secret"}, logging.NewNop())
	prompts, err := client.FetchPrompts(context.Background(), "job-d")
	if err != nil {
		t.Fatalf("FetchPrompts: %v", err)
	}
	if len(prompts) != 1 || prompts[0].Kind != tender.PromptQuestion {
		t.Fatalf("prompts = %+v", prompts)
	}
}
