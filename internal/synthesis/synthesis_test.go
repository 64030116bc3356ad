package synthesis

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"tenderlist/internal/logging"
	"tenderlist/internal/tender"
)

func strPtr(s string) *string { return &s }

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2026-03-01", "2026-03-01", true},
		{"by 2026-03-01 at noon", "2026-03-01", true},
		{"03/01/2026", "2026-03-01", true},
		{"3/1/2026", "2026-03-01", true},
		{"03-01-2026", "2026-03-01", true},
		{"2 March 2026", "2026-03-02", true},
		{"2nd March 2026", "2026-03-02", true},
		{"March 2, 2026", "2026-03-02", true},
		{"no later than 15 january 2027", "2027-01-15", true},
		{"2026-13-40", "", false},
		{"within 30 days of award", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseDate(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"submit three copies of the technical proposal.", "Submit Three Copies Of The Technical Proposal"},
		{
			"bidders must provide audited financial statements covering the last three full fiscal years before submission",
			"Bidders Must Provide Audited Financial Statements Covering The Last Three Full Fiscal",
		},
	}
	for _, tc := range cases {
		if got := Title(tc.in); got != tc.want {
			t.Fatalf("Title(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

type fakeResolver struct {
	answer string
	err    error
	calls  []string
}

func (f *fakeResolver) ResolveDate(_ context.Context, phrase string) (string, error) {
	f.calls = append(f.calls, phrase)
	return f.answer, f.err
}

func TestSynthesizeBuildsItems(t *testing.T) {
	synth := NewSynthesizer(nil, logging.NewNop())
	requirements := []tender.Requirement{
		{
			ID:          "chunk_0000-r0000",
			PageRefs:    []int{2, 5},
			Text:        "Submit three copies of the technical proposal.",
			Category:    tender.CategorySubmission,
			IsMandatory: true,
			Deadline:    strPtr("2026-03-01"),
			SourceQuote: strPtr("three copies"),
		},
		{
			ID:          "chunk_0001-r0000",
			PageRefs:    []int{8},
			Text:        "Suppliers should hold ISO 9001 certification.",
			Category:    tender.CategoryTechnical,
			IsMandatory: false,
		},
	}

	checklist, err := synth.Synthesize(context.Background(), "job-a", requirements)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if checklist.JobID != "job-a" || len(checklist.Items) != 2 {
		t.Fatalf("checklist = %+v", checklist)
	}

	first := checklist.Items[0]
	if first.ID != "chunk_0000-r0000" {
		t.Fatalf("ID = %q", first.ID)
	}
	if first.Status != tender.ChecklistItemStatusOpen {
		t.Fatalf("Status = %q, want open", first.Status)
	}
	if first.DueDate == nil || *first.DueDate != "2026-03-01" {
		t.Fatalf("DueDate = %v, want 2026-03-01", first.DueDate)
	}
	if first.EvidenceRequired == nil || !*first.EvidenceRequired {
		t.Fatalf("EvidenceRequired = %v, want true", first.EvidenceRequired)
	}
	if first.Description != requirements[0].Text {
		t.Fatalf("Description = %q", first.Description)
	}

	second := checklist.Items[1]
	if second.DueDate != nil {
		t.Fatalf("DueDate = %v, want nil for missing deadline", second.DueDate)
	}
	if second.EvidenceRequired == nil || *second.EvidenceRequired {
		t.Fatalf("EvidenceRequired = %v, want false without source quote", second.EvidenceRequired)
	}
	if second.IsMandatory {
		t.Fatal("IsMandatory leaked")
	}
}

func TestSynthesizeFallsBackToResolverOnPatternMiss(t *testing.T) {
	resolver := &fakeResolver{answer: "2026-04-30"}
	synth := NewSynthesizer(resolver, logging.NewNop())

	checklist, err := synth.Synthesize(context.Background(), "job-b", []tender.Requirement{{
		ID:       "chunk_0000-r0000",
		PageRefs: []int{1},
		Text:     "Submit by end of April 2026 at the latest.",
		Category: tender.CategorySubmission,
		Deadline: strPtr("end of April 2026"),
	}})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(resolver.calls) != 1 || resolver.calls[0] != "end of April 2026" {
		t.Fatalf("resolver calls = %v", resolver.calls)
	}
	item := checklist.Items[0]
	if item.DueDate == nil || *item.DueDate != "2026-04-30" {
		t.Fatalf("DueDate = %v, want resolver answer", item.DueDate)
	}
}

func TestSynthesizeSkipsResolverWhenPatternMatches(t *testing.T) {
	resolver := &fakeResolver{answer: "1999-01-01"}
	synth := NewSynthesizer(resolver, logging.NewNop())

	checklist, err := synth.Synthesize(context.Background(), "job-c", []tender.Requirement{{
		ID:       "chunk_0000-r0000",
		PageRefs: []int{1},
		Text:     "Submit by 2 March 2026.",
		Category: tender.CategorySubmission,
		Deadline: strPtr("2 March 2026"),
	}})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(resolver.calls) != 0 {
		t.Fatalf("resolver calls = %v, want none", resolver.calls)
	}
	if *checklist.Items[0].DueDate != "2026-03-02" {
		t.Fatalf("DueDate = %q", *checklist.Items[0].DueDate)
	}
}

func TestSynthesizeToleratesResolverFailure(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("llm down")}
	synth := NewSynthesizer(resolver, logging.NewNop())

	checklist, err := synth.Synthesize(context.Background(), "job-d", []tender.Requirement{{
		ID:       "chunk_0000-r0000",
		PageRefs: []int{1},
		Text:     "Submit promptly.",
		Category: tender.CategorySubmission,
		Deadline: strPtr("as soon as practicable"),
	}})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if checklist.Items[0].DueDate != nil {
		t.Fatalf("DueDate = %v, want nil when fallback fails", checklist.Items[0].DueDate)
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	synth := NewSynthesizer(nil, logging.NewNop())
	requirements := []tender.Requirement{{
		ID:          "chunk_0000-r0000",
		PageRefs:    []int{3, 1},
		Text:        "Provide a bid bond of 2% of the contract value.",
		Category:    tender.CategoryFinancial,
		IsMandatory: true,
		Deadline:    strPtr("2026-03-01"),
	}}

	first, err := synth.Synthesize(context.Background(), "job-e", requirements)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	second, err := synth.Synthesize(context.Background(), "job-e", requirements)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	a, err := tender.MarshalArtifact(first)
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	b, err := tender.MarshalArtifact(second)
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("checklist bytes differ between identical runs")
	}
}
