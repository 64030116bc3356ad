package prompts

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"tenderlist/internal/logging"
	"tenderlist/internal/tender"
)

type fakeCompleter struct {
	response string
	err      error
	system   string
	user     string
	calls    int
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	return f.response, f.err
}

func question(text string) tender.Prompt {
	return tender.Prompt{ID: "p1", Kind: tender.PromptQuestion, Text: text}
}

func condition(text string) tender.Prompt {
	return tender.Prompt{ID: "p2", Kind: tender.PromptCondition, Text: text}
}

func TestEvaluateQuestion(t *testing.T) {
	completer := &fakeCompleter{response: `{
		"answer": "The deadline is 2026-03-01.",
		"boolean_result": null,
		"confidence": 0.9,
		"evidence": "Submissions close on 2026-03-01.",
		"page_refs": [2, 2, 1],
		"status": "READY",
		"error": null
	}`}
	evaluator := NewEvaluator(completer, logging.NewNop())

	result := evaluator.Evaluate(context.Background(), question("What is the submission deadline?"), "[Page 1]\n...")
	if result.Status != tender.PromptStatusAnswered {
		t.Fatalf("Status = %q, want answered", result.Status)
	}
	if result.AnswerText != "The deadline is 2026-03-01." {
		t.Fatalf("AnswerText = %q", result.AnswerText)
	}
	if result.BooleanResult != nil {
		t.Fatalf("BooleanResult = %v, want nil", result.BooleanResult)
	}
	if result.Confidence != 0.9 {
		t.Fatalf("Confidence = %v", result.Confidence)
	}
	if !reflect.DeepEqual(result.PageRefs, []int{1, 2}) {
		t.Fatalf("PageRefs = %v, want sorted dedup [1 2]", result.PageRefs)
	}
	if len(result.Evidence) != 1 {
		t.Fatalf("Evidence = %v", result.Evidence)
	}
	if !strings.Contains(completer.user, "Question: What is the submission deadline?") {
		t.Fatalf("user prompt = %q", completer.user)
	}
	if !strings.Contains(completer.user, "[Page 1]") {
		t.Fatal("document context missing from user prompt")
	}
}

func TestEvaluateConditionCoercesBooleanStrings(t *testing.T) {
	cases := []struct {
		raw  string
		want *bool
	}{
		{`{"boolean_result": "yes"}`, boolPtr(true)},
		{`{"boolean_result": "No"}`, boolPtr(false)},
		{`{"boolean_result": "ja"}`, boolPtr(true)},
		{`{"boolean_result": "unclear"}`, nil},
		{`{"boolean_result": 1}`, boolPtr(true)},
		{`{"boolean_result": 0}`, boolPtr(false)},
		{`{"boolean_result": true}`, boolPtr(true)},
	}
	for _, tc := range cases {
		completer := &fakeCompleter{response: tc.raw}
		evaluator := NewEvaluator(completer, logging.NewNop())
		result := evaluator.Evaluate(context.Background(), condition("Bidder is ISO 9001 certified."), "ctx")
		if (result.BooleanResult == nil) != (tc.want == nil) {
			t.Fatalf("payload %q: BooleanResult = %v, want %v", tc.raw, result.BooleanResult, tc.want)
		}
		if tc.want != nil && *result.BooleanResult != *tc.want {
			t.Fatalf("payload %q: BooleanResult = %v, want %v", tc.raw, *result.BooleanResult, *tc.want)
		}
		if !strings.Contains(completer.user, "Condition: Bidder is ISO 9001 certified.") {
			t.Fatalf("user prompt = %q", completer.user)
		}
	}
}

func boolPtr(b bool) *bool { return &b }

func TestEvaluateModelErrorFieldMarksFailed(t *testing.T) {
	completer := &fakeCompleter{response: `{"answer": null, "error": "document unreadable"}`}
	evaluator := NewEvaluator(completer, logging.NewNop())

	result := evaluator.Evaluate(context.Background(), question("Anything?"), "ctx")
	if result.Status != tender.PromptStatusFailed {
		t.Fatalf("Status = %q, want failed", result.Status)
	}
	if result.Error != "document unreadable" {
		t.Fatalf("Error = %q", result.Error)
	}
}

func TestEvaluateCallFailureNeverPanics(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("llm down")}
	evaluator := NewEvaluator(completer, logging.NewNop())

	result := evaluator.Evaluate(context.Background(), question("Anything?"), "ctx")
	if result.Status != tender.PromptStatusFailed {
		t.Fatalf("Status = %q, want failed", result.Status)
	}
	if result.PromptID != "p1" {
		t.Fatalf("PromptID = %q", result.PromptID)
	}
}

func TestEvaluateInvalidJSONMarksFailed(t *testing.T) {
	completer := &fakeCompleter{response: "I cannot answer that."}
	evaluator := NewEvaluator(completer, logging.NewNop())

	result := evaluator.Evaluate(context.Background(), question("Anything?"), "ctx")
	if result.Status != tender.PromptStatusFailed {
		t.Fatalf("Status = %q, want failed", result.Status)
	}
}
