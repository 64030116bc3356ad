package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tenderlist/internal/logging"
	"tenderlist/internal/services/llm"
	"tenderlist/internal/tender"
)

// Completer is the slice of the LLM client the evaluator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const schemaHint = `{
  "answer": string|null,
  "boolean_result": true|false|null,
  "confidence": number|null,
  "evidence": string|null,
  "page_refs": [int...],
  "error": string|null,
  "status": string|null
}`

const questionSystemPrompt = "You answer tender-related questions using ONLY the provided document excerpts.\n" +
	"Return strict JSON with fields: answer, boolean_result, confidence, evidence, page_refs, status, error."

const conditionSystemPrompt = "You evaluate compliance conditions based on the provided document excerpts.\n" +
	"Return strict JSON with fields: answer, boolean_result, confidence, evidence, page_refs, status, error."

// Evaluator answers user prompts against the extracted document text.
type Evaluator struct {
	llm    Completer
	logger *slog.Logger
}

// NewEvaluator constructs a prompt evaluator.
func NewEvaluator(completer Completer, logger *slog.Logger) *Evaluator {
	return &Evaluator{llm: completer, logger: logging.NewComponentLogger(logger, "prompts")}
}

// Evaluate answers one prompt. It never returns an error: any failure
// yields a failed result so prompt evaluation cannot fail the job.
func (e *Evaluator) Evaluate(ctx context.Context, prompt tender.Prompt, docContext string) tender.PromptResult {
	systemPrompt := questionSystemPrompt
	var task string
	switch prompt.Kind {
	case tender.PromptCondition:
		systemPrompt = conditionSystemPrompt
		task = "Condition: " + strings.TrimSpace(prompt.Text) + "\n" +
			"Set boolean_result to true if the documents confirm the condition, false if they contradict it, null if unknown."
	default:
		task = "Question: " + strings.TrimSpace(prompt.Text) + "\n" +
			"If the answer cannot be found, set answer to null and include a brief explanation in evidence."
	}

	userPrompt := fmt.Sprintf("%s\n\nDocument excerpts:\n---\n%s\n---", task, docContext)
	raw, err := e.llm.CompleteJSON(ctx, systemPrompt+"\nRespond ONLY with JSON matching: "+schemaHint, userPrompt)
	if err != nil {
		e.logger.Warn("prompt evaluation call failed",
			logging.String("prompt_id", prompt.ID),
			logging.Error(err))
		return failedResult(prompt, err.Error())
	}

	var payload map[string]any
	if err := llm.DecodeLLMJSON(raw, &payload); err != nil {
		e.logger.Warn("prompt evaluation returned unusable payload",
			logging.String("prompt_id", prompt.ID),
			logging.Error(err))
		return failedResult(prompt, "model returned invalid JSON")
	}
	return normalizePayload(prompt, payload)
}

func failedResult(prompt tender.Prompt, message string) tender.PromptResult {
	return tender.PromptResult{
		PromptID: prompt.ID,
		PageRefs: []int{},
		Status:   tender.PromptStatusFailed,
		Error:    message,
	}
}

// normalizePayload coerces a loosely-typed model payload into a
// PromptResult: boolean strings and numbers become bools, unparseable
// confidences drop to zero, page refs keep only integer values.
func normalizePayload(prompt tender.Prompt, data map[string]any) tender.PromptResult {
	result := tender.PromptResult{PromptID: prompt.ID, PageRefs: []int{}}

	answer, ok := data["answer"].(string)
	if !ok || answer == "" {
		answer, _ = data["answer_text"].(string)
	}
	result.AnswerText = strings.TrimSpace(answer)

	result.BooleanResult = coerceBool(data["boolean_result"])

	if confidence, ok := data["confidence"].(float64); ok {
		result.Confidence = confidence
	}

	switch evidence := data["evidence"].(type) {
	case string:
		if trimmed := strings.TrimSpace(evidence); trimmed != "" {
			result.Evidence = []string{trimmed}
		}
	case []any:
		for _, entry := range evidence {
			if text, ok := entry.(string); ok && strings.TrimSpace(text) != "" {
				result.Evidence = append(result.Evidence, strings.TrimSpace(text))
			}
		}
	}

	if refs, ok := data["page_refs"].([]any); ok {
		for _, ref := range refs {
			if page, ok := ref.(float64); ok && page == float64(int(page)) {
				result.PageRefs = append(result.PageRefs, int(page))
			}
		}
	}
	result.PageRefs = tender.NormalizePageRefs(result.PageRefs)

	if errText, ok := data["error"].(string); ok {
		result.Error = strings.TrimSpace(errText)
	}
	if result.Error != "" {
		result.Status = tender.PromptStatusFailed
	} else {
		result.Status = tender.PromptStatusAnswered
	}
	return result
}

func coerceBool(value any) *bool {
	switch v := value.(type) {
	case bool:
		return &v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "ja":
			yes := true
			return &yes
		case "false", "no", "nein":
			no := false
			return &no
		}
	case float64:
		b := v != 0
		return &b
	}
	return nil
}
