package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"tenderlist/internal/logging"
	"tenderlist/internal/objectstore"
	"tenderlist/internal/tender"
)

// maxContextChars bounds the document context handed to the model per call.
const maxContextChars = 60000

// Service evaluates a job's user prompts against its extracted pages and
// persists the results.
type Service struct {
	files     objectstore.Store
	evaluator *Evaluator
	logger    *slog.Logger
}

// NewService constructs the prompt evaluation service.
func NewService(files objectstore.Store, evaluator *Evaluator, logger *slog.Logger) *Service {
	return &Service{
		files:     files,
		evaluator: evaluator,
		logger:    logging.NewComponentLogger(logger, "prompts"),
	}
}

// Run evaluates every prompt and persists prompt_results.json. Existing
// results are reloaded instead of re-evaluated. Individual prompt failures
// are recorded per-result; only storage problems return an error.
func (s *Service) Run(ctx context.Context, jobID string, prompts []tender.Prompt) ([]tender.PromptResult, error) {
	resultsKey := tender.KeyPromptResults(jobID)
	if existing, err := s.files.Get(ctx, resultsKey); err == nil {
		var results []tender.PromptResult
		if jsonErr := json.Unmarshal(existing, &results); jsonErr == nil {
			s.logger.Debug("prompt results exist, skipping evaluation",
				logging.String(logging.FieldJobID, jobID))
			return results, nil
		}
	}
	if len(prompts) == 0 {
		return nil, nil
	}

	docContext, err := s.buildContext(ctx, jobID)
	if err != nil {
		return nil, err
	}

	results := make([]tender.PromptResult, 0, len(prompts))
	for _, prompt := range prompts {
		results = append(results, s.evaluator.Evaluate(ctx, prompt, docContext))
	}

	encoded, err := tender.MarshalArtifact(results)
	if err != nil {
		return nil, err
	}
	if err := s.files.Put(ctx, resultsKey, encoded); err != nil {
		return nil, fmt.Errorf("persist prompt results: %w", err)
	}
	s.logger.Info("prompt evaluation complete",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("prompts", len(prompts)))
	return results, nil
}

// buildContext renders the extracted pages into the excerpt block shared by
// every prompt of a job, truncated at a character cap.
func (s *Service) buildContext(ctx context.Context, jobID string) (string, error) {
	data, err := s.files.Get(ctx, tender.KeyPages(jobID))
	if err != nil {
		return "", fmt.Errorf("load pages for prompt context: %w", err)
	}
	var pages []tender.Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return "", fmt.Errorf("decode pages for prompt context: %w", err)
	}

	var builder strings.Builder
	for _, page := range pages {
		if builder.Len() >= maxContextChars {
			break
		}
		fmt.Fprintf(&builder, "[Page %d]\n%s\n\n", page.PageNo, strings.TrimSpace(page.Text))
	}
	rendered := strings.TrimSpace(builder.String())
	if len(rendered) > maxContextChars {
		rendered = rendered[:maxContextChars]
	}
	return rendered, nil
}
