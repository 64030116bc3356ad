package synthesis

import (
	"context"
	"log/slog"
	"strings"

	"tenderlist/internal/logging"
	"tenderlist/internal/services/llm"
)

// Completer is the slice of the LLM client the date resolver needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const dateSystemPrompt = "You interpret free-form deadline phrases from procurement documents.\n" +
	"Return STRICT JSON of the form {\"date\": \"YYYY-MM-DD\"} or {\"date\": null} when no date can be determined.\n" +
	"Do not include any additional text outside JSON."

// LLMDateResolver asks the language model to interpret deadline phrases the
// fixed patterns cannot parse.
type LLMDateResolver struct {
	llm    Completer
	logger *slog.Logger
}

// NewLLMDateResolver constructs the fallback resolver.
func NewLLMDateResolver(completer Completer, logger *slog.Logger) *LLMDateResolver {
	return &LLMDateResolver{llm: completer, logger: logging.NewComponentLogger(logger, "synthesis")}
}

// ResolveDate interprets the phrase, returning an ISO date or empty when
// the model cannot determine one. Model answers that are not themselves
// parseable dates are discarded rather than propagated.
func (r *LLMDateResolver) ResolveDate(ctx context.Context, phrase string) (string, error) {
	raw, err := r.llm.CompleteJSON(ctx, dateSystemPrompt, "Deadline phrase: "+phrase)
	if err != nil {
		return "", err
	}
	var payload struct {
		Date *string `json:"date"`
	}
	if err := llm.DecodeLLMJSON(raw, &payload); err != nil {
		r.logger.Warn("date fallback returned unusable payload", logging.Error(err))
		return "", nil
	}
	if payload.Date == nil {
		return "", nil
	}
	date, ok := ParseDate(strings.TrimSpace(*payload.Date))
	if !ok {
		r.logger.Warn("date fallback answer is not a date",
			logging.String("answer", *payload.Date))
		return "", nil
	}
	return date, nil
}
