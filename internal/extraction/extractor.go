package extraction

import (
	"context"
	"log/slog"
	"strings"

	"tenderlist/internal/logging"
	"tenderlist/internal/services"
	"tenderlist/internal/tender"
)

// Completer is the slice of the LLM client the extractor needs. The client
// handles transient retries (timeouts, rate limits, 5xx) internally; by the
// time an error surfaces here the tier is exhausted.
type Completer interface {
	CompleteJSONModel(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// ModelTiers names the three model tiers of the escalation ladder.
type ModelTiers struct {
	Primary  string
	Repair   string
	Fallback string
}

// Extractor runs the per-chunk extraction state machine: primary call,
// schema validation, JSON repair, fallback-model escalation.
type Extractor struct {
	llm    Completer
	tiers  ModelTiers
	logger *slog.Logger
}

// NewExtractor constructs a chunk extractor. Empty repair/fallback tiers
// default to the primary model.
func NewExtractor(completer Completer, tiers ModelTiers, logger *slog.Logger) *Extractor {
	if tiers.Repair == "" {
		tiers.Repair = tiers.Primary
	}
	if tiers.Fallback == "" {
		tiers.Fallback = tiers.Primary
	}
	return &Extractor{
		llm:    completer,
		tiers:  tiers,
		logger: logging.NewComponentLogger(logger, "extraction"),
	}
}

// Outcome is the terminal result of one chunk's state machine, plus the raw
// responses retained for diagnosis.
type Outcome struct {
	Result      tender.ChunkResult
	RawPrimary  string
	RawRepaired string
	RawFallback string
}

// ExtractChunk drives one chunk to a terminal state. It never returns an
// error: a chunk that exhausts every tier yields a failed result, which the
// caller records without aborting the job.
func (e *Extractor) ExtractChunk(ctx context.Context, chunk tender.Chunk) Outcome {
	log := e.logger.With(logging.String(logging.FieldChunkID, chunk.ChunkID))
	outcome := Outcome{Result: tender.ChunkResult{
		ChunkID:      chunk.ChunkID,
		ChunkIndex:   chunk.Index,
		Requirements: []tender.Requirement{},
	}}

	raw, err := e.llm.CompleteJSONModel(ctx, e.tiers.Primary, extractionSystemPrompt, extractionUserPrompt(chunk))
	if err != nil {
		log.Warn("primary extraction call failed", logging.Error(err))
		return e.failed(outcome, err)
	}
	outcome.RawPrimary = raw

	requirements, validationErr := parseResponse(chunk, raw)
	if validationErr == nil {
		return e.valid(outcome, requirements, e.tiers.Primary)
	}
	log.Info("primary response failed validation, repairing",
		logging.String("reason", services.StatusMessage(validationErr)))

	repaired, repairErr := e.llm.CompleteJSONModel(ctx, e.tiers.Repair, repairSystemPrompt, raw)
	if repairErr == nil {
		outcome.RawRepaired = repaired
		requirements, validationErr = parseResponse(chunk, repaired)
		if validationErr == nil {
			return e.valid(outcome, requirements, e.tiers.Repair)
		}
	} else {
		log.Warn("repair call failed", logging.Error(repairErr))
	}
	log.Info("repair unsuccessful, escalating to fallback model",
		logging.String("model", e.tiers.Fallback))

	fallbackRaw, fallbackErr := e.llm.CompleteJSONModel(ctx, e.tiers.Fallback, extractionSystemPrompt, extractionUserPrompt(chunk))
	if fallbackErr != nil {
		log.Warn("fallback extraction call failed", logging.Error(fallbackErr))
		return e.failed(outcome, fallbackErr)
	}
	outcome.RawFallback = fallbackRaw

	requirements, validationErr = parseResponse(chunk, fallbackRaw)
	if validationErr == nil {
		return e.valid(outcome, requirements, e.tiers.Fallback)
	}
	log.Warn("fallback response failed validation, chunk exhausted",
		logging.String("reason", services.StatusMessage(validationErr)))
	return e.failed(outcome, validationErr)
}

func (e *Extractor) valid(outcome Outcome, requirements []tender.Requirement, model string) Outcome {
	outcome.Result.State = tender.ChunkStateValid
	outcome.Result.Model = model
	outcome.Result.Requirements = requirements
	return outcome
}

func (e *Extractor) failed(outcome Outcome, err error) Outcome {
	outcome.Result.State = tender.ChunkStateFailed
	outcome.Result.Error = strings.TrimSpace(services.StatusMessage(err))
	return outcome
}
