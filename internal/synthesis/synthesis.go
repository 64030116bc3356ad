package synthesis

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tenderlist/internal/logging"
	"tenderlist/internal/tender"
)

const titleWordLimit = 12

var titleCaser = cases.Title(language.English, cases.NoLower)

// Synthesizer turns deduplicated requirements into checklist items.
// Synthesis is pure and deterministic except for the free-form date
// fallback, which only fires when a deadline phrase matches no pattern.
type Synthesizer struct {
	dates  DateResolver
	logger *slog.Logger
}

// NewSynthesizer constructs a checklist synthesizer. A nil resolver
// disables the free-form date fallback.
func NewSynthesizer(dates DateResolver, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{dates: dates, logger: logging.NewComponentLogger(logger, "synthesis")}
}

// Synthesize builds the checklist for a job from its merged requirements.
func (s *Synthesizer) Synthesize(ctx context.Context, jobID string, requirements []tender.Requirement) (tender.Checklist, error) {
	items := make([]tender.ChecklistItem, 0, len(requirements))
	for _, req := range requirements {
		dueDate, err := s.dueDate(ctx, req)
		if err != nil {
			return tender.Checklist{}, err
		}
		evidence := req.SourceQuote != nil && strings.TrimSpace(*req.SourceQuote) != ""
		items = append(items, tender.ChecklistItem{
			ID:               req.ID,
			Title:            Title(req.Text),
			Description:      req.Text,
			Category:         req.Category,
			IsMandatory:      req.IsMandatory,
			DueDate:          dueDate,
			Status:           tender.ChecklistItemStatusOpen,
			PageRefs:         tender.NormalizePageRefs(req.PageRefs),
			EvidenceRequired: &evidence,
		})
	}
	return tender.Checklist{JobID: jobID, Items: items}, nil
}

func (s *Synthesizer) dueDate(ctx context.Context, req tender.Requirement) (*string, error) {
	if req.Deadline == nil {
		return nil, nil
	}
	phrase := strings.TrimSpace(*req.Deadline)
	if phrase == "" {
		return nil, nil
	}
	if date, ok := ParseDate(phrase); ok {
		return &date, nil
	}
	if s.dates == nil {
		return nil, nil
	}
	date, err := s.dates.ResolveDate(ctx, phrase)
	if err != nil {
		// The deadline stays unset rather than failing the whole checklist.
		s.logger.Warn("date fallback call failed",
			logging.String("requirement", req.ID),
			logging.Error(err))
		return nil, nil
	}
	if date == "" {
		return nil, nil
	}
	return &date, nil
}

// Title derives a short item title from the requirement text: the first
// words up to the limit, title-cased.
func Title(text string) string {
	words := strings.Fields(text)
	if len(words) > titleWordLimit {
		words = words[:titleWordLimit]
	}
	title := strings.Join(words, " ")
	title = strings.TrimRight(title, ".,;:")
	return titleCaser.String(title)
}
