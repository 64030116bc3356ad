package extraction

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tenderlist/internal/services"
	"tenderlist/internal/services/llm"
	"tenderlist/internal/tender"
)

const responseSchemaJSON = `{
  "type": "object",
  "required": ["requirements"],
  "properties": {
    "requirements": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["page_refs", "text", "category", "is_mandatory"],
        "properties": {
          "id": {"type": "string"},
          "page_refs": {"type": "array", "items": {"type": "integer", "minimum": 1}},
          "text": {"type": "string", "minLength": 1},
          "category": {"enum": ["submission", "eligibility", "technical", "financial", "other"]},
          "is_mandatory": {"type": "boolean"},
          "deadline": {"type": ["string", "null"]},
          "submission_format": {"type": ["string", "null"]},
          "source_quote": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var responseSchema = jsonschema.MustCompileString("requirements.json", responseSchemaJSON)

type extractResponse struct {
	Requirements []responseRequirement `json:"requirements"`
}

type responseRequirement struct {
	ID               string  `json:"id"`
	PageRefs         []int   `json:"page_refs"`
	Text             string  `json:"text"`
	Category         string  `json:"category"`
	IsMandatory      bool    `json:"is_mandatory"`
	Deadline         *string `json:"deadline"`
	SubmissionFormat *string `json:"submission_format"`
	SourceQuote      *string `json:"source_quote"`
}

// parseResponse validates a model response against the requirements schema
// and converts it to domain requirements. IDs are reassigned to the
// deterministic chunk-local form {chunk_id}-r{NN} regardless of what the
// model emitted.
func parseResponse(chunk tender.Chunk, content string) ([]tender.Requirement, error) {
	var decoded any
	if err := llm.DecodeLLMJSON(content, &decoded); err != nil {
		return nil, services.Wrap(services.ErrSchemaInvalid, "extraction", "parse",
			"response is not JSON", err)
	}
	if err := responseSchema.Validate(decoded); err != nil {
		return nil, services.Wrap(services.ErrSchemaInvalid, "extraction", "validate",
			"response violates requirements schema", err)
	}

	var parsed extractResponse
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrSchemaInvalid, "extraction", "decode",
			"response shape mismatch", err)
	}

	requirements := make([]tender.Requirement, 0, len(parsed.Requirements))
	for i, item := range parsed.Requirements {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		requirements = append(requirements, tender.Requirement{
			// Four digits keep lexical ID order equal to extraction order;
			// dedup sorts on these IDs as its chunk-order tie-break.
			ID:               fmt.Sprintf("%s-r%04d", chunk.ChunkID, i),
			PageRefs:         tender.NormalizePageRefs(item.PageRefs),
			Text:             text,
			Category:         item.Category,
			IsMandatory:      item.IsMandatory,
			Deadline:         trimOptional(item.Deadline),
			SubmissionFormat: trimOptional(item.SubmissionFormat),
			SourceQuote:      trimOptional(item.SourceQuote),
		})
	}
	return requirements, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
