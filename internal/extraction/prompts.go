package extraction

import (
	"fmt"

	"tenderlist/internal/tender"
)

const extractionSystemPrompt = "You extract explicit procurement requirements from tender documents.\n" +
	"Return STRICT JSON compliant with the provided schema.\n" +
	"Do not invent information. If no requirements are present, return {\"requirements\": []}.\n" +
	"Do not include any additional text outside JSON."

const repairSystemPrompt = "You repair invalid JSON. Output ONLY valid JSON and nothing else."

const schemaHint = `{
  "requirements": [
    {
      "id": "string",
      "page_refs": [0],
      "text": "string",
      "category": "submission|eligibility|technical|financial|other",
      "is_mandatory": true,
      "deadline": "YYYY-MM-DD|null",
      "submission_format": "string|null",
      "source_quote": "string|null"
    }
  ]
}`

func extractionUserPrompt(chunk tender.Chunk) string {
	return fmt.Sprintf(
		"Document pages: %d-%d\nSchema: %s\n\nExtract only explicit requirements with page references from this chunk:\n---\n%s\n---",
		chunk.PageStart, chunk.PageEnd, schemaHint, chunk.Text)
}
