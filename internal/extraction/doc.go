// Package extraction turns text chunks into structured procurement
// requirements by prompting an LLM and validating its output against a
// JSON schema. Invalid responses are repaired by a dedicated repair model
// and, when repair does not help, re-extracted with a fallback model.
// Chunks whose every attempt fails are recorded as failed results rather
// than failing the job; the stage errors only when no chunk succeeds.
package extraction
