// Package llm provides a chat client for OpenAI-compatible completion APIs.
//
// This package is used by:
//   - Extraction stage: extract structured requirements per chunk, repair
//     malformed responses, escalate to the fallback model tier
//   - Synthesis stage: free-form date interpretation when pattern matching fails
//   - Prompt evaluation: answer user questions/conditions against document text
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts against the default model.
// Client.CompleteJSONModel: same with an explicit model tier.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff and jitter (base 1s, max 10s, up to 3 attempts by
// default). Retry-After headers are honored when present. Context
// cancellation aborts retries immediately. Schema-invalid responses are NOT
// retried here; the extraction stage handles those through its repair and
// fallback escalation.
package llm
