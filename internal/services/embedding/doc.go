// Package embedding provides a client for OpenAI-compatible text-embedding
// APIs. The deduplicator uses it to obtain one vector per normalized
// requirement text for cosine-similarity comparison.
package embedding
