// Package tender defines the shared domain types of the processing
// pipeline: pages, chunks, requirements, checklist items, and the object
// store key layout they are persisted under.
package tender
