// Package queue persists tender processing jobs in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-item recovery, and status transitions
// that mirror the public workflow enum. Queue items capture the job identity
// (job_id, filename, source), per-job pipeline options, progress, and review
// flags so stages can coordinate without additional state.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive; pipeline artifacts live in the object store under
// jobs/{job_id}/. Schema changes bump the version in schema.go; users clear
// the database to adopt the new schema.
package queue
