// Package apiclient talks to the external checklist API: status
// notifications when a job starts or fails, prompt retrieval, and final
// checklist ingest. The client is optional; without a configured base URL
// and ingest token every call is a no-op.
package apiclient
