// Package workflow drives tender jobs through the processing pipeline.
//
// A Manager polls the queue for the oldest actionable item, resolves the
// stage registered for the item's status, and runs it under a heartbeat so
// crashed runs are reclaimed and retried. Stage handlers own the artifacts;
// the manager owns the status transitions, status.json, and the checklist
// service notifications.
package workflow
