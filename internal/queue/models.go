package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending               Status = "pending"
	StatusExtractingText        Status = "extracting_text"
	StatusTextExtracted         Status = "text_extracted"
	StatusChunking              Status = "chunking"
	StatusChunked               Status = "chunked"
	StatusExtractingRequirement Status = "extracting_requirements"
	StatusRequirementsExtracted Status = "requirements_extracted"
	StatusDeduping              Status = "deduping"
	StatusDeduped               Status = "deduped"
	StatusSynthesizing          Status = "synthesizing"
	StatusCompleted             Status = "completed"
	StatusFailed                Status = "failed"
	StatusReview                Status = "review"
)

// UserStopReason is the review reason set when a user explicitly stops a job.
const UserStopReason = "Stop requested by user"

var allStatuses = []Status{
	StatusPending,
	StatusExtractingText,
	StatusTextExtracted,
	StatusChunking,
	StatusChunked,
	StatusExtractingRequirement,
	StatusRequirementsExtracted,
	StatusDeduping,
	StatusDeduped,
	StatusSynthesizing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusExtractingText:        {},
	StatusChunking:              {},
	StatusExtractingRequirement: {},
	StatusDeduping:              {},
	StatusSynthesizing:          {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map each processing status back to the status that
// re-enters the same stage. Stages check the object store for their own
// artifacts before recomputing, so rolling back is safe on re-delivery.
var stageRollbackTransitions = []statusTransition{
	{from: StatusExtractingText, to: StatusPending},
	{from: StatusChunking, to: StatusTextExtracted},
	{from: StatusExtractingRequirement, to: StatusChunked},
	{from: StatusDeduping, to: StatusRequirementsExtracted},
	{from: StatusSynthesizing, to: StatusDeduped},
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// Item represents a tender processing job persisted in SQLite.
type Item struct {
	ID              int64
	JobID           string
	Filename        string
	SourcePath      string
	Status          Status
	OptionsJSON     string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	MetadataJSON    string
	LastHeartbeat   *time.Time
	NeedsReview     bool
	ReviewReason    string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends the pipeline for a job.
func IsTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusReview:
		return true
	default:
		return false
	}
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// ExternalStatus maps a queue status onto the status.json contract consumed by
// external pollers: running, done, or failed.
func (s Status) ExternalStatus() string {
	switch s {
	case StatusCompleted:
		return "done"
	case StatusFailed, StatusReview:
		return "failed"
	default:
		return "running"
	}
}
