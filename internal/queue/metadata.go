package queue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JobMetadata accumulates per-stage counters and warnings while a job moves
// through the pipeline. It is stored as JSON on the queue item so transient
// conditions (OCR fallbacks, failed chunks) survive re-delivery.
type JobMetadata struct {
	Pages        int      `json:"pages,omitempty"`
	Chunks       int      `json:"chunks,omitempty"`
	FailedChunks []int    `json:"failed_chunks,omitempty"`
	Requirements int      `json:"requirements,omitempty"`
	MergedCount  int      `json:"merged_count,omitempty"`
	Items        int      `json:"items,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Metadata decodes the item's metadata JSON. An empty payload yields a zero value.
func (i *Item) Metadata() (JobMetadata, error) {
	var meta JobMetadata
	raw := strings.TrimSpace(i.MetadataJSON)
	if raw == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return JobMetadata{}, fmt.Errorf("decode job metadata: %w", err)
	}
	return meta, nil
}

// SetMetadata encodes and stores the metadata payload on the item.
func (i *Item) SetMetadata(meta JobMetadata) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode job metadata: %w", err)
	}
	i.MetadataJSON = string(encoded)
	return nil
}

// AddWarning appends a warning to the item metadata, tolerating a previously
// empty or missing payload.
func (i *Item) AddWarning(warning string) error {
	warning = strings.TrimSpace(warning)
	if warning == "" {
		return nil
	}
	meta, err := i.Metadata()
	if err != nil {
		return err
	}
	meta.Warnings = append(meta.Warnings, warning)
	return i.SetMetadata(meta)
}
