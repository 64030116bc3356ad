package queue

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const itemColumns = "id, job_id, filename, source_path, status, options_json, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, metadata_json, last_heartbeat, needs_review, review_reason"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item            Item
		filename        sql.NullString
		sourcePath      sql.NullString
		optionsJSON     sql.NullString
		errorMessage    sql.NullString
		createdAt       string
		updatedAt       string
		progressStage   sql.NullString
		progressMessage sql.NullString
		metadataJSON    sql.NullString
		lastHeartbeat   sql.NullString
		needsReview     int
		reviewReason    sql.NullString
	)

	if err := scanner.Scan(
		&item.ID,
		&item.JobID,
		&filename,
		&sourcePath,
		&item.Status,
		&optionsJSON,
		&errorMessage,
		&createdAt,
		&updatedAt,
		&progressStage,
		&item.ProgressPercent,
		&progressMessage,
		&metadataJSON,
		&lastHeartbeat,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	item.Filename = filename.String
	item.SourcePath = sourcePath.String
	item.OptionsJSON = optionsJSON.String
	item.ErrorMessage = errorMessage.String
	item.ProgressStage = progressStage.String
	item.ProgressMessage = progressMessage.String
	item.MetadataJSON = metadataJSON.String
	item.NeedsReview = needsReview != 0
	item.ReviewReason = reviewReason.String

	parsedCreated, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	item.CreatedAt = parsedCreated

	parsedUpdated, err := parseTimestamp(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	item.UpdatedAt = parsedUpdated

	if lastHeartbeat.Valid && strings.TrimSpace(lastHeartbeat.String) != "" {
		hb, err := parseTimestamp(lastHeartbeat.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_heartbeat: %w", err)
		}
		item.LastHeartbeat = &hb
	}

	return &item, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
