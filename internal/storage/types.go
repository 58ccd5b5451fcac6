package storage

import "time"

// RunRecord is a persisted ingestion-run summary.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    any // marshaled to JSON on write
}

// Stats holds aggregate statistics about the timeline database.
type Stats struct {
	TotalEvents int64
	TotalDays   int64
	OldestDay   string
	NewestDay   string
	TotalRuns   int64
	BySource    []SourceCount
}

// SourceCount pairs an event source with its stored event count.
type SourceCount struct {
	Source string
	Count  int64
}
