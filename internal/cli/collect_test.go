package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/daytrail/internal/ingest"
)

func TestCollectWindow_SingleDate(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	cmd := &CollectCommand{Date: "2024-03-10"}

	w, err := cmd.window(7, loc)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), w.End)
}

func TestCollectWindow_RollingDays(t *testing.T) {
	cmd := &CollectCommand{Days: 3}

	w, err := cmd.window(7, time.UTC)
	require.NoError(t, err)
	assert.InDelta(t, (72 * time.Hour).Seconds(), w.End.Sub(w.Start).Seconds(), 1)
}

func TestCollectWindow_DefaultDays(t *testing.T) {
	cmd := &CollectCommand{}

	w, err := cmd.window(7, time.UTC)
	require.NoError(t, err)
	assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), w.End.Sub(w.Start).Seconds(), 1)
}

func TestCollectWindow_InvalidDate(t *testing.T) {
	cmd := &CollectCommand{Date: "10/03/2024"}
	_, err := cmd.window(7, time.UTC)
	require.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	now := time.Now()
	s := &ingest.Summary{
		RunID:      "run-1",
		StartedAt:  now,
		FinishedAt: now.Add(2 * time.Second),
		Window:     "2024-03-03 .. 2024-03-10",
		Sources: map[string]ingest.SourceStats{
			"prefetch": {RecordsRead: 12, RecordsDiscarded: 2, UnknownVersions: 1},
			"browser:chrome": {
				PartialFailure: true,
				FailureReason:  "source unavailable: History locked",
			},
		},
		Inserted:  10,
		Updated:   1,
		Conflicts: 2,
	}

	output := captureOutput(t, func() { printSummary(s) })

	assert.Contains(t, output, "run-1")
	assert.Contains(t, output, "12 read, 2 discarded, 1 unknown format")
	assert.Contains(t, output, "FAILED (source unavailable: History locked)")
	assert.Contains(t, output, "Merged: 10 new, 1 updated, 2 conflicts")
	assert.Contains(t, output, "WARNING: collection was degraded")
}

func TestPrintSummary_Clean(t *testing.T) {
	now := time.Now()
	s := &ingest.Summary{
		RunID:      "run-2",
		StartedAt:  now,
		FinishedAt: now,
		Sources:    map[string]ingest.SourceStats{"prefetch": {RecordsRead: 5}},
		Inserted:   5,
	}

	output := captureOutput(t, func() { printSummary(s) })
	assert.NotContains(t, output, "WARNING")
	assert.NotContains(t, output, "FAILED")
}
