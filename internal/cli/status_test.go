package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/daytrail/internal/storage"
	"github.com/runnerr0/daytrail/internal/timeline"
)

// setupStatusTest creates an in-memory store for testing status output.
func setupStatusTest(t *testing.T) (*storage.SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner := storage.NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, db
}

func seedDay(t *testing.T, store *storage.SQLiteStore, day string, sources ...timeline.Source) {
	t.Helper()
	bucket := timeline.NewDayBucket(day)
	base, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)
	for i, src := range sources {
		key := string(src) + day + string(rune('a'+i))
		bucket.Events[key] = &timeline.Event{
			Key:       key,
			Source:    src,
			Subject:   "subject",
			Timestamp: base.Add(time.Duration(i+1) * time.Hour),
		}
	}
	require.NoError(t, store.CommitDay(context.Background(), bucket))
}

func TestStatus_EmptyDB(t *testing.T) {
	store, db := setupStatusTest(t)

	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store, db, ":memory:"))
	})

	assert.Contains(t, output, "Daytrail Status")
	assert.Contains(t, output, "dev")
	assert.Contains(t, output, "Events:     0 across 0 days")
	assert.Contains(t, output, "Runs:       0")
	assert.NotContains(t, output, "Range:")
}

func TestStatus_WithData(t *testing.T) {
	store, db := setupStatusTest(t)

	seedDay(t, store, "2024-03-09", timeline.SourceBrowserVisit, timeline.SourceProgramExecution)
	seedDay(t, store, "2024-03-10", timeline.SourceBrowserVisit)
	require.NoError(t, store.SaveRun(context.Background(), &storage.RunRecord{
		ID: "run-1", StartedAt: time.Now(), FinishedAt: time.Now(),
	}))

	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store, db, ":memory:"))
	})

	assert.Contains(t, output, "Events:     3 across 2 days")
	assert.Contains(t, output, "Range:      2024-03-09 .. 2024-03-10")
	assert.Contains(t, output, "Runs:       1")
	assert.Contains(t, output, "browser_visit")
	assert.Contains(t, output, "program_execution")
}

func TestStatus_JSONOutput(t *testing.T) {
	store, db := setupStatusTest(t)
	seedDay(t, store, "2024-03-10", timeline.SourceGameSession)

	cmd := &StatusCommand{globals: &GlobalFlags{JSON: true}, version: "dev"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store, db, ":memory:"))
	})

	var result statusJSON
	require.NoError(t, json.Unmarshal([]byte(output), &result), "output should be valid JSON")

	assert.Equal(t, "dev", result.Version)
	assert.Equal(t, int64(1), result.TotalEvents)
	assert.Equal(t, int64(1), result.TotalDays)
	assert.Equal(t, "2024-03-10", result.OldestDay)
	require.Len(t, result.BySource, 1)
	assert.Equal(t, "game_session", result.BySource[0].Source)
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		3 * 1 << 20:     "3.0 MB",
		5 * (1 << 30):   "5.0 GB",
		1536:            "1.5 KB",
		int64(1) << 10:  "1.0 KB",
		(1 << 20) + 512: "1.0 MB",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatBytes(in), "%d", in)
	}
}
