package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityKey_Deterministic(t *testing.T) {
	ts := time.Date(2024, 3, 10, 14, 30, 12, 0, time.UTC)

	k1 := IdentityKey(SourceBrowserVisit, "https://example.com", ts, "Example")
	k2 := IdentityKey(SourceBrowserVisit, "https://example.com", ts, "Example")

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 16)
}

func TestIdentityKey_RoundingAbsorbsJitter(t *testing.T) {
	base := time.Date(2024, 3, 10, 14, 30, 12, 0, time.UTC)

	// Browser visits round to the minute: two reads of the same visit with
	// sub-minute jitter map to the same key.
	k1 := IdentityKey(SourceBrowserVisit, "https://example.com", base, "Example")
	k2 := IdentityKey(SourceBrowserVisit, "https://example.com", base.Add(20*time.Second), "Example")
	assert.Equal(t, k1, k2)

	// A visit a minute later is a different occurrence.
	k3 := IdentityKey(SourceBrowserVisit, "https://example.com", base.Add(time.Minute), "Example")
	assert.NotEqual(t, k1, k3)

	// Executions round to the second only.
	e1 := IdentityKey(SourceProgramExecution, "NOTEPAD.EXE", base, "")
	e2 := IdentityKey(SourceProgramExecution, "NOTEPAD.EXE", base.Add(300*time.Millisecond), "")
	e3 := IdentityKey(SourceProgramExecution, "NOTEPAD.EXE", base.Add(time.Second), "")
	assert.Equal(t, e1, e2)
	assert.NotEqual(t, e1, e3)
}

func TestIdentityKey_VariesByInputs(t *testing.T) {
	ts := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

	base := IdentityKey(SourceBrowserVisit, "https://example.com", ts, "A")
	assert.NotEqual(t, base, IdentityKey(SourceRecentFile, "https://example.com", ts, "A"))
	assert.NotEqual(t, base, IdentityKey(SourceBrowserVisit, "https://other.com", ts, "A"))
	assert.NotEqual(t, base, IdentityKey(SourceBrowserVisit, "https://example.com", ts, "B"))
}

func TestEventDay_UsesOwnInstant(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-10 02:30 EST does not exist (spring forward); an event at
	// 06:30 UTC lands at 01:30 EST, still March 10 locally.
	ev := &Event{Timestamp: time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC)}
	assert.Equal(t, "2024-03-10", ev.Day(ny))

	// Late UTC evening is the previous local day.
	ev = &Event{Timestamp: time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2024-03-09", ev.Day(ny))
}

func TestWindowContains(t *testing.T) {
	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	w := Window{Start: start, End: end}

	assert.True(t, w.Contains(start), "start is inclusive")
	assert.True(t, w.Contains(end.Add(-time.Second)))
	assert.False(t, w.Contains(end), "end is exclusive")
	assert.False(t, w.Contains(start.Add(-time.Second)))
}

func TestDayBucket_SortedByTimestamp(t *testing.T) {
	b := NewDayBucket("2024-03-10")
	mk := func(key string, hour int) *Event {
		return &Event{Key: key, Timestamp: time.Date(2024, 3, 10, hour, 0, 0, 0, time.UTC)}
	}
	b.Events["c"] = mk("c", 15)
	b.Events["a"] = mk("a", 9)
	b.Events["b"] = mk("b", 12)

	sorted := b.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "a", sorted[0].Key)
	assert.Equal(t, "b", sorted[1].Key)
	assert.Equal(t, "c", sorted[2].Key)
}
