package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionEvent(key string, attrs map[string]any) *Event {
	return &Event{
		Key:       key,
		Source:    SourceSessionBoundary,
		Subject:   "logon",
		Timestamp: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		Attrs:     attrs,
	}
}

func TestMerge_InsertsNewEvents(t *testing.T) {
	b := NewDayBucket("2024-03-10")

	res := Merge(b, []*Event{
		sessionEvent("k1", map[string]any{"boundary": "logon"}),
		sessionEvent("k2", map[string]any{"boundary": "logoff"}),
	})

	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 0, res.Conflicts)
	assert.Equal(t, 2, b.Len())
}

func TestMerge_Idempotent(t *testing.T) {
	b := NewDayBucket("2024-03-10")
	incoming := []*Event{
		sessionEvent("k1", map[string]any{"boundary": "logon", "count": int64(3)}),
		sessionEvent("k2", map[string]any{"boundary": "logoff"}),
	}

	Merge(b, incoming)
	first := snapshot(b)

	res := Merge(b, incoming)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 0, res.Conflicts)
	assert.Equal(t, first, snapshot(b), "second merge of the same set must be a no-op")
}

func TestMerge_OrderIndependent(t *testing.T) {
	e1 := sessionEvent("k1", map[string]any{"a": "1"})
	e2 := sessionEvent("k2", map[string]any{"b": "2"})
	e3 := sessionEvent("k3", map[string]any{"c": "3"})

	b1 := NewDayBucket("2024-03-10")
	Merge(b1, []*Event{e1, e2, e3})

	b2 := NewDayBucket("2024-03-10")
	Merge(b2, []*Event{e3, e1, e2})

	assert.Equal(t, snapshot(b1), snapshot(b2))
}

func TestMerge_FillsInMissingScalars(t *testing.T) {
	// A session observed without its end; a later run sees the end time.
	b := NewDayBucket("2024-03-10")
	Merge(b, []*Event{sessionEvent("k1", map[string]any{"started_at": "09:00:00", "ended_at": ""})})

	res := Merge(b, []*Event{sessionEvent("k1", map[string]any{"ended_at": "10:30:00"})})

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 0, res.Conflicts)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, "09:00:00", b.Events["k1"].Attrs["started_at"])
	assert.Equal(t, "10:30:00", b.Events["k1"].Attrs["ended_at"])
}

func TestMerge_ConflictKeepsExisting(t *testing.T) {
	b := NewDayBucket("2024-03-10")
	Merge(b, []*Event{sessionEvent("k1", map[string]any{"title": "first"})})

	res := Merge(b, []*Event{sessionEvent("k1", map[string]any{"title": "second"})})

	assert.Equal(t, 1, res.Conflicts)
	assert.Equal(t, "first", b.Events["k1"].Attrs["title"], "older data wins")

	// Re-merging the conflicting set again keeps reporting, never flips.
	res = Merge(b, []*Event{sessionEvent("k1", map[string]any{"title": "second"})})
	assert.Equal(t, 1, res.Conflicts)
	assert.Equal(t, "first", b.Events["k1"].Attrs["title"])
}

func TestMerge_ConflictingBatchWinnerIsOrderFree(t *testing.T) {
	// Two observations of the same occurrence inside one batch, with
	// sub-rounding timestamp jitter and a conflicting attribute. Whatever
	// order the readers delivered them in, the earlier observation wins.
	mk := func(offset time.Duration, title string) *Event {
		ev := sessionEvent("k1", map[string]any{"title": title})
		ev.Timestamp = ev.Timestamp.Add(offset)
		return ev
	}
	a := mk(100*time.Millisecond, "first seen")
	b := mk(400*time.Millisecond, "second seen")

	b1 := NewDayBucket("2024-03-10")
	r1 := Merge(b1, []*Event{a, b})

	b2 := NewDayBucket("2024-03-10")
	r2 := Merge(b2, []*Event{b, a})

	assert.Equal(t, snapshot(b1), snapshot(b2))
	assert.Equal(t, "first seen", b1.Events["k1"].Attrs["title"])
	assert.Equal(t, 1, r1.Conflicts)
	assert.Equal(t, r1, r2)
}

func TestMerge_NumericEqualityAcrossJSONRoundTrip(t *testing.T) {
	// Attributes loaded from storage come back as float64; a re-observed
	// int64 of the same value is not a conflict.
	b := NewDayBucket("2024-03-10")
	Merge(b, []*Event{sessionEvent("k1", map[string]any{"run_count": float64(7)})})

	res := Merge(b, []*Event{sessionEvent("k1", map[string]any{"run_count": int64(7)})})

	assert.Equal(t, 0, res.Conflicts)
	assert.Equal(t, float64(7), b.Events["k1"].Attrs["run_count"])
}

func TestMerge_DoesNotAliasIncoming(t *testing.T) {
	b := NewDayBucket("2024-03-10")
	ev := sessionEvent("k1", map[string]any{"title": "original"})
	Merge(b, []*Event{ev})

	ev.Attrs["title"] = "mutated"
	assert.Equal(t, "original", b.Events["k1"].Attrs["title"])
}

func TestGroupByDay_UsesEventInstant(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	events := []*Event{
		{Key: "a", Timestamp: time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)},  // Mar 9 local
		{Key: "b", Timestamp: time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)}, // Mar 10 local
		{Key: "c", Timestamp: time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC)}, // Mar 10, past spring-forward
	}

	byDay := GroupByDay(events, ny)
	require.Len(t, byDay, 2)
	assert.Len(t, byDay["2024-03-09"], 1)
	assert.Len(t, byDay["2024-03-10"], 2)
}

// snapshot flattens a bucket for equality comparison.
func snapshot(b *DayBucket) map[string]map[string]any {
	out := make(map[string]map[string]any, len(b.Events))
	for k, e := range b.Events {
		attrs := make(map[string]any, len(e.Attrs))
		for ak, av := range e.Attrs {
			attrs[ak] = av
		}
		out[k] = attrs
	}
	return out
}
