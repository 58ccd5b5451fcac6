package timeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Source identifies the kind of artifact an event was observed in.
type Source string

const (
	SourceBrowserVisit     Source = "browser_visit"
	SourceProgramExecution Source = "program_execution"
	SourceSessionBoundary  Source = "session_boundary"
	SourceRecentFile       Source = "recent_file"
	SourceGameSession      Source = "game_session"
)

// Sources lists all known sources in a stable order.
func Sources() []Source {
	return []Source{
		SourceBrowserVisit,
		SourceProgramExecution,
		SourceSessionBoundary,
		SourceRecentFile,
		SourceGameSession,
	}
}

// Event is the canonical unit of activity. Timestamps are stored as UTC
// instants; the local calendar day is derived from the instant itself via
// Day, so bucketing stays correct across DST transitions.
type Event struct {
	Key       string         // deterministic identity key, unique within a day
	Source    Source         //
	Subject   string         // URL, executable path, file path, or session/game id
	Timestamp time.Time      // UTC
	Attrs     map[string]any // open-ended; unknown keys must survive round-trips
}

// Day returns the local calendar day (YYYY-MM-DD) the event belongs to,
// computed from the event's own instant in loc.
func (e *Event) Day(loc *time.Location) string {
	return e.Timestamp.In(loc).Format("2006-01-02")
}

// keyRounding returns the timestamp rounding granularity used in identity
// keys per source. Browser stores record visits at microsecond resolution
// but two reads of the same visit can disagree below a minute; executions
// and boundaries are stable to the second.
func keyRounding(s Source) time.Duration {
	if s == SourceBrowserVisit {
		return time.Minute
	}
	return time.Second
}

// IdentityKey derives the deduplication key for an event observation.
// It is deterministic in (source, subject, rounded timestamp, disambiguator):
// two observations of the same real-world occurrence, possibly from
// different collection runs with sub-resolution timestamp jitter, map to
// the same key.
func IdentityKey(source Source, subject string, ts time.Time, disambiguator string) string {
	rounded := ts.UTC().Truncate(keyRounding(source))
	h := sha256.Sum256([]byte(strings.Join([]string{
		string(source),
		subject,
		rounded.Format(time.RFC3339),
		disambiguator,
	}, "\x1f")))
	return hex.EncodeToString(h[:8])
}

// Window is the half-open [Start, End) time range a collection run asks a
// reader to cover. Transient; never persisted.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastDays returns a window covering the past n days up to now.
func LastDays(now time.Time, n int) Window {
	return Window{Start: now.AddDate(0, 0, -n), End: now}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// DayBucket holds all merged events for one local calendar day, keyed by
// identity key. Created lazily, mutated only through Merge, persisted
// atomically by the store.
type DayBucket struct {
	Day    string // YYYY-MM-DD, local time
	Events map[string]*Event
}

// NewDayBucket returns an empty bucket for the given day.
func NewDayBucket(day string) *DayBucket {
	return &DayBucket{Day: day, Events: make(map[string]*Event)}
}

// Sorted returns the bucket's events ordered by timestamp, then key for
// ties. Insertion order is irrelevant by design; readers always sort.
func (b *DayBucket) Sorted() []*Event {
	out := make([]*Event, 0, len(b.Events))
	for _, e := range b.Events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Len returns the number of distinct events in the bucket.
func (b *DayBucket) Len() int { return len(b.Events) }
