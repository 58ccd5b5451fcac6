package timeline

import (
	"time"
)

// TimeKind names the native timestamp representation a raw record carries.
type TimeKind int

const (
	TimeInstant      TimeKind = iota // already a time.Time
	TimeChromeMicros                 // microseconds since 1601-01-01 UTC
	TimeFiletime                     // 100ns ticks since 1601-01-01 UTC
	TimeUnixSeconds                  // seconds since 1970-01-01 UTC
	TimeWallClock                    // "2006-01-02 15:04:05" in local time
)

// windowsEpochDiff is the offset between the Windows epoch (1601-01-01)
// and the Unix epoch (1970-01-01), in seconds.
const windowsEpochDiff = 11644473600

// RawTime is a timestamp in whatever form the artifact stored it.
type RawTime struct {
	Kind  TimeKind
	Ticks int64
	Text  string
	When  time.Time
}

// Instant wraps an already-resolved time.
func Instant(t time.Time) RawTime { return RawTime{Kind: TimeInstant, When: t} }

// ChromeMicros wraps a Chrome/WebKit timestamp (µs since 1601-01-01 UTC).
func ChromeMicros(v int64) RawTime { return RawTime{Kind: TimeChromeMicros, Ticks: v} }

// Filetime wraps a Windows FILETIME (100ns ticks since 1601-01-01 UTC).
func Filetime(v uint64) RawTime { return RawTime{Kind: TimeFiletime, Ticks: int64(v)} }

// UnixSeconds wraps a Unix epoch-seconds timestamp.
func UnixSeconds(v int64) RawTime { return RawTime{Kind: TimeUnixSeconds, Ticks: v} }

// WallClock wraps a "2006-01-02 15:04:05" string in local time.
func WallClock(s string) RawTime { return RawTime{Kind: TimeWallClock, Text: s} }

// RawRecord is an artifact-native observation before normalization.
type RawRecord struct {
	Source        Source
	Subject       string
	Time          RawTime
	Attrs         map[string]any
	Disambiguator string // extra identity-key input, e.g. visit title
}

// Normalizer converts raw records into canonical events. It is pure: no
// I/O, no shared mutable state, safe to call concurrently.
type Normalizer struct {
	// Location is the timezone used to resolve wall-clock timestamps and
	// day bucketing. Defaults to time.Local.
	Location *time.Location
	// Now anchors the plausibility window. Defaults to time.Now.
	Now func() time.Time
	// Skew is the tolerance for timestamps slightly in the future.
	Skew time.Duration
}

// epochFloor is the oldest timestamp considered plausible. Anything before
// it is treated as an artifact encoding quirk (zeroed FILETIMEs decode to
// 1601) and discarded.
var epochFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const defaultSkew = 5 * time.Minute

func (n *Normalizer) location() *time.Location {
	if n.Location != nil {
		return n.Location
	}
	return time.Local
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n *Normalizer) skew() time.Duration {
	if n.Skew > 0 {
		return n.Skew
	}
	return defaultSkew
}

// resolve converts a native timestamp to a UTC instant. ok is false when
// the representation cannot be decoded.
func (n *Normalizer) resolve(rt RawTime) (time.Time, bool) {
	switch rt.Kind {
	case TimeInstant:
		if rt.When.IsZero() {
			return time.Time{}, false
		}
		return rt.When.UTC(), true
	case TimeChromeMicros:
		if rt.Ticks <= 0 {
			return time.Time{}, false
		}
		sec := rt.Ticks/1e6 - windowsEpochDiff
		micro := rt.Ticks % 1e6
		return time.Unix(sec, micro*1000).UTC(), true
	case TimeFiletime:
		if rt.Ticks <= 0 {
			return time.Time{}, false
		}
		sec := rt.Ticks/1e7 - windowsEpochDiff
		nsec := (rt.Ticks % 1e7) * 100
		return time.Unix(sec, nsec).UTC(), true
	case TimeUnixSeconds:
		if rt.Ticks <= 0 {
			return time.Time{}, false
		}
		return time.Unix(rt.Ticks, 0).UTC(), true
	case TimeWallClock:
		t, err := time.ParseInLocation("2006-01-02 15:04:05", rt.Text, n.location())
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	default:
		return time.Time{}, false
	}
}

// Normalize converts a raw record into a canonical Event. ok is false when
// the record must be discarded: missing subject, undecodable timestamp, or
// a timestamp outside the plausible range (before the epoch floor or past
// now plus skew tolerance). Discards are not errors.
func (n *Normalizer) Normalize(r RawRecord) (Event, bool) {
	if r.Subject == "" {
		return Event{}, false
	}

	ts, ok := n.resolve(r.Time)
	if !ok {
		return Event{}, false
	}
	if ts.Before(epochFloor) || ts.After(n.now().Add(n.skew())) {
		return Event{}, false
	}

	attrs := make(map[string]any, len(r.Attrs))
	for k, v := range r.Attrs {
		attrs[k] = v
	}

	return Event{
		Key:       IdentityKey(r.Source, r.Subject, ts, r.Disambiguator),
		Source:    r.Source,
		Subject:   r.Subject,
		Timestamp: ts,
		Attrs:     attrs,
	}, true
}
