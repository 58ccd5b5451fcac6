package timeline

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// MergeResult reports what a merge pass did to one bucket.
type MergeResult struct {
	Inserted  int
	Updated   int // existing events that gained at least one attribute
	Conflicts int // equally-specific attribute disagreements (existing kept)
}

// Merge folds incoming events into the bucket. It is idempotent,
// commutative in the incoming order, and never loses previously merged
// data:
//
//   - unknown identity key → insert
//   - known key → union attribute maps; an empty/zero scalar is filled in
//     by a non-empty one ("fill in missing", e.g. a session end time seen
//     by a later run); two differing non-empty values keep the stored one
//     and count a conflict, so repeated merges cannot oscillate.
//
// The bucket is mutated in place; callers own persistence.
func Merge(bucket *DayBucket, incoming []*Event) MergeResult {
	// Fold in a deterministic order so two batch events sharing a key (same
	// rounded timestamp, conflicting attrs) resolve the same way regardless
	// of reader scheduling: the earliest observation wins.
	batch := make([]*Event, len(incoming))
	copy(batch, incoming)
	sort.SliceStable(batch, func(i, j int) bool {
		if !batch[i].Timestamp.Equal(batch[j].Timestamp) {
			return batch[i].Timestamp.Before(batch[j].Timestamp)
		}
		if batch[i].Key != batch[j].Key {
			return batch[i].Key < batch[j].Key
		}
		return batch[i].Subject < batch[j].Subject
	})

	var res MergeResult
	for _, ev := range batch {
		existing, ok := bucket.Events[ev.Key]
		if !ok {
			cp := *ev
			cp.Attrs = copyAttrs(ev.Attrs)
			bucket.Events[ev.Key] = &cp
			res.Inserted++
			continue
		}

		changed := false
		for k, v := range ev.Attrs {
			old, present := existing.Attrs[k]
			switch {
			case !present || isEmptyValue(old):
				if existing.Attrs == nil {
					existing.Attrs = make(map[string]any)
				}
				existing.Attrs[k] = v
				if !isEmptyValue(v) {
					changed = true
				}
			case isEmptyValue(v) || equalValue(old, v):
				// nothing new
			default:
				res.Conflicts++
			}
		}
		if changed {
			res.Updated++
		}
	}
	return res
}

// GroupByDay splits events into per-day slices using each event's own
// local day in loc.
func GroupByDay(events []*Event, loc *time.Location) map[string][]*Event {
	out := make(map[string][]*Event)
	for _, ev := range events {
		day := ev.Day(loc)
		out[day] = append(out[day], ev)
	}
	return out
}

func copyAttrs(attrs map[string]any) map[string]any {
	cp := make(map[string]any, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return cp
}

// isEmptyValue reports whether v carries no information: nil, empty string,
// or numeric zero. Such values never overwrite and are always overwritable.
func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	case bool:
		return false
	default:
		return false
	}
}

// equalValue compares attribute values across the numeric representations
// that appear after a JSON round-trip (int vs float64) as well as directly.
func equalValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
