package source

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/runnerr0/daytrail/internal/timeline"
)

// RegistryValue is one raw value under a UserAssist Count key.
type RegistryValue struct {
	Name string // ROT13-encoded program path
	Data []byte // binary counter blob
}

// RegistryValues enumerates UserAssist counter values. The live
// implementation walks HKCU on Windows (see userassist_windows.go); tests
// and non-Windows hosts supply their own.
type RegistryValues interface {
	Values(ctx context.Context) ([]RegistryValue, error)
}

// UserAssistReader decodes shell execution counters from UserAssist
// registry data. Value names are ROT13-rotated program paths; the value
// blob carries a little-endian run count at offset 4 and a FILETIME last
// run at offset 60 (Windows 7+ layout). Decoding is pure and stateless;
// one undecodable value never affects the rest.
type UserAssistReader struct {
	Registry RegistryValues
}

func (r *UserAssistReader) Name() string { return "userassist" }

func (r *UserAssistReader) Read(ctx context.Context, window timeline.Window) (*ReadResult, error) {
	values, err := r.Registry.Values(ctx)
	if err != nil {
		return nil, err
	}

	res := &ReadResult{}
	for _, v := range values {
		counter, ok := decodeUserAssistValue(v.Data)
		if !ok {
			res.Corrupt++
			continue
		}
		if counter.RunCount == 0 || counter.LastRun == 0 {
			continue
		}

		path := rot13(v.Name)
		program := path
		if i := strings.LastIndexAny(program, `\/`); i >= 0 {
			program = program[i+1:]
		}
		if program == "" {
			continue
		}

		res.Records = append(res.Records, timeline.RawRecord{
			Source:  timeline.SourceProgramExecution,
			Subject: program,
			Time:    timeline.Filetime(counter.LastRun),
			Attrs: map[string]any{
				"path":      path,
				"run_count": int64(counter.RunCount),
			},
		})
	}

	// Window filtering happens after FILETIME decoding; do it here so the
	// reader honors its contract without duplicating epoch math.
	filtered := res.Records[:0]
	for _, rec := range res.Records {
		if t, ok := filetimeToUTC(rec.Time.Ticks); ok && window.Contains(t) {
			filtered = append(filtered, rec)
		}
	}
	res.Records = filtered

	return res, nil
}

type userAssistCounter struct {
	RunCount uint32
	LastRun  uint64 // FILETIME
}

// decodeUserAssistValue parses a UserAssist counter blob. Blobs shorter
// than 16 bytes are rejected; blobs without the 68-byte Windows 7+ layout
// yield a zero LastRun, which the caller drops.
func decodeUserAssistValue(data []byte) (userAssistCounter, bool) {
	if len(data) < 16 {
		return userAssistCounter{}, false
	}
	c := userAssistCounter{
		RunCount: binary.LittleEndian.Uint32(data[4:8]),
	}
	if len(data) >= 68 {
		c.LastRun = binary.LittleEndian.Uint64(data[60:68])
	}
	return c, true
}

// rot13 undoes the rotation applied to UserAssist value names.
func rot13(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune('a' + (r-'a'+13)%26)
		case r >= 'A' && r <= 'Z':
			b.WriteRune('A' + (r-'A'+13)%26)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func filetimeToUTC(ticks int64) (time.Time, bool) {
	if ticks <= 0 {
		return time.Time{}, false
	}
	sec := ticks/1e7 - 11644473600
	if sec <= 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, (ticks%1e7)*100).UTC(), true
}
