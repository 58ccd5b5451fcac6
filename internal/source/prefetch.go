package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/runnerr0/daytrail/internal/timeline"
)

// Prefetch header layout. Raw files start with a 4-byte format version
// followed by the "SCCA" signature; Windows 10+ compresses the payload and
// prepends an "MAM\x04" magic instead.
var (
	prefetchSignature = []byte("SCCA")
	mamMagic          = []byte{'M', 'A', 'M', 0x04}
)

// prefetchVersions are the format versions this reader understands:
// XP/2003 (17), Vista/7 (23), 8.1 (26), 10 (30), 11 (31). Anything else is
// counted as an unknown version and skipped, so a future Windows release
// degrades to a skip instead of a parse failure.
var prefetchVersions = map[uint32]bool{17: true, 23: true, 26: true, 30: true, 31: true}

// PrefetchReader reads program-execution traces from the Windows Prefetch
// directory. File names carry the executable name and a path hash
// (NAME.EXE-XXXXXXXX.pf); the file's own mtime is the last run time, which
// is the only timestamp available without decompressing the payload.
type PrefetchReader struct {
	Dir string
	// Exclude filters out noise executables (system processes) by
	// upper-cased substring match.
	Exclude []string
}

func (r *PrefetchReader) Name() string { return "prefetch" }

func (r *PrefetchReader) Read(ctx context.Context, window timeline.Window) (*ReadResult, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, r.Dir, err)
	}

	res := &ReadResult{}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pf") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			res.Corrupt++
			continue
		}
		if !window.Contains(info.ModTime()) {
			continue
		}

		program := prefetchProgram(entry.Name())
		if program == "" || r.excluded(program) {
			continue
		}

		path := filepath.Join(r.Dir, entry.Name())
		switch validatePrefetchHeader(path) {
		case headerOK:
		case headerUnknownVersion:
			res.UnknownVersion++
			continue
		default:
			res.Corrupt++
			continue
		}

		res.Records = append(res.Records, timeline.RawRecord{
			Source:  timeline.SourceProgramExecution,
			Subject: program,
			Time:    timeline.Instant(info.ModTime()),
			Attrs: map[string]any{
				"trace_file": entry.Name(),
				"size_bytes": info.Size(),
			},
		})
	}

	return res, nil
}

func (r *PrefetchReader) excluded(program string) bool {
	upper := strings.ToUpper(program)
	for _, pat := range r.Exclude {
		if strings.Contains(upper, strings.ToUpper(pat)) {
			return true
		}
	}
	return false
}

// prefetchProgram extracts the executable name from a prefetch file name,
// dropping the trailing -HASH part.
func prefetchProgram(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.LastIndex(base, "-"); i > 0 {
		base = base[:i]
	}
	return base
}

type headerState int

const (
	headerOK headerState = iota
	headerUnknownVersion
	headerCorrupt
)

// validatePrefetchHeader checks the first 8 bytes of a prefetch file.
// Compressed (MAM) files are accepted as-is: the format version lives
// inside the compressed payload and the record only needs file metadata.
func validatePrefetchHeader(path string) headerState {
	f, err := os.Open(path)
	if err != nil {
		return headerCorrupt
	}
	defer f.Close()

	header := make([]byte, 8)
	if _, err := io.ReadFull(f, header); err != nil {
		return headerCorrupt
	}

	if bytes.Equal(header[:4], mamMagic) {
		return headerOK
	}
	if !bytes.Equal(header[4:8], prefetchSignature) {
		return headerCorrupt
	}
	version := binary.LittleEndian.Uint32(header[:4])
	if !prefetchVersions[version] {
		return headerUnknownVersion
	}
	return headerOK
}
