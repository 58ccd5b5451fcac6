package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/runnerr0/daytrail/internal/timeline"
)

// ShellLinkHeader constants: fixed header size and the LinkCLSID
// {00021401-0000-0000-C000-000000000046} in its on-disk byte order.
const lnkHeaderSize = 0x4C

var lnkCLSID = []byte{
	0x01, 0x14, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46,
}

// RecentFilesReader reads file-access records from the Recent folder's
// shell link (*.lnk) files. The link header is validated and the embedded
// access FILETIME used when present; a link with a zeroed or implausible
// FILETIME falls back to the link file's own mtime, which Windows bumps on
// each re-open.
type RecentFilesReader struct {
	Dir string
}

func (r *RecentFilesReader) Name() string { return "recent_files" }

func (r *RecentFilesReader) Read(ctx context.Context, window timeline.Window) (*ReadResult, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, r.Dir, err)
	}

	res := &ReadResult{}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".lnk") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			res.Corrupt++
			continue
		}

		accessed := info.ModTime()
		if ft, ok := lnkAccessTime(filepath.Join(r.Dir, entry.Name())); ok {
			if t, valid := filetimeToUTC(int64(ft)); valid {
				accessed = t
			}
		} else {
			res.Corrupt++
			continue
		}

		if !window.Contains(accessed) {
			continue
		}

		target := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if target == "" {
			continue
		}
		ext := strings.ToLower(filepath.Ext(target))

		res.Records = append(res.Records, timeline.RawRecord{
			Source:  timeline.SourceRecentFile,
			Subject: target,
			Time:    timeline.Instant(accessed),
			Attrs: map[string]any{
				"extension": ext,
				"category":  fileCategory(ext),
			},
		})
	}

	return res, nil
}

// lnkAccessTime parses a shell link header and returns the AccessTime
// FILETIME at offset 36. ok is false when the header is truncated or the
// magic/CLSID don't match (the record is counted corrupt, not fatal).
func lnkAccessTime(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil || len(data) < lnkHeaderSize {
		return 0, false
	}
	if binary.LittleEndian.Uint32(data[0:4]) != lnkHeaderSize {
		return 0, false
	}
	if !bytes.Equal(data[4:20], lnkCLSID) {
		return 0, false
	}
	// Header: LinkFlags @20, FileAttributes @24, CreationTime @28,
	// AccessTime @36, WriteTime @44.
	return binary.LittleEndian.Uint64(data[36:44]), true
}

// fileCategory buckets a file extension into a coarse activity category
// for reporting.
func fileCategory(ext string) string {
	categories := map[string][]string{
		"document":   {".doc", ".docx", ".pdf", ".txt", ".hwp", ".ppt", ".pptx", ".xls", ".xlsx"},
		"image":      {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg"},
		"video":      {".mp4", ".avi", ".mkv", ".mov", ".wmv", ".webm"},
		"audio":      {".mp3", ".wav", ".flac", ".aac", ".ogg"},
		"archive":    {".zip", ".rar", ".7z", ".tar", ".gz"},
		"executable": {".exe", ".msi", ".bat", ".cmd"},
		"code":       {".py", ".js", ".go", ".html", ".css", ".java", ".c", ".cpp", ".h"},
	}
	for category, exts := range categories {
		for _, e := range exts {
			if e == ext {
				return category
			}
		}
	}
	return "other"
}
