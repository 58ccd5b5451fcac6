package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/daytrail/internal/timeline"
)

// chromeEpochDiffMicros converts between the Chrome history epoch
// (1601-01-01, microseconds) and the Unix epoch.
const chromeEpochDiffMicros = 11644473600 * 1000000

// BrowserReader reads visit records from a Chromium-family History SQLite
// store (Chrome and Edge share the schema). The browser keeps the file
// locked while running, so the reader snapshots it to a temp file first
// and queries the copy; the live store is never touched beyond reading.
type BrowserReader struct {
	Path    string // History database file
	Browser string // label, e.g. "chrome" or "edge"
}

func (r *BrowserReader) Name() string { return "browser:" + r.Browser }

func (r *BrowserReader) Read(ctx context.Context, window timeline.Window) (*ReadResult, error) {
	if _, err := os.Stat(r.Path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, r.Path, err)
	}

	tmp, err := snapshotFile(ctx, r.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot %s: %v", ErrUnavailable, r.Path, err)
	}
	defer os.Remove(tmp)

	db, err := sql.Open("sqlite3", tmp+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: open history copy: %v", ErrUnavailable, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT url, title, visit_count, last_visit_time
		FROM urls
		WHERE last_visit_time >= ? AND last_visit_time < ?
		ORDER BY last_visit_time DESC
	`, toChromeMicros(window.Start), toChromeMicros(window.End))
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	res := &ReadResult{}
	for rows.Next() {
		var (
			rawURL, title string
			visits, ticks int64
		)
		if err := rows.Scan(&rawURL, &title, &visits, &ticks); err != nil {
			res.Corrupt++
			continue
		}
		if title == "" {
			title = "(untitled)"
		}
		res.Records = append(res.Records, timeline.RawRecord{
			Source:  timeline.SourceBrowserVisit,
			Subject: rawURL,
			Time:    timeline.ChromeMicros(ticks),
			Attrs: map[string]any{
				"title":       title,
				"visit_count": visits,
				"browser":     r.Browser,
				"domain":      hostOf(rawURL),
			},
			Disambiguator: title,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan history: %v", ErrUnavailable, err)
	}

	return res, nil
}

// snapshotFile copies src to a temp file with bounded retry, returning the
// copy's path. SQLite stores locked by a writing browser fail the copy on
// some platforms; retrying with backoff rides out short write bursts.
func snapshotFile(ctx context.Context, src string) (string, error) {
	tmp, err := os.CreateTemp("", "daytrail-history-*.db")
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	tmp.Close()

	err = withRetry(ctx, func() error {
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.Create(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func toChromeMicros(t time.Time) int64 {
	return t.UTC().UnixMicro() + chromeEpochDiffMicros
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
