package source

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/daytrail/internal/timeline"
)

// writeHistoryFixture builds a minimal Chromium History database with the
// given (url, title, visit_count, last_visit_time) rows.
func writeHistoryFixture(t *testing.T, rows [][4]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "History")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE urls (
		id INTEGER PRIMARY KEY,
		url TEXT,
		title TEXT,
		visit_count INTEGER,
		last_visit_time INTEGER
	)`)
	require.NoError(t, err)

	for _, r := range rows {
		_, err = db.Exec(
			`INSERT INTO urls (url, title, visit_count, last_visit_time) VALUES (?, ?, ?, ?)`,
			r[0], r[1], r[2], r[3],
		)
		require.NoError(t, err)
	}
	return path
}

func TestBrowserReader_Read(t *testing.T) {
	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	window := timeline.Window{Start: start, End: start.AddDate(0, 0, 1)}

	inside := toChromeMicros(start.Add(9 * time.Hour))
	before := toChromeMicros(start.Add(-time.Hour))

	path := writeHistoryFixture(t, [][4]any{
		{"https://example.com/page", "Example Page", 3, inside},
		{"https://untitled.example.com/", "", 1, inside},
		{"https://old.example.com/", "Old", 9, before},
	})

	r := &BrowserReader{Path: path, Browser: "chrome"}
	res, err := r.Read(context.Background(), window)
	require.NoError(t, err)
	require.Len(t, res.Records, 2, "row before the window is excluded")
	assert.Equal(t, 0, res.Corrupt)

	byURL := map[string]timeline.RawRecord{}
	for _, rec := range res.Records {
		byURL[rec.Subject] = rec
	}

	rec := byURL["https://example.com/page"]
	assert.Equal(t, timeline.SourceBrowserVisit, rec.Source)
	assert.Equal(t, "Example Page", rec.Attrs["title"])
	assert.Equal(t, int64(3), rec.Attrs["visit_count"])
	assert.Equal(t, "chrome", rec.Attrs["browser"])
	assert.Equal(t, "example.com", rec.Attrs["domain"])
	assert.Equal(t, "Example Page", rec.Disambiguator)

	assert.Equal(t, "(untitled)", byURL["https://untitled.example.com/"].Attrs["title"])
}

func TestBrowserReader_MissingFileIsUnavailable(t *testing.T) {
	r := &BrowserReader{Path: filepath.Join(t.TempDir(), "nope"), Browser: "edge"}
	_, err := r.Read(context.Background(), timeline.Window{End: time.Now()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestBrowserReader_Name(t *testing.T) {
	r := &BrowserReader{Browser: "edge"}
	assert.Equal(t, "browser:edge", r.Name())
}
