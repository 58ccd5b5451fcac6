// Package source contains one reader per operating-system artifact. Each
// reader decodes its artifact's native (often binary) records into
// RawRecords for a requested collection window. Readers are read-only and
// restartable: re-reading the same window over an unchanged artifact yields
// the same records.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/runnerr0/daytrail/internal/timeline"
)

// ErrUnavailable marks an artifact that is missing or inaccessible. The
// caller records a partial failure for the source and continues the run.
var ErrUnavailable = errors.New("source unavailable")

// ReadResult carries the decoded records plus the defensive-parsing
// counters a run summary needs. Corrupt records and unknown format
// versions are skipped, never fatal.
type ReadResult struct {
	Records        []timeline.RawRecord
	Corrupt        int
	UnknownVersion int
}

// Reader produces raw records for a collection window.
type Reader interface {
	// Name labels the reader in run summaries and logs.
	Name() string
	// Read returns all records whose native timestamp falls in the window.
	// An error wrapping ErrUnavailable means the whole artifact could not
	// be opened; record-level problems are counted in the result instead.
	Read(ctx context.Context, window timeline.Window) (*ReadResult, error)
}

const (
	retryAttempts = 3
	retryBaseWait = 100 * time.Millisecond
)

// withRetry runs fn up to retryAttempts times with linear backoff. Browsers
// and the OS keep their artifacts open while we read, so transient
// lock/sharing errors are expected.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBaseWait):
		}
	}
	return err
}
