// Package ingest drives one collection run: readers fan out in parallel,
// raw records are normalized into canonical events, and the results are
// merged into the per-day store. No failure of a single source or record
// aborts the rest of the run; only a store commit failure is fatal, and
// only for the affected day.
package ingest

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/daytrail/internal/source"
	"github.com/runnerr0/daytrail/internal/storage"
	"github.com/runnerr0/daytrail/internal/timeline"
)

// Runner executes collection runs against a fixed set of readers.
type Runner struct {
	Store      storage.Store
	Readers    []source.Reader
	Normalizer *timeline.Normalizer
	Logger     *slog.Logger
	// Location is the timezone for day bucketing. Defaults to time.Local.
	Location *time.Location
}

func (r *Runner) location() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.Local
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run performs one ingestion pass over the window and returns its summary.
// The returned error covers run-level failures only (e.g. persisting the
// summary); degraded sources and failed days are reported in the summary.
func (r *Runner) Run(ctx context.Context, window timeline.Window) (*Summary, error) {
	log := r.logger()
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Window:    window.String(),
		Sources:   make(map[string]SourceStats),
	}

	events := r.collect(ctx, window, summary)

	// The merge engine's commit step is the sole serialization point:
	// per-day buckets merge and commit independently, so one failed day
	// leaves every other day intact.
	byDay := timeline.GroupByDay(events, r.location())
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		if err := r.mergeDay(ctx, day, byDay[day], summary); err != nil {
			log.Error("day commit failed", "day", day, "error", err)
			summary.FailedDays = append(summary.FailedDays, day)
		}
	}

	summary.FinishedAt = time.Now()

	if err := r.Store.SaveRun(ctx, &storage.RunRecord{
		ID:         summary.RunID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Summary:    summary,
	}); err != nil {
		return summary, err
	}

	log.Info("run finished",
		"run_id", summary.RunID,
		"events", len(events),
		"inserted", summary.Inserted,
		"conflicts", summary.Conflicts,
		"degraded", summary.Degraded(),
	)
	return summary, nil
}

// collect reads every source in parallel and normalizes the records.
// Readers are independent; normalization is pure, so the only shared state
// is the accumulator behind the mutex.
func (r *Runner) collect(ctx context.Context, window timeline.Window, summary *Summary) []*timeline.Event {
	log := r.logger()

	var (
		mu     sync.Mutex
		events []*timeline.Event
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, rd := range r.Readers {
		rd := rd
		g.Go(func() error {
			stats := SourceStats{}
			res, err := rd.Read(gctx, window)
			if err != nil {
				// SourceUnavailable and friends: zero records, run continues.
				log.Warn("source unavailable", "source", rd.Name(), "error", err)
				stats.PartialFailure = true
				stats.FailureReason = err.Error()
				mu.Lock()
				summary.Sources[rd.Name()] = stats
				mu.Unlock()
				return nil
			}

			stats.RecordsDiscarded = res.Corrupt + res.UnknownVersion
			stats.UnknownVersions = res.UnknownVersion
			if res.UnknownVersion > 0 {
				// Logged distinctly so format drift is visible.
				log.Warn("unknown format versions skipped",
					"source", rd.Name(), "count", res.UnknownVersion)
			}

			var normalized []*timeline.Event
			for _, rec := range res.Records {
				stats.RecordsRead++
				ev, ok := r.Normalizer.Normalize(rec)
				if !ok || !window.Contains(ev.Timestamp) {
					stats.RecordsDiscarded++
					continue
				}
				normalized = append(normalized, &ev)
			}

			mu.Lock()
			events = append(events, normalized...)
			summary.Sources[rd.Name()] = stats
			mu.Unlock()
			return nil
		})
	}
	g.Wait() //nolint:errcheck // reader errors are absorbed into stats

	return events
}

// mergeDay loads the existing bucket for a day, merges the incoming
// events, and commits the result atomically.
func (r *Runner) mergeDay(ctx context.Context, day string, incoming []*timeline.Event, summary *Summary) error {
	bucket, err := r.Store.Day(ctx, day)
	if err != nil {
		return err
	}

	res := timeline.Merge(bucket, incoming)
	summary.Inserted += res.Inserted
	summary.Updated += res.Updated
	summary.Conflicts += res.Conflicts

	return r.Store.CommitDay(ctx, bucket)
}
