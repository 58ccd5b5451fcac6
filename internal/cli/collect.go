package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/runnerr0/daytrail/internal/ingest"
	"github.com/runnerr0/daytrail/internal/timeline"
)

// Execute implements the go-flags Commander interface for CollectCommand.
func (c *CollectCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	loc, err := location(cfg)
	if err != nil {
		return err
	}

	window, err := c.window(cfg.Collect.WindowDays, loc)
	if err != nil {
		return err
	}

	runner := &ingest.Runner{
		Store:   store,
		Readers: buildReaders(cfg, loc),
		Normalizer: &timeline.Normalizer{
			Location: loc,
			Skew:     time.Duration(cfg.Collect.SkewToleranceMinute) * time.Minute,
		},
		Logger:   newLogger(cfg, c.globals != nil && c.globals.Verbose),
		Location: loc,
	}

	summary, err := runner.Run(context.Background(), window)
	if err != nil {
		return fmt.Errorf("collection run: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(summary)
	return nil
}

// window resolves the collection window from flags: a single local day
// with --date, otherwise a rolling window of --days (or the configured
// default).
func (c *CollectCommand) window(defaultDays int, loc *time.Location) (timeline.Window, error) {
	if c.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", c.Date, loc)
		if err != nil {
			return timeline.Window{}, fmt.Errorf("invalid --date %q: %w", c.Date, err)
		}
		return timeline.Window{Start: day, End: day.AddDate(0, 0, 1)}, nil
	}

	days := c.Days
	if days <= 0 {
		days = defaultDays
	}
	return timeline.LastDays(time.Now(), days), nil
}

func printSummary(s *ingest.Summary) {
	fmt.Printf("Run %s finished in %s\n", s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	fmt.Printf("Window: %s\n\n", s.Window)

	names := make([]string, 0, len(s.Sources))
	for name := range s.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Sources:")
	for _, name := range names {
		st := s.Sources[name]
		if st.PartialFailure {
			fmt.Printf("  %-16s FAILED (%s)\n", name, st.FailureReason)
			continue
		}
		line := fmt.Sprintf("  %-16s %d read, %d discarded", name, st.RecordsRead, st.RecordsDiscarded)
		if st.UnknownVersions > 0 {
			line += fmt.Sprintf(", %d unknown format", st.UnknownVersions)
		}
		fmt.Println(line)
	}

	fmt.Printf("\nMerged: %d new, %d updated, %d conflicts\n", s.Inserted, s.Updated, s.Conflicts)
	if len(s.FailedDays) > 0 {
		fmt.Printf("Failed days: %v\n", s.FailedDays)
	}
	if s.Degraded() {
		fmt.Println("\nWARNING: collection was degraded; see above.")
	}
}
