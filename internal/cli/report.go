package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/runnerr0/daytrail/internal/source"
	"github.com/runnerr0/daytrail/internal/timeline"
)

var robloxGameURL = regexp.MustCompile(`(?i)roblox\.com/(?:[a-z]{2}/)?games/(\d+)`)

// Execute implements the go-flags Commander interface for ReportCommand.
func (c *ReportCommand) Execute(args []string) error {
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

	day := c.Date
	if day == "" {
		day = time.Now().In(loc).Format("2006-01-02")
	}

	bucket, err := store.Day(context.Background(), day)
	if err != nil {
		return fmt.Errorf("load day %s: %w", day, err)
	}
	events := bucket.Sorted()

	if c.globals != nil && c.globals.JSON {
		return printReportJSON(day, events, loc)
	}
	c.printReport(day, events, loc)
	return nil
}

type reportEventJSON struct {
	Time    string         `json:"time"`
	Source  string         `json:"source"`
	Subject string         `json:"subject"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

func printReportJSON(day string, events []*timeline.Event, loc *time.Location) error {
	out := struct {
		Day    string            `json:"day"`
		Count  int               `json:"count"`
		Events []reportEventJSON `json:"events"`
	}{Day: day, Count: len(events), Events: make([]reportEventJSON, len(events))}

	for i, ev := range events {
		out.Events[i] = reportEventJSON{
			Time:    ev.Timestamp.In(loc).Format("15:04:05"),
			Source:  string(ev.Source),
			Subject: ev.Subject,
			Attrs:   ev.Attrs,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (c *ReportCommand) printReport(day string, events []*timeline.Event, loc *time.Location) {
	limit := c.Limit
	if limit <= 0 {
		limit = 15
	}

	fmt.Printf("Activity report for %s\n", day)
	fmt.Printf("%s\n\n", strings.Repeat("=", 40))

	if len(events) == 0 {
		fmt.Println("No recorded activity. Run `daytrail collect` first.")
		return
	}

	bySource := make(map[timeline.Source][]*timeline.Event)
	for _, ev := range events {
		bySource[ev.Source] = append(bySource[ev.Source], ev)
	}

	printSessions(bySource[timeline.SourceSessionBoundary], loc)
	printBrowser(bySource[timeline.SourceBrowserVisit], limit)
	printPrograms(bySource[timeline.SourceProgramExecution], loc, limit)
	printRecentFiles(bySource[timeline.SourceRecentFile], limit)
	printGames(bySource[timeline.SourceGameSession], bySource[timeline.SourceBrowserVisit])

	fmt.Printf("Total: %d events\n", len(events))
}

// printSessions pairs session boundaries chronologically and sums usage.
// An open span (start without a stop on the same day) counts up to
// midnight, matching the multi-day session policy.
func printSessions(events []*timeline.Event, loc *time.Location) {
	if len(events) == 0 {
		return
	}

	fmt.Println("[ Sessions ]")
	var (
		usage     time.Duration
		spanStart time.Time
	)
	for _, ev := range events {
		local := ev.Timestamp.In(loc)
		boundary, _ := ev.Attrs["boundary"].(string)
		fmt.Printf("  %s  %s\n", local.Format("15:04:05"), boundary)

		switch boundary {
		case "boot", "logon":
			if spanStart.IsZero() {
				spanStart = local
			}
		case "shutdown", "logoff":
			if !spanStart.IsZero() {
				usage += local.Sub(spanStart)
				spanStart = time.Time{}
			}
		}
	}
	if !spanStart.IsZero() {
		midnight := time.Date(spanStart.Year(), spanStart.Month(), spanStart.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		usage += midnight.Sub(spanStart)
	}
	fmt.Printf("  Usage: %s\n\n", formatDurationHuman(usage))
}

func printBrowser(events []*timeline.Event, limit int) {
	if len(events) == 0 {
		return
	}

	domains := make(map[string]int)
	for _, ev := range events {
		if d, _ := ev.Attrs["domain"].(string); d != "" {
			domains[d]++
		}
	}

	fmt.Printf("[ Browsing: %d visits ]\n", len(events))
	for _, kv := range topCounts(domains, limit) {
		fmt.Printf("  %-30s %d\n", kv.key, kv.count)
	}
	fmt.Println()
}

func printPrograms(events []*timeline.Event, loc *time.Location, limit int) {
	if len(events) == 0 {
		return
	}

	fmt.Printf("[ Programs: %d executions ]\n", len(events))
	shown := 0
	for i := len(events) - 1; i >= 0 && shown < limit; i-- { // newest first
		ev := events[i]
		fmt.Printf("  %s  %s\n", ev.Timestamp.In(loc).Format("15:04:05"), ev.Subject)
		shown++
	}
	fmt.Println()
}

func printRecentFiles(events []*timeline.Event, limit int) {
	if len(events) == 0 {
		return
	}

	categories := make(map[string]int)
	for _, ev := range events {
		if c, _ := ev.Attrs["category"].(string); c != "" {
			categories[c]++
		}
	}

	fmt.Printf("[ Files opened: %d ]\n", len(events))
	for _, kv := range topCounts(categories, limit) {
		fmt.Printf("  %-12s %d\n", kv.key, kv.count)
	}
	fmt.Println()
}

// printGames merges game-session events with roblox.com game visits found
// in the day's browsing records.
func printGames(games, visits []*timeline.Event) {
	counts := make(map[string]int)
	for _, ev := range games {
		name, _ := ev.Attrs["game"].(string)
		if name == "" {
			name = ev.Subject
		}
		counts[name]++
	}
	for _, ev := range visits {
		if m := robloxGameURL.FindStringSubmatch(ev.Subject); m != nil {
			counts[source.GameName(m[1])]++
		}
	}
	if len(counts) == 0 {
		return
	}

	fmt.Println("[ Games ]")
	for _, kv := range topCounts(counts, len(counts)) {
		fmt.Printf("  %-30s %d\n", kv.key, kv.count)
	}
	fmt.Println()
}

type keyCount struct {
	key   string
	count int
}

func topCounts(m map[string]int, limit int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
