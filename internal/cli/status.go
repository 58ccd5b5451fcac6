package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/daytrail/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	TotalEvents       int64             `json:"total_events"`
	TotalDays         int64             `json:"total_days"`
	OldestDay         string            `json:"oldest_day,omitempty"`
	NewestDay         string            `json:"newest_day,omitempty"`
	TotalRuns         int64             `json:"total_runs"`
	BySource          []sourceCountJSON `json:"by_source"`
}

type sourceCountJSON struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
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

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}

	return c.executeWithStore(store, db, dbPath)
}

// executeWithStore runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWithStore(store storage.Store, db *sql.DB, dbPath string) error {
	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dbSize := databaseSize(db, dbPath)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(stats, dbPath, dbSize)
	}
	c.printStatusHuman(stats, dbPath, dbSize)
	return nil
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, dbPath string, dbSize int64) {
	fmt.Println("Daytrail Status")
	fmt.Println("===============")
	fmt.Printf("Version:    %s\n", c.version)
	fmt.Printf("Database:   %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("Events:     %d across %d days\n", stats.TotalEvents, stats.TotalDays)
	if stats.TotalEvents > 0 {
		fmt.Printf("Range:      %s .. %s\n", stats.OldestDay, stats.NewestDay)
	}
	fmt.Printf("Runs:       %d\n", stats.TotalRuns)

	if len(stats.BySource) > 0 {
		fmt.Println()
		fmt.Println("By source:")
		for _, sc := range stats.BySource {
			fmt.Printf("  %-20s %d\n", sc.Source, sc.Count)
		}
	}
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, dbPath string, dbSize int64) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		TotalEvents:       stats.TotalEvents,
		TotalDays:         stats.TotalDays,
		OldestDay:         stats.OldestDay,
		NewestDay:         stats.NewestDay,
		TotalRuns:         stats.TotalRuns,
		BySource:          make([]sourceCountJSON, len(stats.BySource)),
	}
	for i, sc := range stats.BySource {
		out.BySource[i] = sourceCountJSON{Source: sc.Source, Count: sc.Count}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// databaseSize returns the database file size in bytes. For in-memory
// databases it falls back to page_count * page_size.
func databaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
