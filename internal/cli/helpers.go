package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/daytrail/internal/config"
	"github.com/runnerr0/daytrail/internal/source"
	"github.com/runnerr0/daytrail/internal/storage"
)

// loadConfig resolves the config path from the global flags, creating the
// default file on first use.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		return config.Load(globals.Config)
	}
	return config.LoadOrCreate()
}

// openStore opens the configured database, runs migrations, and returns a
// ready-to-use store and the underlying *sql.DB.
func openStore(cfg *config.Config) (*storage.SQLiteStore, *sql.DB, error) {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	return store, db, nil
}

// buildReaders assembles the enabled artifact readers from config. loc is
// the timezone the session log's wall-clock timestamps are interpreted in.
func buildReaders(cfg *config.Config, loc *time.Location) []source.Reader {
	var readers []source.Reader

	src := cfg.Sources
	if src.Browser.Enabled {
		if src.Browser.ChromePath != "" {
			readers = append(readers, &source.BrowserReader{Path: src.Browser.ChromePath, Browser: "chrome"})
		}
		if src.Browser.EdgePath != "" {
			readers = append(readers, &source.BrowserReader{Path: src.Browser.EdgePath, Browser: "edge"})
		}
	}
	if src.Prefetch.Enabled {
		readers = append(readers, &source.PrefetchReader{Dir: src.Prefetch.Dir, Exclude: src.Prefetch.Exclude})
	}
	if src.UserAssist.Enabled {
		readers = append(readers, &source.UserAssistReader{Registry: source.LiveRegistry{}})
	}
	if src.Sessions.Enabled {
		readers = append(readers, &source.SessionLogReader{
			Timeout:  time.Duration(src.Sessions.TimeoutSeconds) * time.Second,
			Location: loc,
		})
	}
	if src.RecentFiles.Enabled {
		readers = append(readers, &source.RecentFilesReader{Dir: src.RecentFiles.Dir})
	}
	if src.Roblox.Enabled {
		readers = append(readers, &source.RobloxReader{Dir: src.Roblox.LogsDir})
	}

	return readers
}

// location resolves the configured bucketing timezone.
func location(cfg *config.Config) (*time.Location, error) {
	if cfg.Collect.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(cfg.Collect.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Collect.Timezone, err)
	}
	return loc, nil
}

// newLogger builds the CLI's slog logger honoring the configured level and
// the --verbose flag.
func newLogger(cfg *config.Config, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// formatDurationHuman formats a duration like "3h 25m".
func formatDurationHuman(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, total%60)
	default:
		return fmt.Sprintf("%ds", total)
	}
}
