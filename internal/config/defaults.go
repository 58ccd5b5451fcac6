package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig returns a Config populated with all default values.
// Artifact locations resolve from the standard Windows environment
// variables; on other hosts they come out empty and the corresponding
// readers report the source unavailable.
func DefaultConfig() *Config {
	localAppData := os.Getenv("LOCALAPPDATA")
	appData := os.Getenv("APPDATA")
	winDir := os.Getenv("WINDIR")
	if winDir == "" {
		winDir = `C:\Windows`
	}

	return &Config{
		Storage: StorageConfig{
			Path:       "~/.config/daytrail",
			SQLiteFile: "daytrail.db",
		},
		Collect: CollectConfig{
			WindowDays:          7,
			SkewToleranceMinute: 5,
			Timezone:            "",
		},
		Sources: SourcesConfig{
			Browser: BrowserConfig{
				Enabled:    true,
				ChromePath: filepath.Join(localAppData, "Google", "Chrome", "User Data", "Default", "History"),
				EdgePath:   filepath.Join(localAppData, "Microsoft", "Edge", "User Data", "Default", "History"),
			},
			Prefetch: PrefetchConfig{
				Enabled: true,
				Dir:     filepath.Join(winDir, "Prefetch"),
				Exclude: DefaultSystemProcessExclusions(),
			},
			UserAssist: UserAssistConfig{
				Enabled: true,
			},
			Sessions: SessionsConfig{
				Enabled:        true,
				TimeoutSeconds: 30,
			},
			RecentFiles: RecentFilesConfig{
				Enabled: true,
				Dir:     filepath.Join(appData, "Microsoft", "Windows", "Recent"),
			},
			Roblox: RobloxConfig{
				Enabled: true,
				LogsDir: filepath.Join(localAppData, "Roblox", "logs"),
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
