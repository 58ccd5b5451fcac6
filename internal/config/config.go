package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/daytrail/config.yaml"

// Config holds all daytrail configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Collect CollectConfig `yaml:"collect"`
	Sources SourcesConfig `yaml:"sources"`
	Logging LoggingConfig `yaml:"logging"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
}

type CollectConfig struct {
	WindowDays          int    `yaml:"window_days"`
	SkewToleranceMinute int    `yaml:"skew_tolerance_minutes"`
	Timezone            string `yaml:"timezone"` // IANA name; empty means the machine's local zone
}

type SourcesConfig struct {
	Browser     BrowserConfig     `yaml:"browser"`
	Prefetch    PrefetchConfig    `yaml:"prefetch"`
	UserAssist  UserAssistConfig  `yaml:"userassist"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	RecentFiles RecentFilesConfig `yaml:"recent_files"`
	Roblox      RobloxConfig      `yaml:"roblox"`
}

type BrowserConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ChromePath string `yaml:"chrome_path"`
	EdgePath   string `yaml:"edge_path"`
}

type PrefetchConfig struct {
	Enabled bool     `yaml:"enabled"`
	Dir     string   `yaml:"dir"`
	Exclude []string `yaml:"exclude"` // system-process noise, see denylist.go
}

type UserAssistConfig struct {
	Enabled bool `yaml:"enabled"`
}

type SessionsConfig struct {
	Enabled        bool `yaml:"enabled"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

type RecentFilesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type RobloxConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogsDir string `yaml:"logs_dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Collect.WindowDays <= 0 {
		cfg.Collect.WindowDays = 7
	}

	return cfg, nil
}

// DatabasePath resolves the full path of the SQLite file.
func (c *Config) DatabasePath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
