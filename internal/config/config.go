// ABOUTME: Configuration loading with XDG paths, a JSON config file, and XVAULT_ env overrides
// ABOUTME: Resolves the vault path, the local listen address, logging, and backup settings

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config stores xvault configuration.
type Config struct {
	// DataDir is the root directory for data storage; the vault lives in
	// DataDir/xvault.db. Supports ~ expansion. Defaults to ~/.local/share/xvault.
	DataDir string `mapstructure:"data_dir" json:"data_dir,omitempty"`

	// Listen is the address for the local HTTP API.
	Listen string `mapstructure:"listen" json:"listen,omitempty"`

	LogLevel string `mapstructure:"log_level" json:"log_level,omitempty"`

	// BackupSchedule is a cron spec. Empty disables scheduled backups.
	BackupSchedule string `mapstructure:"backup_schedule" json:"backup_schedule,omitempty"`
	BackupDir      string `mapstructure:"backup_dir" json:"backup_dir,omitempty"`
	BackupKeep     int    `mapstructure:"backup_keep" json:"backup_keep,omitempty"`

	// AllowedOrigins is a comma-separated CORS list for the browser extension.
	AllowedOrigins string `mapstructure:"allowed_origins" json:"allowed_origins,omitempty"`
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// DBPath returns the vault database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), DefaultDBFilename)
}

// GetBackupDir returns the backup directory, defaulting to DataDir/backups.
func (c *Config) GetBackupDir() string {
	if c.BackupDir == "" {
		return filepath.Join(c.GetDataDir(), "backups")
	}
	return ExpandPath(c.BackupDir)
}

// Origins splits AllowedOrigins into a trimmed list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.BackupKeep < 1 {
		return fmt.Errorf("backup_keep must be at least 1, got %d", c.BackupKeep)
	}
	if c.BackupSchedule != "" {
		if _, err := cron.ParseStandard(c.BackupSchedule); err != nil {
			return fmt.Errorf("invalid backup_schedule %q: %w", c.BackupSchedule, err)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "xvault", "config.json")
}

// Load reads the config file at path (GetConfigPath when empty) and applies
// XVAULT_ environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", "")
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("backup_schedule", "")
	v.SetDefault("backup_dir", "")
	v.SetDefault("backup_keep", DefaultBackupKeep)
	v.SetDefault("allowed_origins", "")

	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// defaultDataDir returns the standard XDG data directory for xvault.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "xvault")
}
