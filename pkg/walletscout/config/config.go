package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string `mapstructure:"level"`
	Path         string `mapstructure:"path"`
	ConsoleLevel string `mapstructure:"console_level"`
}

// HistoryConfig configures the durable scan history.
type HistoryConfig struct {
	// Dir is the history root; the record store and per-session report
	// directories live under it.
	Dir string `mapstructure:"dir"`

	// Retention is the maximum number of scan records to keep.
	Retention int `mapstructure:"retention"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// Config represents the application configuration.
type Config struct {
	ScanPath    string `mapstructure:"scan_path"`
	MaxDepth    int    `mapstructure:"max_depth"`
	MaxFileSize string `mapstructure:"max_file_size"`
	Workers     int    `mapstructure:"workers"`
	Format      string `mapstructure:"format"`
	Verbose     bool   `mapstructure:"verbose"`

	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/walletscout/config.yaml
//   - $HOME/.config/walletscout/config.yaml
//
// Environment variables are prefixed with WALLETSCOUT_
// (e.g. WALLETSCOUT_MAX_DEPTH).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "walletscout"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "walletscout"))

	v.SetEnvPrefix("WALLETSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	v.SetDefault("history.dir", filepath.Join(xdg.DataHome, "walletscout", "scans"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine; defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.HasPrefix(cfg.History.Dir, "~") {
		cfg.History.Dir = filepath.Join(homeDir, cfg.History.Dir[1:])
	}

	return &cfg, nil
}

// SetDefaults registers the default values on a viper instance. The CLI
// shares these with Load so flag-bound and file-loaded configuration agree.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("scan_path", DefaultScanPath)
	v.SetDefault("max_depth", DefaultMaxDepth)
	v.SetDefault("max_file_size", DefaultMaxFileSize)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("format", DefaultReportFormat)
	v.SetDefault("verbose", false)

	v.SetDefault("history.retention", DefaultHistoryRetention)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.console_level", "")

	v.SetDefault("server.listen", DefaultListenAddr)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "walletscout"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "walletscout"), nil
}

// HistoryDir returns the default scan-history directory.
func HistoryDir() string {
	return filepath.Join(xdg.DataHome, "walletscout", "scans")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~/")), nil
}
