package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig describes how to reach the board service.
type ServerConfig struct {
	// BaseURL is the root URL of the service (e.g., http://localhost:8080).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIPrefix is prepended to every REST path.
	APIPrefix string `mapstructure:"api_prefix" yaml:"api_prefix"`

	// TimeoutSec bounds a single REST request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the request timeout as a duration.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// PushConfig holds push channel settings.
type PushConfig struct {
	Path              string `mapstructure:"path" yaml:"path"`
	ReconnectDelaySec int    `mapstructure:"reconnect_delay_sec" yaml:"reconnect_delay_sec"`
}

// ReconnectDelay returns the fixed reconnect delay as a duration.
func (p PushConfig) ReconnectDelay() time.Duration {
	return time.Duration(p.ReconnectDelaySec) * time.Second
}

// CacheConfig controls the local snapshot database.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Push    PushConfig    `mapstructure:"push" yaml:"push"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// EnvPrefix is the prefix for environment variable overrides, e.g.
// TASKBOARD_SERVER_BASE_URL.
const EnvPrefix = "TASKBOARD"

// ConfigDir returns ~/.config/taskboard, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskboard")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:    "http://localhost:8080",
			APIPrefix:  "/api",
			TimeoutSec: 30,
		},
		Push: PushConfig{
			Path:              "/ws",
			ReconnectDelaySec: 3,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "cache.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "taskboard.log"),
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// NewViper returns a viper instance with defaults and environment
// overrides registered. Callers may bind flags to it before LoadConfig.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	d := DefaultAppConfig()
	v.SetDefault("server.base_url", d.Server.BaseURL)
	v.SetDefault("server.api_prefix", d.Server.APIPrefix)
	v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	v.SetDefault("push.path", d.Push.Path)
	v.SetDefault("push.reconnect_delay_sec", d.Push.ReconnectDelaySec)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("display.theme", d.Display.Theme)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from the given YAML file path using v.
// A missing file is not an error: defaults and environment overrides apply.
func LoadConfig(v *viper.Viper, path string) (*AppConfig, error) {
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Server.TimeoutSec <= 0 {
		cfg.Server.TimeoutSec = 30
	}
	if cfg.Push.ReconnectDelaySec <= 0 {
		cfg.Push.ReconnectDelaySec = 3
	}
	if cfg.Push.Path == "" {
		cfg.Push.Path = "/ws"
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("push", cfg.Push)
	v.Set("cache", cfg.Cache)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
