// Package config loads and persists project configuration from
// .atp/config.json, with ATP_* environment variable overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Version is the supported configuration schema version
const Version = 1

// Config represents the complete project configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Scripts string `json:"scripts" mapstructure:"scripts"`
	IDDepth int    `json:"idDepth" mapstructure:"idDepth"`

	Paths   PathsConfig   `json:"paths" mapstructure:"paths"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// PathsConfig locates the persisted stores and the output directory
type PathsConfig struct {
	Cache   string `json:"cache" mapstructure:"cache"`
	Lock    string `json:"lock" mapstructure:"lock"`
	History string `json:"history" mapstructure:"history"`
	Output  string `json:"output" mapstructure:"output"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Scripts: "tests/*.yaml",
		IDDepth: 1,
		Paths: PathsConfig{
			Cache:   ".atp/cache.json.zst",
			Lock:    ".atp/idlock.toml",
			History: ".atp/history.db",
			Output:  "output",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// Load reads configuration from .atp/config.json under projectRoot.
// A missing file yields the defaults; environment variables prefixed
// ATP_ override individual settings either way.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("scripts", defaults.Scripts)
	v.SetDefault("idDepth", defaults.IDDepth)
	v.SetDefault("paths.cache", defaults.Paths.Cache)
	v.SetDefault("paths.lock", defaults.Paths.Lock)
	v.SetDefault("paths.history", defaults.Paths.History)
	v.SetDefault("paths.output", defaults.Paths.Output)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, ".atp"))

	v.SetEnvPrefix("ATP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to .atp/config.json under projectRoot
func (c *Config) Save(projectRoot string) error {
	dir := filepath.Join(projectRoot, ".atp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != Version {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.IDDepth < 1 {
		return &ConfigError{Field: "idDepth", Message: "must be at least 1"}
	}
	if strings.TrimSpace(c.Scripts) == "" {
		return &ConfigError{Field: "scripts", Message: "must not be empty"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
