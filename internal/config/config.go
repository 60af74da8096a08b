// Package config provides configuration management for the journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Storage     StorageConfig `mapstructure:"storage"`
	Journal     JournalConfig `mapstructure:"journal"`
	Coach       CoachConfig   `mapstructure:"coach"`
	Server      ServerConfig  `mapstructure:"server"`
	Logging     LoggingConfig `mapstructure:"logging"`
	UI          UIConfig      `mapstructure:"ui"`
	Credentials Credentials   `mapstructure:"-"` // Loaded separately
	Dir         string        `mapstructure:"-"`
}

// StorageConfig holds the persistent slot configuration.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // "file", "sqlite", "memory"
	Dir        string `mapstructure:"dir"`
	Key        string `mapstructure:"key"`
	QuotaBytes int64  `mapstructure:"quota_bytes"`
}

// JournalConfig holds journal behaviour settings.
type JournalConfig struct {
	DailyTradeLimit  int    `mapstructure:"daily_trade_limit"`
	DefaultTimeframe string `mapstructure:"default_timeframe"`
}

// CoachConfig holds AI coaching client configuration.
type CoachConfig struct {
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"` // 0 = none
	BreakerThreshold  int           `mapstructure:"breaker_threshold"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
}

// ServerConfig holds the local JSON API configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds the coaching API credential.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/mindful-trader"
	}
	return filepath.Join(home, ".config", "mindful-trader")
}

// Default returns the configuration used when no files are present.
func Default(configDir string) *Config {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	v := viper.New()
	setDefaults(v, configDir)
	cfg := &Config{Dir: configDir}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files are
// created from templates and loading continues with their contents.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// .env files never override variables already set in the environment.
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", filepath.Join(configDir, "data"))
	v.SetDefault("storage.key", "mindful_trades")
	v.SetDefault("storage.quota_bytes", 5*1024*1024)

	v.SetDefault("journal.daily_trade_limit", 4)
	v.SetDefault("journal.default_timeframe", "1m")

	v.SetDefault("coach.model", "gpt-4o-mini")
	v.SetDefault("coach.base_url", "")
	v.SetDefault("coach.requests_per_minute", 20)
	v.SetDefault("coach.max_attempts", 2)
	v.SetDefault("coach.request_timeout", "0s")
	v.SetDefault("coach.breaker_threshold", 3)
	v.SetDefault("coach.breaker_cooldown", "1m")

	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("server.mode", "release")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.max_size", 20)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplate(configDir, "config.toml", configTemplate, 0644); err != nil {
			return err
		}
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Use restricted permissions for credentials file
		return createTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("MINDFUL_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("MINDFUL_MODEL"); v != "" {
		cfg.Coach.Model = v
	}
	if v := os.Getenv("MINDFUL_BASE_URL"); v != "" {
		cfg.Coach.BaseURL = v
	}
	if v := os.Getenv("MINDFUL_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("MINDFUL_DATA_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("%w: storage backend %q (must be file, sqlite or memory)", apperrors.ErrConfigInvalid, c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("%w: storage key must not be empty", apperrors.ErrConfigInvalid)
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("%w: quota_bytes must be non-negative", apperrors.ErrConfigInvalid)
	}
	if c.Journal.DailyTradeLimit < 0 {
		return fmt.Errorf("%w: daily_trade_limit must be non-negative", apperrors.ErrConfigInvalid)
	}
	if c.Coach.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests_per_minute must be non-negative", apperrors.ErrConfigInvalid)
	}
	if c.Coach.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be at least 1", apperrors.ErrConfigInvalid)
	}
	if c.Coach.BreakerThreshold < 1 {
		return fmt.Errorf("%w: breaker_threshold must be at least 1", apperrors.ErrConfigInvalid)
	}
	if c.Coach.BreakerCooldown < 0 {
		return fmt.Errorf("%w: breaker_cooldown must be non-negative", apperrors.ErrConfigInvalid)
	}
	if c.Coach.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must be non-negative", apperrors.ErrConfigInvalid)
	}
	return nil
}

// LogConfig converts the logging section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   filepath.Join(c.Dir, "logs", "mindful.log"),
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// HasAPIKey reports whether a coaching credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.Credentials.OpenAI.APIKey != ""
}
