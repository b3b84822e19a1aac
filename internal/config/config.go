package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RTODASH_"

// Storage backends for per-client durable storage.
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// ServerConfig holds configuration for the dashboard server.
type ServerConfig struct {
	Addr       string `yaml:"addr"`         // Listen address (default ":8080")
	LogLevel   string `yaml:"log_level"`    // debug, info, warn, error
	LogFormat  string `yaml:"log_format"`   // text, json
	APIBaseURL string `yaml:"api_base_url"` // Reminder API including /api/v1

	Storage  string `yaml:"storage"`   // sqlite, redis, memory
	DBPath   string `yaml:"db_path"`   // SQLite path (default ~/.rtodash/rtodash.db)
	RedisURL string `yaml:"redis_url"` // redis://host:6379/0

	CookieSecure bool `yaml:"cookie_secure"`

	IdleTTL       time.Duration `yaml:"idle_ttl"`       // evict client apps idle this long
	RetentionTTL  time.Duration `yaml:"retention_ttl"`  // drop client storage idle this long; 0 keeps it
	SweepInterval time.Duration `yaml:"sweep_interval"` // how often the sweeper runs

	LowBalanceThreshold string `yaml:"low_balance_threshold"`
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:                ":8080",
		LogLevel:            "info",
		LogFormat:           "text",
		APIBaseURL:          "http://localhost:5000/api/v1",
		Storage:             StorageSQLite,
		IdleTTL:             30 * time.Minute,
		RetentionTTL:        30 * 24 * time.Hour,
		SweepInterval:       time.Minute,
		LowBalanceThreshold: "50",
	}
}

// Threshold parses LowBalanceThreshold.
func (c ServerConfig) Threshold() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.LowBalanceThreshold))
	if err != nil {
		return decimal.Zero, fmt.Errorf("low_balance_threshold %q: %w", c.LowBalanceThreshold, err)
	}
	return d, nil
}

// Validate checks values that cannot be defaulted.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("api_base_url is required"))
	}
	switch c.Storage {
	case StorageSQLite, StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis_url is required for redis storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep_interval must be positive"))
	}
	if _, err := c.Threshold(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadServer builds the server config from defaults, an optional YAML file,
// a .env file in the working directory and RTODASH_* environment variables,
// in that order.
func LoadServer(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := loadDotEnv(); err != nil {
		return cfg, err
	}
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}

	envString("ADDR", &cfg.Addr)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envString("LOG_FORMAT", &cfg.LogFormat)
	envString("API_BASE_URL", &cfg.APIBaseURL)
	envString("STORAGE", &cfg.Storage)
	envString("DB_PATH", &cfg.DBPath)
	envString("REDIS_URL", &cfg.RedisURL)
	envString("LOW_BALANCE_THRESHOLD", &cfg.LowBalanceThreshold)
	if err := errors.Join(
		envBool("COOKIE_SECURE", &cfg.CookieSecure),
		envDuration("IDLE_TTL", &cfg.IdleTTL),
		envDuration("RETENTION_TTL", &cfg.RetentionTTL),
		envDuration("SWEEP_INTERVAL", &cfg.SweepInterval),
	); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CLIConfig holds configuration for the rtodash command.
type CLIConfig struct {
	APIBaseURL  string `yaml:"api_base_url"`
	StoragePath string `yaml:"storage_path"` // default ~/.rtodash/storage.json
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// DefaultCLIConfig returns sensible defaults.
func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		APIBaseURL: "http://localhost:5000/api/v1",
		LogLevel:   "warn",
		LogFormat:  "text",
	}
}

// LoadCLI builds the CLI config the same way LoadServer does. A missing
// file at path is not an error, since the CLI looks in a default location.
func LoadCLI(path string) (CLIConfig, error) {
	cfg := DefaultCLIConfig()
	if err := loadDotEnv(); err != nil {
		return cfg, err
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := loadYAML(path, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	envString("API_BASE_URL", &cfg.APIBaseURL)
	envString("STORAGE_PATH", &cfg.StoragePath)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envString("LOG_FORMAT", &cfg.LogFormat)
	return cfg, nil
}

// DefaultCLIConfigPath is ~/.rtodash/config.yaml.
func DefaultCLIConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rtodash", "config.yaml")
}

func loadYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads ./.env if present. Variables already set win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = strings.TrimSpace(v)
	}
}

func envBool(name string, dst *bool) error {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = b
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}
