// Package config provides configuration loading for the sales analytics service.
// Supports YAML files, .env files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Analyzer      AnalyzerConfig      `yaml:"analyzer"`
	Advisor       AdvisorConfig       `yaml:"advisor"`
	Observability ObservabilityConfig `yaml:"observability"`
	Auth          AuthConfig          `yaml:"auth"`
	Tenancy       TenancyConfig       `yaml:"tenancy"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	GracefulShutdown  time.Duration `yaml:"graceful_shutdown"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// DatabaseConfig holds record store connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // memory, sqlite, postgres or redis
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds analysis cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// AnalyzerConfig holds pipeline settings.
type AnalyzerConfig struct {
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	CoercionThreshold float64       `yaml:"coercion_threshold"`
	SampleRows        int           `yaml:"sample_rows"`
	AdvisorTimeout    time.Duration `yaml:"advisor_timeout"`
	TempDir           string        `yaml:"temp_dir"`
}

// AdvisorConfig holds settings for the optional LLM column advisor.
type AdvisorConfig struct {
	Enabled           bool    `yaml:"enabled"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Enabled bool     `yaml:"enabled"`
	Tokens  []string `yaml:"tokens"`
}

// TenancyConfig holds multi-tenancy settings.
type TenancyConfig struct {
	DefaultTenant string `yaml:"default_tenant"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8090,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			GracefulShutdown:  10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/sales-analytics.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        30 * time.Minute,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		Analyzer: AnalyzerConfig{
			MaxUploadBytes:    50 << 20,
			CoercionThreshold: 0.5,
			SampleRows:        1000,
			AdvisorTimeout:    20 * time.Second,
		},
		Advisor: AdvisorConfig{
			Enabled:           false,
			BaseURL:           "https://openrouter.ai/api/v1",
			Model:             "google/gemini-2.5-flash",
			RequestsPerMinute: 30,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "sales-analytics",
		},
		Tenancy: TenancyConfig{
			DefaultTenant: "dev",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres driver requires a dsn")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Analyzer.CoercionThreshold <= 0 || c.Analyzer.CoercionThreshold > 1 {
		return fmt.Errorf("coercion_threshold must be in (0, 1]")
	}

	if c.Analyzer.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}

	if c.Advisor.Enabled && c.Advisor.APIKey == "" {
		return fmt.Errorf("advisor is enabled but no api key is configured")
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "postgres" {
		return c.Database.Postgres.DSN
	}
	return c.Database.SQLite.Path
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		switch {
		case strings.HasPrefix(v, "sqlite:"):
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		case strings.HasPrefix(v, "postgres"):
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		case v == "memory":
			cfg.Database.Driver = "memory"
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if mb, err := strconv.ParseInt(v, 10, 64); err == nil && mb > 0 {
			cfg.Analyzer.MaxUploadBytes = mb << 20
		}
	}

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Advisor.APIKey = v
	}

	if v := os.Getenv("ADVISOR_MODEL"); v != "" {
		cfg.Advisor.Model = v
	}

	if v := os.Getenv("ADVISOR_ENABLED"); v == "true" {
		cfg.Advisor.Enabled = true
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("AUTH_ENABLED"); v == "true" {
		cfg.Auth.Enabled = true
	}

	if v := os.Getenv("AUTH_TOKENS"); v != "" {
		cfg.Auth.Tokens = strings.Split(v, ",")
	}
}
