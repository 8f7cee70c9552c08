// Package config loads and validates the scheduler backend configuration
// using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the SCHED_ prefix (e.g.,
// SCHED_DATABASE_HOST overrides database.host in the YAML), so the same binary
// runs with a config.yaml in local development and with pure environment
// variables in containerized deployments.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Guard    GuardConfig    `mapstructure:"guard"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// AllowedOrigins lists additional hosts (beyond the request's own Host)
	// accepted by the same-origin check, e.g. "admin.example.edu".
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// DSN builds the lib/pq connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// RedisConfig holds the connection settings for the rate-limit counter store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GuardConfig holds defaults for the request guard pipeline.
type GuardConfig struct {
	// RateWindow / RateLimit are the default throttle budget applied when a
	// route enables rate limiting without its own window/limit pair.
	RateWindow time.Duration `mapstructure:"rate_window"`
	RateLimit  int           `mapstructure:"rate_limit"`
}

// AuditConfig holds audit trail configuration.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// SuppressionWindow bounds the duplicate-write de-flooding heuristic.
	SuppressionWindow time.Duration `mapstructure:"suppression_window"`
	// DedupGranularity is the timestamp rounding applied by the read-path
	// dedup key. Two distinct events on the same resource/action inside one
	// granule are merged; this is a known approximation.
	DedupGranularity time.Duration `mapstructure:"dedup_granularity"`
}

// AuthConfig holds session authentication configuration.
type AuthConfig struct {
	// SessionSecret signs session JWTs. Required outside dev mode; in dev a
	// random per-process secret is generated when unset.
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	CookieName    string        `mapstructure:"cookie_name"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Format string `mapstructure:"format"` // "json" or "text"
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
}

// MetricsConfig holds the Prometheus side-channel listener configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads configuration from the optional YAML file at path plus the
// environment, applying defaults for everything unset.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SCHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "scheduler")
	v.SetDefault("database.user", "scheduler")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("guard.rate_window", 15*time.Second)
	v.SetDefault("guard.rate_limit", 20)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.suppression_window", 3*time.Second)
	v.SetDefault("audit.dedup_granularity", time.Second)

	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.session_ttl", 12*time.Hour)
	v.SetDefault("auth.cookie_name", "sched_session")
	v.SetDefault("auth.cookie_secure", true)

	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("database.host and database.name are required")
	}
	if c.Guard.RateLimit < 1 {
		return fmt.Errorf("guard.rate_limit must be positive, got %d", c.Guard.RateLimit)
	}
	if c.Guard.RateWindow <= 0 {
		return fmt.Errorf("guard.rate_window must be positive, got %s", c.Guard.RateWindow)
	}
	if c.Audit.DedupGranularity <= 0 {
		return fmt.Errorf("audit.dedup_granularity must be positive, got %s", c.Audit.DedupGranularity)
	}
	if c.Audit.SuppressionWindow < 0 {
		return fmt.Errorf("audit.suppression_window must not be negative, got %s", c.Audit.SuppressionWindow)
	}
	return nil
}
