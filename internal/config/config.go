// Package config provides configuration management for RapidTriage.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RAPIDTRIAGE_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all RapidTriage configuration.
type Config struct {
	InputDirectory string           `yaml:"input_directory"`
	OutputPath     string           `yaml:"output_path"`
	ReportSuffix   string           `yaml:"report_suffix"`
	Enrichment     EnrichmentConfig `yaml:"enrichment"`
	RateLimit      RateLimitConfig  `yaml:"rate_limit"`
	Server         ServerConfig     `yaml:"server"`
	Logging        LoggingConfig    `yaml:"logging"`
	Metrics        MetricsConfig    `yaml:"metrics"`
}

// EnrichmentConfig holds reputation lookup settings.
type EnrichmentConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Concurrency      int           `yaml:"concurrency"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	InsecureTLS      bool          `yaml:"insecure_tls"`
	MaxResponseBytes int64         `yaml:"max_response_bytes"`
}

// RateLimitConfig throttles outbound lookups.
type RateLimitConfig struct {
	RequestsPerMinute int         `yaml:"requests_per_minute"` // 0 disables throttling
	Burst             int         `yaml:"burst"`
	Redis             RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the shared limiter.
type RedisConfig struct {
	Addr        string `yaml:"addr"` // empty: in-process limiter
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	KeyPrefix   string `yaml:"key_prefix"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	MaxAddresses    int           `yaml:"max_addresses"` // 0: derived from write_timeout
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// MetricsConfig toggles Prometheus collection.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		InputDirectory: ".",
		OutputPath:     "rapidTriage_IP_output.txt",
		ReportSuffix:   "rapidTriage.txt",
		Enrichment: EnrichmentConfig{
			BaseURL:          "http://api.blocklist.de",
			Concurrency:      8,
			RequestTimeout:   10 * time.Second,
			RetryBackoff:     1 * time.Second,
			InsecureTLS:      false,
			MaxResponseBytes: 64 * 1024,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			Burst:             5,
			Redis: RedisConfig{
				PasswordEnv: "RAPIDTRIAGE_REDIS_PASSWORD",
				KeyPrefix:   "rapidtriage:ratelimit",
			},
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.OutputPath == "":
		return fmt.Errorf("%w: output_path is empty", ErrInvalidConfig)
	case c.Enrichment.BaseURL == "":
		return fmt.Errorf("%w: enrichment.base_url is empty", ErrInvalidConfig)
	case c.Enrichment.Concurrency < 1:
		return fmt.Errorf("%w: enrichment.concurrency must be at least 1, got %d", ErrInvalidConfig, c.Enrichment.Concurrency)
	case c.Enrichment.RequestTimeout <= 0:
		return fmt.Errorf("%w: enrichment.request_timeout must be positive", ErrInvalidConfig)
	case c.Enrichment.RetryBackoff < 0:
		return fmt.Errorf("%w: enrichment.retry_backoff must not be negative", ErrInvalidConfig)
	case c.Enrichment.MaxResponseBytes <= 0:
		return fmt.Errorf("%w: enrichment.max_response_bytes must be positive", ErrInvalidConfig)
	case c.RateLimit.RequestsPerMinute < 0:
		return fmt.Errorf("%w: rate_limit.requests_per_minute must not be negative", ErrInvalidConfig)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	case c.Server.MaxAddresses < 0:
		return fmt.Errorf("%w: server.max_addresses must not be negative", ErrInvalidConfig)
	}
	return nil
}

// MaxBatchAddresses returns how many unique addresses one enrich request may
// carry. Unless server.max_addresses is set, it is the number that completes
// within nine tenths of write_timeout when every lookup times out twice:
// each pool slot spends 2*request_timeout + retry_backoff per address.
// Throttling is not accounted for. Zero means no limit.
func (c *Config) MaxBatchAddresses() int {
	if c.Server.MaxAddresses > 0 {
		return c.Server.MaxAddresses
	}
	if c.Server.WriteTimeout <= 0 {
		return 0
	}
	perAddress := 2*c.Enrichment.RequestTimeout + c.Enrichment.RetryBackoff
	if perAddress <= 0 {
		return 0
	}
	rounds := int(c.Server.WriteTimeout * 9 / 10 / perAddress)
	if rounds < 1 {
		rounds = 1
	}
	return rounds * c.Enrichment.Concurrency
}

// ApplyEnv overrides fields from RAPIDTRIAGE_* environment variables.
// Unparseable numeric values are reported rather than ignored.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvPrefix + "INPUT_DIRECTORY"); v != "" {
		c.InputDirectory = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_PATH"); v != "" {
		c.OutputPath = v
	}
	if v := os.Getenv(EnvPrefix + "BASE_URL"); v != "" {
		c.Enrichment.BaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %sCONCURRENCY: %w", EnvPrefix, err)
		}
		c.Enrichment.Concurrency = n
	}
	if v := os.Getenv(EnvPrefix + "REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %sREQUEST_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Enrichment.RequestTimeout = d
	}
	if v := os.Getenv(EnvPrefix + "INSECURE_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %sINSECURE_TLS: %w", EnvPrefix, err)
		}
		c.Enrichment.InsecureTLS = b
	}
	if v := os.Getenv(EnvPrefix + "REDIS_ADDR"); v != "" {
		c.RateLimit.Redis.Addr = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvPrefix + "PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %sPORT: %w", EnvPrefix, err)
		}
		c.Server.Port = n
	}
	return nil
}

// RedisPassword resolves the Redis password from the configured env var.
func (c *Config) RedisPassword() string {
	if c.RateLimit.Redis.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.RateLimit.Redis.PasswordEnv)
}
