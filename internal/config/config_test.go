package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// =============================================================================
// Load Tests
// =============================================================================

// TestDefaultConfig_Valid verifies the defaults pass validation.
func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	if cfg.Enrichment.Concurrency != 8 {
		t.Errorf("expected default concurrency 8, got %d", cfg.Enrichment.Concurrency)
	}
	if cfg.Enrichment.RequestTimeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %v", cfg.Enrichment.RequestTimeout)
	}
	if cfg.Enrichment.InsecureTLS {
		t.Error("insecure_tls must default to false")
	}
	if cfg.ReportSuffix != "rapidTriage.txt" {
		t.Errorf("unexpected report suffix %q", cfg.ReportSuffix)
	}
}

// TestLoad_OverridesDefaults verifies YAML values land over the defaults and
// unspecified keys keep their default.
func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
input_directory: /cases/2024-117
output_path: /cases/2024-117/ips.txt
enrichment:
  concurrency: 16
  request_timeout: 3s
  insecure_tls: true
logging:
  format: json
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.InputDirectory != "/cases/2024-117" {
		t.Errorf("unexpected input directory %q", cfg.InputDirectory)
	}
	if cfg.Enrichment.Concurrency != 16 {
		t.Errorf("expected concurrency 16, got %d", cfg.Enrichment.Concurrency)
	}
	if cfg.Enrichment.RequestTimeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", cfg.Enrichment.RequestTimeout)
	}
	if !cfg.Enrichment.InsecureTLS {
		t.Error("expected insecure_tls true")
	}
	if cfg.Enrichment.BaseURL != "http://api.blocklist.de" {
		t.Errorf("base_url should keep default, got %q", cfg.Enrichment.BaseURL)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

// TestLoad_ShippedConfig keeps configs/config.yaml in step with DefaultConfig.
func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("shipped config differs from defaults:\n got %+v\nwant %+v", cfg, DefaultConfig())
	}
}

// TestLoad_MissingFile verifies a missing file is an error.
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// TestLoad_InvalidYAML verifies parse failures are reported.
func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("enrichment: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Enrichment.Concurrency = 0 }},
		{"negative concurrency", func(c *Config) { c.Enrichment.Concurrency = -2 }},
		{"zero timeout", func(c *Config) { c.Enrichment.RequestTimeout = 0 }},
		{"negative backoff", func(c *Config) { c.Enrichment.RetryBackoff = -time.Second }},
		{"empty output", func(c *Config) { c.OutputPath = "" }},
		{"empty base url", func(c *Config) { c.Enrichment.BaseURL = "" }},
		{"zero response cap", func(c *Config) { c.Enrichment.MaxResponseBytes = 0 }},
		{"negative rpm", func(c *Config) { c.RateLimit.RequestsPerMinute = -1 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"negative max addresses", func(c *Config) { c.Server.MaxAddresses = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// TestMaxBatchAddresses verifies the enrich batch limit fits the write timeout.
func TestMaxBatchAddresses(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.MaxBatchAddresses(); got != 40 {
		t.Errorf("expected 40 at defaults, got %d", got)
	}

	perAddress := 2*cfg.Enrichment.RequestTimeout + cfg.Enrichment.RetryBackoff
	rounds := (cfg.MaxBatchAddresses() + cfg.Enrichment.Concurrency - 1) / cfg.Enrichment.Concurrency
	if worst := time.Duration(rounds) * perAddress; worst > cfg.Server.WriteTimeout {
		t.Errorf("worst case %v exceeds write timeout %v", worst, cfg.Server.WriteTimeout)
	}

	cfg.Server.WriteTimeout = 5 * time.Second
	if got := cfg.MaxBatchAddresses(); got != cfg.Enrichment.Concurrency {
		t.Errorf("expected one round when the timeout is short, got %d", got)
	}

	cfg.Server.MaxAddresses = 500
	if got := cfg.MaxBatchAddresses(); got != 500 {
		t.Errorf("explicit max_addresses should win, got %d", got)
	}

	cfg.Server.MaxAddresses = 0
	cfg.Server.WriteTimeout = 0
	if got := cfg.MaxBatchAddresses(); got != 0 {
		t.Errorf("expected no limit without a write timeout, got %d", got)
	}
}

// =============================================================================
// Environment Override Tests
// =============================================================================

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("RAPIDTRIAGE_INPUT_DIRECTORY", "/evidence")
	t.Setenv("RAPIDTRIAGE_CONCURRENCY", "4")
	t.Setenv("RAPIDTRIAGE_REQUEST_TIMEOUT", "750ms")
	t.Setenv("RAPIDTRIAGE_INSECURE_TLS", "true")
	t.Setenv("RAPIDTRIAGE_REDIS_ADDR", "redis:6379")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.InputDirectory != "/evidence" {
		t.Errorf("unexpected input directory %q", cfg.InputDirectory)
	}
	if cfg.Enrichment.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Enrichment.Concurrency)
	}
	if cfg.Enrichment.RequestTimeout != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", cfg.Enrichment.RequestTimeout)
	}
	if !cfg.Enrichment.InsecureTLS {
		t.Error("expected insecure_tls true")
	}
	if cfg.RateLimit.Redis.Addr != "redis:6379" {
		t.Errorf("unexpected redis addr %q", cfg.RateLimit.Redis.Addr)
	}
}

func TestApplyEnv_BadNumber(t *testing.T) {
	t.Setenv("RAPIDTRIAGE_CONCURRENCY", "many")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("expected error for non-numeric concurrency")
	}
}

func TestRedisPassword(t *testing.T) {
	t.Setenv("RAPIDTRIAGE_REDIS_PASSWORD", "s3cret")

	cfg := DefaultConfig()
	if got := cfg.RedisPassword(); got != "s3cret" {
		t.Errorf("expected password from env, got %q", got)
	}

	cfg.RateLimit.Redis.PasswordEnv = ""
	if got := cfg.RedisPassword(); got != "" {
		t.Errorf("expected empty password, got %q", got)
	}
}
