package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lvonguyen/rapidtriage/internal/config"
)

// counterValue finds a counter sample in the gathered families.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug": "debug",
		"info":  "info",
		"warn":  "warn",
		"error": "error",
		"":      "info",
		"loud":  "info",
	}
	for in, want := range tests {
		if got := ParseLevel(in).String(); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: format}, zap.String("service", "rapidtriage"))
		if err != nil {
			t.Fatalf("NewLogger(%s): %v", format, err)
		}
		if logger.Core().Enabled(zap.InfoLevel) {
			t.Errorf("%s logger should not enable info at warn level", format)
		}
		if !logger.Core().Enabled(zap.WarnLevel) {
			t.Errorf("%s logger should enable warn", format)
		}
	}
}

// =============================================================================
// Metrics Tests
// =============================================================================

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordLookup("flagged")
	m.RecordLookup("flagged")
	m.RecordLookup("clean")
	m.RecordAttempt("timeout", 20*time.Millisecond)
	m.RecordRetry()
	m.RecordReport("ok")
	m.SetAddressesDiscovered(7)
	m.RecordRequest(http.MethodPost, "/api/v1/enrich", 200, time.Millisecond)

	if got := counterValue(t, reg, "rapidtriage_lookups_total", map[string]string{"outcome": "flagged"}); got != 2 {
		t.Errorf("expected 2 flagged lookups, got %v", got)
	}
	if got := counterValue(t, reg, "rapidtriage_lookup_attempts_total", map[string]string{"result": "timeout"}); got != 1 {
		t.Errorf("expected 1 timeout attempt, got %v", got)
	}
	if got := counterValue(t, reg, "rapidtriage_lookup_retries_total", nil); got != 1 {
		t.Errorf("expected 1 retry, got %v", got)
	}
	if got := counterValue(t, reg, "rapidtriage_http_requests_total", map[string]string{"status": "200"}); got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordLookup("clean")
	m.RecordAttempt("ok", time.Second)
	m.RecordRetry()
	m.RecordReport("error")
	m.SetAddressesDiscovered(1)
	m.RecordRequest(http.MethodGet, "/health", 200, time.Millisecond)
}

// =============================================================================
// Telemetry Tests
// =============================================================================

func TestTelemetry_MetricsHandler(t *testing.T) {
	tel, err := New(Config{
		ServiceName:    "rapidtriage",
		ServiceVersion: "test",
		Logging:        config.LoggingConfig{Level: "error", Format: "json"},
		MetricsEnabled: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tel.Shutdown()

	tel.Metrics().RecordLookup("clean")

	rec := httptest.NewRecorder()
	tel.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `rapidtriage_lookups_total{outcome="clean"} 1`) {
		t.Error("metrics output should contain the lookup counter")
	}
}

func TestTelemetry_MetricsDisabled(t *testing.T) {
	tel, err := New(Config{Logging: config.LoggingConfig{Format: "json"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if tel.Metrics() != nil {
		t.Error("metrics should be nil when disabled")
	}

	rec := httptest.NewRecorder()
	tel.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 when metrics disabled, got %d", rec.Code)
	}
}
