package enrichment

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// Wire Parser Tests
// =============================================================================

func TestParseReportCount(t *testing.T) {
	tests := []struct {
		name string
		body string
		want uint64
	}{
		{"reports after ip", "IP: 1.2.3.4 Reports: 3<br />Attacks: 9<br />", 3},
		{"zero reports", "IP: 1.2.3.4 Reports: 0<br />", 0},
		{"live format", "attacks: 12<br />reports: 4<br />", 4},
		{"no line break", "attacks: 1 reports: 7", 7},
		{"trailing whitespace", "attacks: 1<br />reports: 15 \n", 15},
		{"large count", "a: 1<br />reports: 18446744073709551615<br />", 18446744073709551615},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReportCount(tt.body)
			if err != nil {
				t.Fatalf("ParseReportCount(%q): %v", tt.body, err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestParseReportCount_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"no delimiter", "no data for this ip"},
		{"one delimiter", "attacks: 12<br />"},
		{"non numeric", "attacks: 1<br />reports: many<br />"},
		{"negative", "attacks: 1<br />reports: -2<br />"},
		{"overflow", "a: 1<br />reports: 18446744073709551616<br />"},
		{"html error page", "<html><body>Error: database: unavailable</body></html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReportCount(tt.body)
			if err == nil {
				t.Fatalf("expected error for %q", tt.body)
			}
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("error should match ErrMalformedResponse, got %v", err)
			}
			var ce *ContractError
			if !errors.As(err, &ce) {
				t.Errorf("expected *ContractError, got %T", err)
			}
		})
	}
}

func TestParseReportCount_ExcerptsLongBodies(t *testing.T) {
	body := "a: 1<br />b: " + strings.Repeat("x", 1000)

	_, err := ParseReportCount(body)
	var ce *ContractError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ContractError, got %T", err)
	}
	if len(ce.Body) > maxBodyExcerpt+3 {
		t.Errorf("body excerpt too long: %d bytes", len(ce.Body))
	}
}
