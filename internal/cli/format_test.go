package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		v        float64
		currency string
		want     string
	}{
		{0, "USD", "$0.00"},
		{12.5, "USD", "$12.50"},
		{1234567.891, "USD", "$1,234,567.89"},
		{-3, "USD", "-$3.00"},
		{0.000123, "USD", "$0.000123"},
		{120.5, "credits", "120.50 credits"},
		{2, "USDC", "2.00 USDC"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.v, tt.currency); got != tt.want {
			t.Errorf("FormatAmount(%v, %q) = %q, want %q", tt.v, tt.currency, got, tt.want)
		}
	}
}

func TestFormatDays(t *testing.T) {
	tests := []struct {
		days float64
		want string
	}{
		{9999, "no burn"},
		{0.5, "12.0 hours"},
		{4, "4.0 days"},
		{1500, "1,500 days"},
	}
	for _, tt := range tests {
		if got := FormatDays(tt.days); got != tt.want {
			t.Errorf("FormatDays(%v) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	if got := FormatNumber(1234567); got != "1,234,567" {
		t.Fatalf("FormatNumber = %q, want 1,234,567", got)
	}
	if got := FormatTokens(1_250_000); got != "1.2M" {
		t.Fatalf("FormatTokens = %q, want 1.2M", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": "table", "JSON": "json", "yaml": "yaml"} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("ParseFormat(xml) succeeded")
	}
}

func TestWriteYAMLUsesJSONNames(t *testing.T) {
	v := struct {
		Version string   `json:"version"`
		Tier    string   `json:"tier"`
		Score   float64  `json:"score"`
		Rx      []string `json:"prescriptions"`
	}{"2.1.0", "normal", 0.75, []string{"operate_normally"}}

	var buf bytes.Buffer
	if err := Write(&buf, FormatYAML, v, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"version: 2.1.0\n", "tier: normal\n", "score: 0.75\n", "prescriptions:\n    - operate_normally\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("yaml output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "version") > strings.Index(out, "tier") {
		t.Fatalf("field order not preserved:\n%s", out)
	}
}

func TestRenderScoreBarClamps(t *testing.T) {
	bar := RenderScoreBar(1.5, "normal", 10)
	if !strings.Contains(bar, "1.00") {
		t.Fatalf("bar = %q, want clamped score", bar)
	}
}

func TestRenderTableAlignsStyledCells(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Provider", "Balance"},
		Rows: [][]string{
			{"local", "10.00"},
			{"---"},
			{RenderTier("normal"), "1,234.50"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("table has %d lines, want 7:\n%s", len(lines), out)
	}
	want := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != want {
			t.Fatalf("line %d width = %d, want %d:\n%s", i, w, want, out)
		}
	}
	if !strings.Contains(lines[3], "   10.00 ") {
		t.Fatalf("numeric column not right-aligned: %q", lines[3])
	}
}
