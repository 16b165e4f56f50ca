// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatTokens formats a token count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 1234567890 -> "1.2B"
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatAmount formats a balance in its own unit. USD renders as dollars,
// stablecoins and credits keep their unit name. Sub-cent amounts keep up
// to six decimals so tiny costs are not shown as zero.
func FormatAmount(v float64, currency string) string {
	neg := v < 0
	if neg {
		v = -v
	}

	var s string
	switch {
	case v == 0:
		s = "0.00"
	case v < 0.01:
		s = decimal.NewFromFloat(v).Round(6).String()
	default:
		s = FormatDecimal(v, 2)
	}

	switch strings.ToUpper(currency) {
	case "USD", "":
		s = "$" + s
	default:
		s = s + " " + currency
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatDecimal formats v with grouped thousands and a fixed number of
// decimals. e.g., 1234567.891 -> "1,234,567.89"
func FormatDecimal(v float64, places int) string {
	return printer.Sprintf("%."+strconv.Itoa(places)+"f", v)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatScore formats a 0-1 health score.
func FormatScore(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// FormatDays formats a runway in days. The 9999 cap reads as unbounded.
func FormatDays(days float64) string {
	switch {
	case days >= 9999:
		return "no burn"
	case days < 1:
		return fmt.Sprintf("%.1f hours", days*24)
	case days < 100:
		return fmt.Sprintf("%.1f days", days)
	default:
		return FormatNumber(int64(days)) + " days"
	}
}

// FormatDelta formats a balance change with an explicit sign.
func FormatDelta(current, previous float64, currency string) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatAmount(delta, currency)
	}
	return FormatAmount(delta, currency)
}

// FormatAgo renders a timestamp relative to now, or "never".
func FormatAgo(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return humanize.Time(*t)
}
