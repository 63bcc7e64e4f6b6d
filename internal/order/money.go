package order

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount extracts a finite numeric value from an arbitrary payload
// value. Already-numeric values pass through untouched. Strings tolerate the
// separator conventions seen in the wild: "1,234.56", "1234,56" and
// "1 234,56" (including non-breaking spaces and currency symbols) all parse
// to the same number.
func ParseAmount(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, isFinite(n)
	case float32:
		return float64(n), isFinite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return parseAmountString(n)
	default:
		return 0, false
	}
}

func parseAmountString(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")
	switch {
	case hasDot && hasComma:
		// Both present: comma is a thousands separator.
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		// Comma only: decimal separator.
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	if !strings.ContainsAny(cleaned, "0123456789") {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Round2 rounds a monetary value to currency precision (2 decimal places).
// Every price, subtotal and total goes through here before storage or
// comparison.
func Round2(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}

// FormatAmount renders a monetary value for display: "25" for integer-exact
// amounts, "25.50" otherwise.
func FormatAmount(x float64) string {
	d := decimal.NewFromFloat(x).Round(2)
	if d.IsInteger() {
		return d.String()
	}
	return d.StringFixed(2)
}
